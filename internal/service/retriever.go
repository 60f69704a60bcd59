package service

import (
	"context"
	"strings"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/telemetry"
)

const (
	// DefaultTopK is the default result count for retrieval.
	DefaultTopK = 10
	// DefaultSimilarityThreshold excludes weakly related fragments.
	DefaultSimilarityThreshold = 0.7

	maxTopK = 50
)

// SearchQuery is the vector store's similarity query.
type SearchQuery struct {
	Embedding    []float32
	Scope        domain.Scope
	ContentTypes []domain.ContentType
	Threshold    float64
	TopK         int
}

// ScoredFragment pairs a stored fragment with its similarity to the query.
type ScoredFragment struct {
	Fragment   domain.ContentFragment
	Similarity float64
}

// SearchStore runs scoped nearest-neighbor queries over stored fragments.
type SearchStore interface {
	Search(ctx context.Context, query SearchQuery) ([]ScoredFragment, error)
}

// RetrieveInput describes one retrieval request.
type RetrieveInput struct {
	Query        string
	Scope        domain.Scope
	ContentTypes []domain.ContentType
	TopK         int
	Threshold    float64
}

// Retriever embeds a query under the caller's tenant credentials and returns
// the most similar stored fragments within that scope.
type Retriever struct {
	embedder    EmbeddingClient
	credentials CredentialSource
	store       SearchStore
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder EmbeddingClient, credentials CredentialSource, store SearchStore) *Retriever {
	return &Retriever{
		embedder:    embedder,
		credentials: credentials,
		store:       store,
	}
}

// Retrieve returns ranked fragments for the query. Zero matches is a valid,
// non-error outcome; a failure to embed the query surfaces as
// domain.ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, input RetrieveInput) ([]ScoredFragment, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Scope:     input.Scope.String(),
		Operation: "retrieve",
	})
	defer span.End()

	if err := domain.ValidateScope(input.Scope); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return []ScoredFragment{}, nil
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	threshold := input.Threshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	apiKey, err := r.credentials.Resolve(ctx, input.Scope)
	if err != nil {
		unavailable := domain.RetrievalUnavailableError(err)
		span.SetError(unavailable)
		return nil, unavailable
	}

	embedding, err := r.embedder.Embed(ctx, apiKey, query)
	if err != nil {
		unavailable := domain.RetrievalUnavailableError(err)
		span.SetError(unavailable)
		return nil, unavailable
	}

	results, err := r.store.Search(ctx, SearchQuery{
		Embedding:    embedding,
		Scope:        input.Scope,
		ContentTypes: input.ContentTypes,
		Threshold:    threshold,
		TopK:         topK,
	})
	if err != nil {
		storageErr := domain.StorageError(err)
		span.SetError(storageErr)
		return nil, storageErr
	}

	if results == nil {
		results = []ScoredFragment{}
	}
	return results, nil
}
