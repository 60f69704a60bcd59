package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/telemetry"
)

// EmbeddingClient generates embeddings using a tenant-resolved API key.
type EmbeddingClient interface {
	Embed(ctx context.Context, apiKey, text string) ([]float32, error)
}

// FragmentRepository persists fragments for the ingestion coordinator.
type FragmentRepository interface {
	ReplaceFragments(ctx context.Context, ref domain.SourceRef, fragments []domain.ContentFragment) error
}

// IngestInput describes one content item to run through the pipeline.
type IngestInput struct {
	SourceType domain.ContentType
	SourceID   string
	Scope      domain.Scope
	Text       string
	Metadata   map[string]any
}

// IngestionResult reports per-chunk outcomes for one ingested item.
type IngestionResult struct {
	ChunksTotal     int `json:"chunks_total"`
	ChunksSucceeded int `json:"chunks_succeeded"`
	ChunksFailed    int `json:"chunks_failed"`
}

// sourceTableFor maps a content type to the table its records live in.
func sourceTableFor(t domain.ContentType) string {
	switch t {
	case domain.ContentTypeNote:
		return "notes"
	case domain.ContentTypeMessage:
		return "messages"
	case domain.ContentTypeTeamPost:
		return "team_posts"
	case domain.ContentTypeDocument:
		return "documents"
	case domain.ContentTypeLearning:
		return "learning_contents"
	}
	return ""
}

// IngestionService drives a content item through chunking, embedding and
// persistence. Chunks are independent: one chunk's failure never aborts its
// siblings, and the result reports counts for the caller to act on.
type IngestionService struct {
	embedder      EmbeddingClient
	credentials   CredentialSource
	fragments     FragmentRepository
	maxChunkChars int
	concurrency   int
}

// IngestionConfig holds tuning knobs for the coordinator.
type IngestionConfig struct {
	MaxChunkChars int
	Concurrency   int
}

// DefaultIngestionConfig provides sane defaults.
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		MaxChunkChars: DefaultMaxChunkChars,
		Concurrency:   4,
	}
}

// NewIngestionService creates an IngestionService with default configuration.
func NewIngestionService(embedder EmbeddingClient, credentials CredentialSource, fragments FragmentRepository) *IngestionService {
	return NewIngestionServiceWithConfig(embedder, credentials, fragments, DefaultIngestionConfig())
}

// NewIngestionServiceWithConfig creates an IngestionService with explicit configuration.
func NewIngestionServiceWithConfig(
	embedder EmbeddingClient,
	credentials CredentialSource,
	fragments FragmentRepository,
	cfg IngestionConfig,
) *IngestionService {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = DefaultMaxChunkChars
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &IngestionService{
		embedder:      embedder,
		credentials:   credentials,
		fragments:     fragments,
		maxChunkChars: cfg.MaxChunkChars,
		concurrency:   cfg.Concurrency,
	}
}

// Ingest chunks, embeds and persists one content item. Re-ingesting the same
// (source type, source id) replaces any prior fragments, so delivery only has
// to be at-least-once.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestionResult, error) {
	ref := domain.SourceRef{Table: sourceTableFor(input.SourceType), RecordID: input.SourceID}

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		Scope:       input.Scope.String(),
		SourceTable: ref.Table,
		SourceID:    ref.RecordID,
		Operation:   "ingest",
	})
	defer span.End()

	if ref.Table == "" {
		return nil, domain.ErrInvalidContentType
	}
	if input.SourceID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if err := domain.ValidateScope(input.Scope); err != nil {
		return nil, err
	}

	chunks := ChunkText(input.Text, s.maxChunkChars)
	if len(chunks) == 0 {
		return &IngestionResult{}, nil
	}

	apiKey, err := s.credentials.Resolve(ctx, input.Scope)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	// Embed chunks with bounded concurrency. Results land in slots keyed by
	// the chunker's deterministic order, so chunk_index never depends on
	// completion order.
	embeddings := make([][]float32, len(chunks))
	chunkErrs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			embedding, embedErr := s.embedder.Embed(ctx, apiKey, chunk)
			if embedErr != nil {
				chunkErrs[i] = embedErr
				return nil
			}
			embeddings[i] = embedding
			return nil
		})
	}
	_ = g.Wait()

	createdAt := time.Now().UTC()
	fragments := make([]domain.ContentFragment, 0, len(chunks))
	result := &IngestionResult{ChunksTotal: len(chunks)}

	for i, chunk := range chunks {
		fragment := domain.ContentFragment{
			Scope:       input.Scope,
			ContentType: input.SourceType,
			Source:      ref,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Text:        chunk,
			Metadata:    copyMetadata(input.Metadata),
			CreatedAt:   createdAt,
		}

		if chunkErrs[i] != nil {
			// Failed chunks persist without an embedding so the backfill
			// scan can find and retry the incomplete source later.
			fragment.Status = domain.ProcessingStatusFailed
			result.ChunksFailed++
		} else {
			fragment.Embedding = embeddings[i]
			fragment.Status = domain.ProcessingStatusCompleted
			result.ChunksSucceeded++
		}
		fragments = append(fragments, fragment)
	}

	if err := s.fragments.ReplaceFragments(ctx, ref, fragments); err != nil {
		storageErr := domain.StorageError(err)
		span.SetError(storageErr)
		return nil, storageErr
	}

	return result, nil
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
