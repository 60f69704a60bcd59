// Package openai wraps the remote embedding API behind a retrying,
// per-tenant-credentialed client.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/harborcrm/harborai/internal/domain"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// EmbeddingDimensions is the pipeline-wide vector dimension tied to the model
	EmbeddingDimensions = 1536

	// maxAttempts bounds calls per chunk: one initial try plus two retries
	maxAttempts = 3

	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// embeddingAPI is the slice of the upstream client the embedder uses.
// *openai.Client satisfies it.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client generates embeddings against the remote API. It holds no tenant
// state: the API key is resolved by the caller and passed per call, so a
// single Client serves every tenant.
type Client struct {
	model        openai.EmbeddingModel
	dimensions   int
	initialDelay time.Duration
	maxDelay     time.Duration

	// newAPI builds the upstream client for a resolved key; swapped in tests.
	newAPI func(apiKey string) embeddingAPI
}

// Config holds optional overrides for NewClientWithConfig.
type Config struct {
	EmbeddingModel openai.EmbeddingModel
	Dimensions     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
}

// NewClient creates a Client with default model and retry settings.
func NewClient() *Client {
	return NewClientWithConfig(Config{})
}

// NewClientWithConfig creates a Client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = EmbeddingDimensions
	}
	initialDelay := cfg.InitialDelay
	if initialDelay <= 0 {
		initialDelay = defaultInitialDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	return &Client{
		model:        model,
		dimensions:   dimensions,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		newAPI: func(apiKey string) embeddingAPI {
			return openai.NewClient(apiKey)
		},
	}
}

// Embed generates an embedding for text using the given tenant API key.
// Transient provider failures (network, 429, 5xx) are retried with capped
// exponential backoff; after the final attempt the failure surfaces as
// domain.ErrEmbeddingProvider.
func (c *Client) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	if apiKey == "" {
		return nil, domain.ErrCredentialsMissing
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	api := c.newAPI(apiKey)

	var embedding []float32
	operation := func() error {
		resp, err := api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: c.model,
		})
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(errors.New("no embedding data returned"))
		}
		embedding = resp.Data[0].Embedding
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialDelay
	policy.MaxInterval = c.maxDelay
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
	if err != nil {
		return nil, domain.EmbeddingProviderError(err)
	}

	if len(embedding) != c.dimensions {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// isPermanent reports whether a provider error is not worth retrying.
// Rate limits and server-side failures are transient; other 4xx are not.
func isPermanent(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return false
		}
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
			return true
		}
	}
	return false
}
