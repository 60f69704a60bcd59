package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborcrm/harborai/internal/domain"
)

// fakeAPI scripts a sequence of responses for CreateEmbeddings.
type fakeAPI struct {
	calls     int
	responses []fakeResponse
	lastKey   string
}

type fakeResponse struct {
	embedding []float32
	err       error
}

func (f *fakeAPI) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++

	r := f.responses[idx]
	if r.err != nil {
		return openai.EmbeddingResponse{}, r.err
	}
	return openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: r.embedding}},
	}, nil
}

func newTestClient(api *fakeAPI, dims int) *Client {
	c := NewClientWithConfig(Config{
		Dimensions:   dims,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	})
	c.newAPI = func(apiKey string) embeddingAPI {
		api.lastKey = apiKey
		return api
	}
	return c
}

func testEmbedding(dims int) []float32 {
	embedding := make([]float32, dims)
	for i := range embedding {
		embedding[i] = float32(i) * 0.001
	}
	return embedding
}

func TestClient_Embed_Success(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{{embedding: testEmbedding(8)}}}
	client := newTestClient(api, 8)

	got, err := client.Embed(context.Background(), "sk-tenant-a", "hello world")

	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, "sk-tenant-a", api.lastKey)
}

func TestClient_Embed_MissingKey(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{{embedding: testEmbedding(8)}}}
	client := newTestClient(api, 8)

	_, err := client.Embed(context.Background(), "", "hello")

	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
	assert.Equal(t, 0, api.calls)
}

func TestClient_Embed_EmptyText(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{{embedding: testEmbedding(8)}}}
	client := newTestClient(api, 8)

	_, err := client.Embed(context.Background(), "sk", "   ")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_Embed_RetriesTransientThenSucceeds(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}},
		{err: &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}},
		{embedding: testEmbedding(8)},
	}}
	client := newTestClient(api, 8)

	got, err := client.Embed(context.Background(), "sk", "retry me")

	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.Equal(t, 3, api.calls)
}

func TestClient_Embed_ExhaustsRetries(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{err: errors.New("connection reset")},
	}}
	client := newTestClient(api, 8)

	_, err := client.Embed(context.Background(), "sk", "doomed")

	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.Equal(t, maxAttempts, api.calls)
}

func TestClient_Embed_PermanentErrorDoesNotRetry(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{
		{err: &openai.APIError{HTTPStatusCode: http.StatusBadRequest}},
	}}
	client := newTestClient(api, 8)

	_, err := client.Embed(context.Background(), "sk", "bad request")

	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.Equal(t, 1, api.calls)
}

func TestClient_Embed_WrongDimensions(t *testing.T) {
	api := &fakeAPI{responses: []fakeResponse{{embedding: testEmbedding(4)}}}
	client := newTestClient(api, 8)

	_, err := client.Embed(context.Background(), "sk", "short vector")

	assert.ErrorIs(t, err, ErrWrongDimensions)
}
