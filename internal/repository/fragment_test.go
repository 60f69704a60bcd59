//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/openai"
	"github.com/harborcrm/harborai/internal/service"
	"github.com/harborcrm/harborai/internal/testutil"
)

// basisVector returns a unit vector along one axis so cosine similarities in
// tests are exact: identical axes score 1, orthogonal axes score 0.
func basisVector(axis int) []float32 {
	v := make([]float32, openai.EmbeddingDimensions)
	v[axis] = 1
	return v
}

func completedFragment(scope domain.Scope, contentType domain.ContentType, table, recordID string, chunkIndex, totalChunks int, text string, embedding []float32) domain.ContentFragment {
	return domain.ContentFragment{
		ID:          uuid.NewString(),
		Scope:       scope,
		ContentType: contentType,
		Source:      domain.SourceRef{Table: table, RecordID: recordID},
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		Text:        text,
		Embedding:   embedding,
		Status:      domain.ProcessingStatusCompleted,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestFragmentRepository_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFragmentRepository(pool)
	scope := domain.UserScope("user-1")
	ref := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}

	fragments := []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeNote, ref.Table, ref.RecordID, 0, 2, "first chunk", basisVector(0)),
		{
			Scope:       scope,
			ContentType: domain.ContentTypeNote,
			Source:      ref,
			ChunkIndex:  1,
			TotalChunks: 2,
			Text:        "second chunk",
			Metadata:    map[string]any{"title": "Quarterly sync"},
			Status:      domain.ProcessingStatusFailed,
		},
	}

	require.NoError(t, repo.ReplaceFragments(ctx, ref, fragments))

	stored, err := repo.ListBySource(ctx, ref)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, 0, stored[0].ChunkIndex)
	assert.Equal(t, "first chunk", stored[0].Text)
	assert.Equal(t, domain.ProcessingStatusCompleted, stored[0].Status)
	assert.Equal(t, "user-1", stored[0].Scope.UserID)
	assert.Empty(t, stored[0].Scope.TeamID)

	assert.Equal(t, 1, stored[1].ChunkIndex)
	assert.Equal(t, domain.ProcessingStatusFailed, stored[1].Status)
	assert.NotEmpty(t, stored[1].ID)
	assert.Equal(t, "Quarterly sync", stored[1].Metadata["title"])
	assert.False(t, stored[1].CreatedAt.IsZero())
}

func TestFragmentRepository_ReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFragmentRepository(pool)
	scope := domain.TeamScope("team-1")
	ref := domain.SourceRef{Table: "team_posts", RecordID: uuid.NewString()}

	first := []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeTeamPost, ref.Table, ref.RecordID, 0, 3, "a", basisVector(0)),
		completedFragment(scope, domain.ContentTypeTeamPost, ref.Table, ref.RecordID, 1, 3, "b", basisVector(1)),
		completedFragment(scope, domain.ContentTypeTeamPost, ref.Table, ref.RecordID, 2, 3, "c", basisVector(2)),
	}
	require.NoError(t, repo.ReplaceFragments(ctx, ref, first))

	second := []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeTeamPost, ref.Table, ref.RecordID, 0, 2, "edited a", basisVector(3)),
		completedFragment(scope, domain.ContentTypeTeamPost, ref.Table, ref.RecordID, 1, 2, "edited b", basisVector(4)),
	}
	require.NoError(t, repo.ReplaceFragments(ctx, ref, second))

	stored, err := repo.ListBySource(ctx, ref)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "edited a", stored[0].Text)
	assert.Equal(t, "edited b", stored[1].Text)
}

func TestFragmentRepository_ReplaceWithEmptyRemovesAll(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFragmentRepository(pool)
	scope := domain.UserScope("user-1")
	ref := domain.SourceRef{Table: "messages", RecordID: uuid.NewString()}

	require.NoError(t, repo.ReplaceFragments(ctx, ref, []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeMessage, ref.Table, ref.RecordID, 0, 1, "hello", basisVector(0)),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, ref, nil))

	stored, err := repo.ListBySource(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestFragmentRepository_SearchScopeIsolation(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFragmentRepository(pool)
	embedding := basisVector(0)

	ownRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}
	otherRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}
	teamRef := domain.SourceRef{Table: "team_posts", RecordID: uuid.NewString()}

	require.NoError(t, repo.ReplaceFragments(ctx, ownRef, []domain.ContentFragment{
		completedFragment(domain.UserScope("user-1"), domain.ContentTypeNote, ownRef.Table, ownRef.RecordID, 0, 1, "mine", embedding),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, otherRef, []domain.ContentFragment{
		completedFragment(domain.UserScope("user-2"), domain.ContentTypeNote, otherRef.Table, otherRef.RecordID, 0, 1, "theirs", embedding),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, teamRef, []domain.ContentFragment{
		completedFragment(domain.TeamScope("team-1"), domain.ContentTypeTeamPost, teamRef.Table, teamRef.RecordID, 0, 1, "team post", embedding),
	}))

	results, err := repo.Search(ctx, service.SearchQuery{
		Embedding: embedding,
		Scope:     domain.UserScope("user-1"),
		Threshold: 0.5,
		TopK:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].Fragment.Text)

	teamResults, err := repo.Search(ctx, service.SearchQuery{
		Embedding: embedding,
		Scope:     domain.TeamScope("team-1"),
		Threshold: 0.5,
		TopK:      10,
	})
	require.NoError(t, err)
	require.Len(t, teamResults, 1)
	assert.Equal(t, "team post", teamResults[0].Fragment.Text)
}

func TestFragmentRepository_SearchThresholdAndOrdering(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFragmentRepository(pool)
	scope := domain.UserScope("user-1")

	// Same axis scores 1.0, a 45 degree blend about 0.707, orthogonal 0.0.
	blend := make([]float32, openai.EmbeddingDimensions)
	blend[0] = 0.7071
	blend[1] = 0.7071

	exactRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}
	nearRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}
	farRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}

	require.NoError(t, repo.ReplaceFragments(ctx, exactRef, []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeNote, exactRef.Table, exactRef.RecordID, 0, 1, "exact", basisVector(0)),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, nearRef, []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeNote, nearRef.Table, nearRef.RecordID, 0, 1, "near", blend),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, farRef, []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeNote, farRef.Table, farRef.RecordID, 0, 1, "far", basisVector(1)),
	}))

	results, err := repo.Search(ctx, service.SearchQuery{
		Embedding: basisVector(0),
		Scope:     scope,
		Threshold: 0.5,
		TopK:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Fragment.Text)
	assert.Equal(t, "near", results[1].Fragment.Text)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.001)
	assert.InDelta(t, 0.7071, results[1].Similarity, 0.01)
}

func TestFragmentRepository_SearchFilters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFragmentRepository(pool)
	scope := domain.UserScope("user-1")
	embedding := basisVector(0)

	noteRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}
	messageRef := domain.SourceRef{Table: "messages", RecordID: uuid.NewString()}
	failedRef := domain.SourceRef{Table: "notes", RecordID: uuid.NewString()}

	require.NoError(t, repo.ReplaceFragments(ctx, noteRef, []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeNote, noteRef.Table, noteRef.RecordID, 0, 1, "a note", embedding),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, messageRef, []domain.ContentFragment{
		completedFragment(scope, domain.ContentTypeMessage, messageRef.Table, messageRef.RecordID, 0, 1, "a message", embedding),
	}))
	require.NoError(t, repo.ReplaceFragments(ctx, failedRef, []domain.ContentFragment{
		{
			Scope:       scope,
			ContentType: domain.ContentTypeNote,
			Source:      failedRef,
			ChunkIndex:  0,
			TotalChunks: 1,
			Text:        "failed note",
			Status:      domain.ProcessingStatusFailed,
		},
	}))

	// Failed rows never surface, even without a type filter.
	all, err := repo.Search(ctx, service.SearchQuery{
		Embedding: embedding,
		Scope:     scope,
		Threshold: 0.5,
		TopK:      10,
	})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	notesOnly, err := repo.Search(ctx, service.SearchQuery{
		Embedding:    embedding,
		Scope:        scope,
		ContentTypes: []domain.ContentType{domain.ContentTypeNote},
		Threshold:    0.5,
		TopK:         10,
	})
	require.NoError(t, err)
	require.Len(t, notesOnly, 1)
	assert.Equal(t, "a note", notesOnly[0].Fragment.Text)

	limited, err := repo.Search(ctx, service.SearchQuery{
		Embedding: embedding,
		Scope:     scope,
		Threshold: 0.5,
		TopK:      1,
	})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
