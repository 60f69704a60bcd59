package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/service"
)

// FragmentRepository persists content fragments and runs scoped similarity
// queries against them.
type FragmentRepository struct {
	pool *pgxpool.Pool
}

func NewFragmentRepository(pool *pgxpool.Pool) *FragmentRepository {
	return &FragmentRepository{pool: pool}
}

// ReplaceFragments atomically swaps the stored fragments for one source
// record. The advisory lock serializes concurrent re-ingestions of the same
// source, so duplicates cannot accumulate; last writer wins.
func (r *FragmentRepository) ReplaceFragments(ctx context.Context, ref domain.SourceRef, fragments []domain.ContentFragment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ref.String())
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM content_fragments WHERE source_table = $1 AND source_id = $2`,
		ref.Table, ref.RecordID,
	)
	if err != nil {
		return err
	}

	for _, f := range fragments {
		if err := insertFragment(ctx, tx, f); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertFragment(ctx context.Context, db dbtx, f domain.ContentFragment) error {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metadata := []byte(`{}`)
	if f.Metadata != nil {
		encoded, err := json.Marshal(f.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode fragment metadata: %w", err)
		}
		metadata = encoded
	}

	var embedding any
	if len(f.Embedding) > 0 {
		embedding = pgvector.NewVector(f.Embedding)
	}

	_, err := db.Exec(ctx,
		`INSERT INTO content_fragments
			(id, user_id, team_id, content_type, source_table, source_id,
			 chunk_index, total_chunks, content, embedding, metadata,
			 processing_status, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id,
		nullableString(f.Scope.UserID),
		nullableString(f.Scope.TeamID),
		f.ContentType,
		f.Source.Table,
		f.Source.RecordID,
		f.ChunkIndex,
		f.TotalChunks,
		f.Text,
		embedding,
		metadata,
		f.Status,
		createdAt,
	)
	return err
}

// Search returns the fragments most similar to the query embedding within
// the given scope. The scope predicate is the tenant-isolation boundary and
// is always applied; similarity never overrides it.
func (r *FragmentRepository) Search(ctx context.Context, query service.SearchQuery) ([]service.ScoredFragment, error) {
	if err := domain.ValidateScope(query.Scope); err != nil {
		return nil, err
	}

	vec := pgvector.NewVector(query.Embedding)

	scopeColumn := "user_id"
	if query.Scope.IsTeam() {
		scopeColumn = "team_id"
	}

	sql := fmt.Sprintf(`
		SELECT id, user_id, team_id, content_type, source_table, source_id,
		       chunk_index, total_chunks, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM content_fragments
		WHERE %s = $2
		  AND processing_status = 'completed'
		  AND embedding IS NOT NULL`, scopeColumn)
	args := []any{vec, query.Scope.Key()}

	if len(query.ContentTypes) > 0 {
		types := make([]string, 0, len(query.ContentTypes))
		for _, t := range query.ContentTypes {
			types = append(types, string(t))
		}
		args = append(args, types)
		sql += fmt.Sprintf(" AND content_type = ANY($%d)", len(args))
	}

	args = append(args, query.Threshold)
	sql += fmt.Sprintf(" AND 1 - (embedding <=> $1) >= $%d", len(args))

	args = append(args, query.TopK)
	sql += fmt.Sprintf(" ORDER BY embedding <=> $1 ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]service.ScoredFragment, 0)
	for rows.Next() {
		var sf service.ScoredFragment
		var userID, teamID *string
		var metadata []byte

		err := rows.Scan(
			&sf.Fragment.ID,
			&userID,
			&teamID,
			&sf.Fragment.ContentType,
			&sf.Fragment.Source.Table,
			&sf.Fragment.Source.RecordID,
			&sf.Fragment.ChunkIndex,
			&sf.Fragment.TotalChunks,
			&sf.Fragment.Text,
			&metadata,
			&sf.Fragment.CreatedAt,
			&sf.Similarity,
		)
		if err != nil {
			return nil, err
		}

		if userID != nil {
			sf.Fragment.Scope.UserID = *userID
		}
		if teamID != nil {
			sf.Fragment.Scope.TeamID = *teamID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &sf.Fragment.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode fragment metadata: %w", err)
			}
		}
		sf.Fragment.Status = domain.ProcessingStatusCompleted

		results = append(results, sf)
	}

	return results, rows.Err()
}

// ListBySource returns all fragments for one source record ordered by chunk
// index, including failed ones. Used by reconciliation tooling and tests.
func (r *FragmentRepository) ListBySource(ctx context.Context, ref domain.SourceRef) ([]domain.ContentFragment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, team_id, content_type, source_table, source_id,
		        chunk_index, total_chunks, content, metadata, processing_status, created_at
		 FROM content_fragments
		 WHERE source_table = $1 AND source_id = $2
		 ORDER BY chunk_index ASC`,
		ref.Table, ref.RecordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fragments []domain.ContentFragment
	for rows.Next() {
		var f domain.ContentFragment
		var userID, teamID *string
		var metadata []byte

		err := rows.Scan(
			&f.ID, &userID, &teamID, &f.ContentType,
			&f.Source.Table, &f.Source.RecordID,
			&f.ChunkIndex, &f.TotalChunks, &f.Text,
			&metadata, &f.Status, &f.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if userID != nil {
			f.Scope.UserID = *userID
		}
		if teamID != nil {
			f.Scope.TeamID = *teamID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode fragment metadata: %w", err)
			}
		}

		fragments = append(fragments, f)
	}

	return fragments, rows.Err()
}
