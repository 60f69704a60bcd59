package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/service"
)

// SourceTable describes one CRM table whose rows feed the pipeline.
// TextColumn may be empty for tables whose text lives in object storage.
type SourceTable struct {
	Name             string
	ContentType      domain.ContentType
	TextColumn       string
	TitleColumn      string
	StorageKeyColumn string
}

// DefaultSourceTables returns the CRM tables the backfill scan covers.
func DefaultSourceTables() []SourceTable {
	return []SourceTable{
		{Name: "notes", ContentType: domain.ContentTypeNote, TextColumn: "content", TitleColumn: "title"},
		{Name: "messages", ContentType: domain.ContentTypeMessage, TextColumn: "body"},
		{Name: "team_posts", ContentType: domain.ContentTypeTeamPost, TextColumn: "body", TitleColumn: "title"},
		{Name: "documents", ContentType: domain.ContentTypeDocument, TextColumn: "extracted_text", TitleColumn: "title", StorageKeyColumn: "storage_key"},
		{Name: "learning_contents", ContentType: domain.ContentTypeLearning, TextColumn: "body", TitleColumn: "title"},
	}
}

// SourceRepository scans the CRM source tables for rows whose fragments are
// missing, older than the row, or partially failed.
type SourceRepository struct {
	pool   *pgxpool.Pool
	tables []SourceTable
}

func NewSourceRepository(pool *pgxpool.Pool, tables []SourceTable) *SourceRepository {
	if len(tables) == 0 {
		tables = DefaultSourceTables()
	}
	return &SourceRepository{pool: pool, tables: tables}
}

// ListStale walks the configured tables in order and stops once limit records
// have been collected. Oldest rows come first so repeated bounded runs make
// progress through a large backlog.
func (r *SourceRepository) ListStale(ctx context.Context, limit int) ([]service.SourceRecord, error) {
	records := make([]service.SourceRecord, 0, limit)

	for _, table := range r.tables {
		remaining := limit - len(records)
		if remaining <= 0 {
			break
		}

		batch, err := r.listStaleFrom(ctx, table, remaining)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table.Name, err)
		}
		records = append(records, batch...)
	}

	return records, nil
}

func (r *SourceRepository) listStaleFrom(ctx context.Context, table SourceTable, limit int) ([]service.SourceRecord, error) {
	columns := []string{"s.id::text", "s.user_id", "s.team_id", "s.updated_at"}
	columns = append(columns, selectOrNull(table.TextColumn))
	columns = append(columns, selectOrNull(table.TitleColumn))
	columns = append(columns, selectOrNull(table.StorageKeyColumn))

	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s s
		LEFT JOIN LATERAL (
			SELECT max(f.created_at) AS embedded_at,
			       bool_or(f.processing_status = 'failed') AS has_failed
			FROM content_fragments f
			WHERE f.source_table = $1 AND f.source_id = s.id::text
		) f ON true
		WHERE f.embedded_at IS NULL
		   OR f.embedded_at < s.updated_at
		   OR f.has_failed
		ORDER BY s.updated_at ASC
		LIMIT $2`,
		strings.Join(columns, ", "), table.Name)

	rows, err := r.pool.Query(ctx, sql, table.Name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []service.SourceRecord
	for rows.Next() {
		record := service.SourceRecord{
			Table:       table.Name,
			ContentType: table.ContentType,
		}
		var userID, teamID, text, title, storageKey *string

		err := rows.Scan(&record.ID, &userID, &teamID, &record.UpdatedAt, &text, &title, &storageKey)
		if err != nil {
			return nil, err
		}

		if userID != nil {
			record.Scope.UserID = *userID
		}
		if teamID != nil {
			record.Scope.TeamID = *teamID
		}
		if text != nil {
			record.Text = *text
		}
		if storageKey != nil {
			record.StorageKey = *storageKey
		}
		if title != nil && *title != "" {
			record.Metadata = map[string]any{"title": *title}
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func selectOrNull(column string) string {
	if column == "" {
		return "NULL::text"
	}
	return "s." + column
}
