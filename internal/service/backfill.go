package service

import (
	"context"
	"log"
	"time"

	"github.com/harborcrm/harborai/internal/domain"
	"github.com/harborcrm/harborai/internal/telemetry"
)

// DefaultBackfillBatchSize bounds one reconciliation run.
const DefaultBackfillBatchSize = 100

// SourceRecord is one source row the backfill scan found lacking fragments.
type SourceRecord struct {
	Table       string
	ID          string
	ContentType domain.ContentType
	Scope       domain.Scope
	Text        string
	StorageKey  string
	Metadata    map[string]any
	UpdatedAt   time.Time
}

// SourceScanner finds source records with missing, stale or failed fragments.
type SourceScanner interface {
	ListStale(ctx context.Context, limit int) ([]SourceRecord, error)
}

// DocumentLoader fetches uploaded-document text by its storage locator.
type DocumentLoader interface {
	FetchText(ctx context.Context, storageKey string) (string, error)
}

// Ingestor is the slice of the coordinator the backfill job drives.
type Ingestor interface {
	Ingest(ctx context.Context, input IngestInput) (*IngestionResult, error)
}

// BackfillItem records the outcome for one reconciled source record.
type BackfillItem struct {
	Table  string           `json:"table"`
	ID     string           `json:"id"`
	Result *IngestionResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// BackfillResult summarizes one reconciliation run.
type BackfillResult struct {
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Items     []BackfillItem `json:"items"`
}

// BackfillService re-ingests source records whose fragments are missing or
// out of date. Its success criterion is "ran to completion", not "zero
// failures": partial coverage self-heals on the next run.
type BackfillService struct {
	sources   SourceScanner
	ingestor  Ingestor
	documents DocumentLoader
	batchSize int
}

// NewBackfillService creates a BackfillService. documents may be nil when no
// object storage is configured; records that need it are then reported as
// failed items.
func NewBackfillService(sources SourceScanner, ingestor Ingestor, documents DocumentLoader, batchSize int) *BackfillService {
	if batchSize <= 0 {
		batchSize = DefaultBackfillBatchSize
	}
	return &BackfillService{
		sources:   sources,
		ingestor:  ingestor,
		documents: documents,
		batchSize: batchSize,
	}
}

// Run executes one bounded reconciliation pass. Individual item failures are
// recorded and skipped; only a failing scan aborts the run.
func (s *BackfillService) Run(ctx context.Context) (*BackfillResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "BackfillService.Run", telemetry.SpanAttributes{
		Operation: "backfill",
	})
	defer span.End()

	records, err := s.sources.ListStale(ctx, s.batchSize)
	if err != nil {
		storageErr := domain.StorageError(err)
		span.SetError(storageErr)
		return nil, storageErr
	}

	result := &BackfillResult{Items: make([]BackfillItem, 0, len(records))}

	for _, record := range records {
		item := BackfillItem{Table: record.Table, ID: record.ID}

		ingestResult, err := s.reingest(ctx, record)
		if err != nil {
			item.Error = err.Error()
			result.Failed++
			telemetry.CaptureError(ctx, err)
			log.Printf("backfill: %s/%s failed: %v", record.Table, record.ID, err)
		} else {
			item.Result = ingestResult
			if ingestResult.ChunksFailed > 0 {
				result.Failed++
			}
		}

		result.Items = append(result.Items, item)
		result.Processed++
	}

	return result, nil
}

func (s *BackfillService) reingest(ctx context.Context, record SourceRecord) (*IngestionResult, error) {
	text := record.Text
	if text == "" && record.StorageKey != "" {
		if s.documents == nil {
			return nil, domain.NewDomainError(domain.ErrCodeInternalError, "document storage not configured")
		}
		fetched, err := s.documents.FetchText(ctx, record.StorageKey)
		if err != nil {
			return nil, domain.StorageError(err)
		}
		text = fetched
	}

	return s.ingestor.Ingest(ctx, IngestInput{
		SourceType: record.ContentType,
		SourceID:   record.ID,
		Scope:      record.Scope,
		Text:       text,
		Metadata:   record.Metadata,
	})
}
