package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/harborcrm/harborai/internal/service"
)

// BackfillService defines the interface for running a reconciliation pass
type BackfillService interface {
	Run(ctx context.Context) (*service.BackfillResult, error)
}

// BackfillRunner drives periodic reconciliation of source records whose
// fragments are missing or stale
type BackfillRunner struct {
	service BackfillService
}

// NewBackfillRunner creates a new BackfillRunner instance
func NewBackfillRunner(svc BackfillService) *BackfillRunner {
	return &BackfillRunner{service: svc}
}

// RunOnce implements the Runner interface
func (r *BackfillRunner) RunOnce(ctx context.Context) error {
	result, err := r.service.Run(ctx)
	if err != nil {
		return fmt.Errorf("backfill run failed: %w", err)
	}

	if result.Processed > 0 {
		log.Printf("Backfill run complete: processed=%d failed=%d", result.Processed, result.Failed)
	}

	return nil
}
