package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harborcrm/harborai/internal/config"
	"github.com/harborcrm/harborai/internal/database"
	"github.com/harborcrm/harborai/internal/openai"
	"github.com/harborcrm/harborai/internal/repository"
	"github.com/harborcrm/harborai/internal/service"
	"github.com/harborcrm/harborai/internal/storage"
)

// BackfillCmd returns the backfill command
func BackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Run one reconciliation pass and exit",
		Long:  "Scan the CRM source tables for records with missing, stale or failed fragments and re-ingest them",
		RunE:  runBackfill,
	}

	cmd.Flags().Int("batch-size", 0, "Maximum records to process (defaults to HARBORAI_BACKFILL_BATCH_SIZE)")

	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = cfg.BackfillBatchSize
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	fragmentRepo := repository.NewFragmentRepository(pool)
	tenantRepo := repository.NewTenantSettingsRepository(pool)
	sourceRepo := repository.NewSourceRepository(pool, repository.DefaultSourceTables())

	var documents service.DocumentLoader
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		documents = s3Client
	}

	embedder := openai.NewClient()
	credentials := service.NewCredentialResolver(tenantRepo, cfg.OpenAIAPIKey)
	ingestSvc := service.NewIngestionServiceWithConfig(embedder, credentials, fragmentRepo, service.IngestionConfig{
		MaxChunkChars: cfg.MaxChunkChars,
		Concurrency:   cfg.EmbedConcurrency,
	})
	backfillSvc := service.NewBackfillService(sourceRepo, ingestSvc, documents, batchSize)

	result, err := backfillSvc.Run(ctx)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(output))

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", result.Failed, result.Processed)
	}
	return nil
}
