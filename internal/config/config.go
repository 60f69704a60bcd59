package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"harborai-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Deployment-wide fallback key. Tenants may override it per scope via
	// tenant settings.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	MaxChunkChars    int `envconfig:"MAX_CHUNK_CHARS" default:"1000"`
	EmbedConcurrency int `envconfig:"EMBED_CONCURRENCY" default:"4"`

	BackfillInterval  time.Duration `envconfig:"BACKFILL_INTERVAL" default:"5m"`
	BackfillBatchSize int           `envconfig:"BACKFILL_BATCH_SIZE" default:"100"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("HARBORAI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
