package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Model parameters, from MODEL_FILE with GROUPING_MODE as an override.
	ModelFile string
	Model     Model

	BatchWorkers int

	// Summary publishing. Disabled when KafkaBrokers is empty.
	KafkaBrokers      []string
	KafkaSummaryTopic string

	// Artifact mirroring of each run's output directory.
	ArtifactDriver      string
	ArtifactFSRoot      string
	ArtifactS3Bucket    string
	ArtifactS3Region    string
	ArtifactS3Endpoint  string
	ArtifactS3PathStyle bool
	ArtifactS3AccessKey string
	ArtifactS3SecretKey string

	LedgerPath  string
	DatabaseURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	modelFile := os.Getenv("MODEL_FILE")
	model := DefaultModel()
	if modelFile != "" {
		model, err = LoadModel(modelFile)
		if err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("GROUPING_MODE"); v != "" {
		model.Grouping = v
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	workers, err := parseBatchWorkers()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		ModelFile: modelFile,
		Model:     model,

		BatchWorkers: workers,

		KafkaBrokers:      brokers,
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "culvert-summaries"),

		ArtifactDriver:      sharedcfg.EnvOrDefault("ARTIFACT_DRIVER", "none"),
		ArtifactFSRoot:      sharedcfg.EnvOrDefault("ARTIFACT_FS_ROOT", "./artifacts"),
		ArtifactS3Bucket:    os.Getenv("ARTIFACT_S3_BUCKET"),
		ArtifactS3Region:    sharedcfg.EnvOrDefault("ARTIFACT_S3_REGION", "us-east-1"),
		ArtifactS3Endpoint:  os.Getenv("ARTIFACT_S3_ENDPOINT"),
		ArtifactS3PathStyle: strings.EqualFold(os.Getenv("ARTIFACT_S3_PATH_STYLE"), "true"),
		ArtifactS3AccessKey: os.Getenv("ARTIFACT_S3_ACCESS_KEY_ID"),
		ArtifactS3SecretKey: os.Getenv("ARTIFACT_S3_SECRET_ACCESS_KEY"),

		LedgerPath:  os.Getenv("LEDGER_PATH"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	switch cfg.ArtifactDriver {
	case "none", "fs", "memory":
	case "s3":
		if cfg.ArtifactS3Bucket == "" {
			return nil, errors.New("ARTIFACT_S3_BUCKET is required when ARTIFACT_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("invalid ARTIFACT_DRIVER %q", cfg.ArtifactDriver)
	}
	if cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_SUMMARY_TOPIC is required")
	}

	return cfg, nil
}

func parseBatchWorkers() (int, error) {
	s := os.Getenv("BATCH_WORKERS")
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 64 {
		return 0, errors.New("invalid BATCH_WORKERS: must be between 1 and 64")
	}
	return n, nil
}
