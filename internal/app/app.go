// Package app wires configuration into a ready pipeline and its output sinks.
// Both commands share it.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/culvert-eval/internal/adapter/blob"
	kafkaadapter "github.com/couchcryptid/culvert-eval/internal/adapter/kafka"
	"github.com/couchcryptid/culvert-eval/internal/adapter/ledger"
	"github.com/couchcryptid/culvert-eval/internal/adapter/postgres"
	"github.com/couchcryptid/culvert-eval/internal/config"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// Sinks are the post-run sinks enabled by configuration.
type Sinks struct {
	List []pipeline.Sink
	// Ledger is nil unless LEDGER_PATH is set.
	Ledger *ledger.Ledger

	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// BuildSinks opens every sink the configuration enables. On error, sinks
// opened so far are closed.
func BuildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Sinks, error) {
	s := &Sinks{}

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg, logger)
		s.add("kafka", w, w)
		logger.Info("summary publishing enabled", "topic", cfg.KafkaSummaryTopic)
	}

	if cfg.ArtifactDriver != "" && cfg.ArtifactDriver != "none" {
		store, err := blob.Open(ctx, blob.Config{
			Driver: cfg.ArtifactDriver,
			FSRoot: cfg.ArtifactFSRoot,
			S3: blob.S3Config{
				Bucket:          cfg.ArtifactS3Bucket,
				Region:          cfg.ArtifactS3Region,
				Endpoint:        cfg.ArtifactS3Endpoint,
				PathStyle:       cfg.ArtifactS3PathStyle,
				AccessKeyID:     cfg.ArtifactS3AccessKey,
				SecretAccessKey: cfg.ArtifactS3SecretKey,
			},
		})
		if err != nil {
			s.Close(logger)
			return nil, fmt.Errorf("open artifact store: %w", err)
		}
		s.List = append(s.List, blob.NewMirror(store, logger))
		logger.Info("artifact mirroring enabled", "driver", cfg.ArtifactDriver)
	}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath, logger)
		if err != nil {
			s.Close(logger)
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		s.Ledger = l
		s.add("ledger", l, l)
		logger.Info("run ledger enabled", "path", cfg.LedgerPath)
	}

	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			s.Close(logger)
			return nil, fmt.Errorf("open results database: %w", err)
		}
		s.add("postgres", pg, pg)
		logger.Info("results database enabled")
	}

	return s, nil
}

func (s *Sinks) add(name string, sink pipeline.Sink, c io.Closer) {
	s.List = append(s.List, sink)
	s.closers = append(s.closers, namedCloser{name: name, c: c})
}

// Close releases every opened sink, logging failures.
func (s *Sinks) Close(logger *slog.Logger) {
	for _, nc := range s.closers {
		if err := nc.c.Close(); err != nil {
			logger.Error("sink close error", "sink", nc.name, "error", err)
		}
	}
	s.closers = nil
}

// NewPipeline builds a Pipeline writing under outputRoot with the model
// parameters from cfg.
func NewPipeline(cfg *config.Config, outputRoot string, sinks []pipeline.Sink, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Pipeline {
	current, future := cfg.Model.Scenarios()
	settings := pipeline.Settings{
		OutputRoot: outputRoot,
		Current:    current,
		Future:     future,
		Grouping:   cfg.Model.GroupingMode(),
	}
	return pipeline.New(settings, sinks, clockwork.NewRealClock(), logger, metrics)
}
