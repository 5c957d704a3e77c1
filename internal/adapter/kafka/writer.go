package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/config"
	"github.com/couchcryptid/culvert-eval/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes crossing results to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Deliver publishes one message per crossing of a successful run in a single
// WriteMessages call. Failed runs carry no results and publish nothing.
func (w *Writer) Deliver(ctx context.Context, run domain.RunSummary) error {
	if !run.Succeeded() || len(run.Results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(run.Results))
	for i := range run.Results {
		msg, err := serializeToMessage(run, run.Results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish crossing results: %w", err)
	}
	w.logger.Debug("crossing results published", "region", run.Region, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CrossingResult into a Kafka message keyed by
// BarrierID so every evaluation of a crossing lands on the same partition.
func serializeToMessage(run domain.RunSummary, result domain.CrossingResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize crossing result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.BarrierID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(run.Region)},
			{Key: "run_id", Value: []byte(run.RunID)},
			{Key: "evaluated_at", Value: []byte(run.FinishedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
