//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/adapter/kafka"
	"github.com/couchcryptid/culvert-eval/internal/config"
	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSummaryTopic = "test-culvert-summaries"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeRegion writes a two-crossing region into dir.
func writeRegion(t *testing.T, dir string) pipeline.Region {
	t.Helper()
	ws := "BarrierID,WS_area,Tc,CN\ncreek_1,0.8,0.6,65\ncreek_2,2.5,1.5,72\n"
	field := "BarrierID,NAACC_ID,Lat,Long,Rd_Name,Culv_Mat,In_Type,In_Shape,In_A,In_B,HW,Slope,Length,County,Flags\n" +
		"creek_1,201,42.0,-76.1,Elm Rd,Corrugated plastic,Projecting,Round Culvert,3,3,4,1,30,Tompkins,0\n" +
		"creek_2,202,42.1,-76.2,Main St,Concrete,Headwall,Box Culvert,4,3,5,1,40,Tompkins,0\n"

	var precip strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&precip, "metadata line %d\n", i)
	}
	depths := []float64{2.5, 3.0, 3.8, 4.5, 5.5, 6.4, 7.4, 8.6, 10.3}
	for i, p := range domain.ReturnPeriods {
		fmt.Fprintf(&precip, "%dyr,0.5,0.7,0.9,1.1,1.3,1.5,1.8,2.0,2.2,%g,11,12\n", p, depths[i])
	}

	region := pipeline.Region{
		Tag:           "creek",
		Watershed:     filepath.Join(dir, "creek_ws.csv"),
		Precipitation: filepath.Join(dir, "creek_precip.csv"),
		FieldData:     filepath.Join(dir, "creek_field.csv"),
	}
	require.NoError(t, os.WriteFile(region.Watershed, []byte(ws), 0o600))
	require.NoError(t, os.WriteFile(region.Precipitation, []byte(precip.String()), 0o600))
	require.NoError(t, os.WriteFile(region.FieldData, []byte(field), 0o600))
	return region
}

// TestRegionRunPublishesSummaries runs a region with the Kafka writer as its
// only sink and reads one message per crossing back from the topic.
func TestRegionRunPublishesSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaSummaryTopic: testSummaryTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	current, future := config.DefaultModel().Scenarios()
	settings := pipeline.Settings{
		OutputRoot: t.TempDir(),
		Current:    current,
		Future:     future,
		Grouping:   domain.GroupByAdjacency,
	}
	p := pipeline.New(settings, []pipeline.Sink{writer}, clockwork.NewRealClock(),
		discardLogger(), observability.NewMetricsForTesting())

	report, err := p.RunRegion(ctx, writeRegion(t, t.TempDir()))
	require.NoError(t, err)
	require.Len(t, report.Summary.Results, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-summaries-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := make(map[string]domain.CrossingResult)
	for range report.Summary.Results {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from summary topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "creek", headers["region"])
		assert.Equal(t, report.Summary.RunID, headers["run_id"])

		var result domain.CrossingResult
		require.NoError(t, json.Unmarshal(msg.Value, &result))
		assert.Equal(t, string(msg.Key), result.BarrierID)
		got[result.BarrierID] = result
	}

	for _, want := range report.Summary.Results {
		assert.Equal(t, want, got[want.BarrierID])
	}
}

// TestFailedRunPublishesNothing checks that a run failing on missing input
// leaves the topic empty.
func TestFailedRunPublishesNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: testSummaryTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	current, future := config.DefaultModel().Scenarios()
	p := pipeline.New(pipeline.Settings{OutputRoot: t.TempDir(), Current: current, Future: future},
		[]pipeline.Sink{writer}, clockwork.NewRealClock(), discardLogger(), observability.NewMetricsForTesting())

	region := writeRegion(t, t.TempDir())
	require.NoError(t, os.Remove(region.Precipitation))

	_, err := p.RunRegion(ctx, region)
	require.Error(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-empty-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message for a failed run")
}
