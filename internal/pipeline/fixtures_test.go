package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

var fixedStart = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

const watershedCSV = `BarrierID,WS_area,Tc,CN
lake_2,2.5,1.5,72
lake_1,0.8,0.6,65
`

const fieldCSV = `BarrierID,NAACC_ID,Lat,Long,Rd_Name,Culv_Mat,In_Type,In_Shape,In_A,In_B,HW,Slope,Length,County,Flags
lake_2,102,42.1,-76.2,Main St,Concrete,Headwall,Box Culvert,4,3,5,1,40,Tompkins,0
lake_1,101,42.0,-76.1,Elm Rd,Corrugated plastic,Projecting,Round Culvert,3,3,4,1,30,Tompkins,0
lake_3,103,42.2,-76.3,Oak Ln,Concrete,Projecting,Triangle,2,2,2,1,20,Tompkins,0
lake_4,104,42.3,-76.4,Pine Ave,Concrete,Projecting,Round Culvert,2,2,2,1,20,Tompkins,x
`

// precipitationCSV builds an NRCC-style export: ten metadata lines, then one
// row per return period with the 24-hour depth in column K.
func precipitationCSV() string {
	var b strings.Builder
	b.WriteString("Extreme Precipitation Estimates\n")
	for i := 2; i <= 10; i++ {
		fmt.Fprintf(&b, "metadata line %d\n", i)
	}
	depths := []float64{2.5, 3.0, 3.8, 4.5, 5.5, 6.4, 7.4, 8.6, 10.3}
	for i, p := range domain.ReturnPeriods {
		fmt.Fprintf(&b, "%dyr,0.5,0.7,0.9,1.1,1.3,1.5,1.8,2.0,2.2,%g,11,12\n", p, depths[i])
	}
	return b.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// writeRegion writes a complete input set for tag into dir.
func writeRegion(t *testing.T, dir, tag string) pipeline.Region {
	t.Helper()
	r := pipeline.Region{
		Tag:           tag,
		Watershed:     filepath.Join(dir, tag+"_ws.csv"),
		Precipitation: filepath.Join(dir, tag+"_precip.csv"),
		FieldData:     filepath.Join(dir, tag+"_field.csv"),
	}
	writeFile(t, r.Watershed, watershedCSV)
	writeFile(t, r.Precipitation, precipitationCSV())
	writeFile(t, r.FieldData, fieldCSV)
	return r
}

func testSettings(root string) pipeline.Settings {
	return pipeline.Settings{
		OutputRoot: root,
		Current:    domain.Scenario{Name: "current", Multiplier: 1.0},
		Future:     domain.Scenario{Name: "future", Multiplier: 1.15},
		Grouping:   domain.GroupByAdjacency,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(root string, sinks ...pipeline.Sink) (*pipeline.Pipeline, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(fixedStart)
	return pipeline.New(testSettings(root), sinks, clock, discardLogger(), metrics), metrics
}

func readDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = string(b)
	}
	return out
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// --- sinks ---

type recordingSink struct {
	mu   sync.Mutex
	runs []domain.RunSummary
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, run domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

type failingSink struct{}

func (failingSink) Name() string { return "broken" }

func (failingSink) Deliver(context.Context, domain.RunSummary) error {
	return errors.New("connection refused")
}
