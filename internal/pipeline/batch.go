package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/culvert-eval/internal/observability"
	"golang.org/x/sync/errgroup"
)

// RegionOutcome is the result of one manifest row.
type RegionOutcome struct {
	Region Region
	Report *RegionReport
	Err    error
}

// Batch runs a list of regions. Regions share nothing, so a failure in one
// never stops the others.
type Batch struct {
	pipeline *Pipeline
	workers  int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewBatch creates a Batch that runs up to workers regions at once.
func NewBatch(p *Pipeline, workers int, logger *slog.Logger, metrics *observability.Metrics) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{pipeline: p, workers: workers, logger: logger, metrics: metrics}
}

// Run executes every region and returns one outcome per region in input
// order. Regions not started before ctx is cancelled report ctx.Err().
func (b *Batch) Run(ctx context.Context, regions []Region) []RegionOutcome {
	b.metrics.BatchRunning.Set(1)
	defer b.metrics.BatchRunning.Set(0)
	b.logger.Info("batch started", "regions", len(regions), "workers", b.workers)

	outcomes := make([]RegionOutcome, len(regions))
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, region := range regions {
		outcomes[i].Region = region
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			report, err := b.pipeline.RunRegion(ctx, region)
			outcomes[i].Report = report
			outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	b.logger.Info("batch complete", "regions", len(regions), "failed", failed)
	return outcomes
}
