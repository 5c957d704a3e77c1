// Command culvert-eval evaluates the culverts of a single region.
//
// Usage:
//
//	culvert-eval -a lake \
//	  -w inputs/lake_ws.csv \
//	  -p inputs/lake_precip.csv \
//	  -f inputs/lake_field.csv \
//	  -d ./runs
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/culvert-eval/internal/app"
	"github.com/couchcryptid/culvert-eval/internal/config"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	var region pipeline.Region
	flag.StringVar(&region.Watershed, "w", "", "watershed characteristics table (CSV)")
	flag.StringVar(&region.Precipitation, "p", "", "NRCC precipitation export (CSV)")
	flag.StringVar(&region.FieldData, "f", "", "NAACC field data table (CSV)")
	flag.StringVar(&region.Tag, "a", "", "region name, used for the output directory and BarrierID sorting")
	outputRoot := flag.String("d", ".", "output root directory")
	flag.Parse()

	if region.Watershed == "" || region.Precipitation == "" || region.FieldData == "" || region.Tag == "" {
		flag.Usage()
		os.Exit(2)
	}

	// An absent .env is normal; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, err := app.BuildSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build sinks", "error", err)
		os.Exit(1)
	}
	defer sinks.Close(logger)

	p := app.NewPipeline(cfg, *outputRoot, sinks.List, logger, metrics)

	logger.Info("culvert evaluation starting",
		"region", region.Tag,
		"grouping", cfg.Model.Grouping,
		"future_multiplier", cfg.Model.Rainfall.Future,
	)
	report, err := p.RunRegion(ctx, region)
	if report != nil {
		fmt.Printf("%s: %s (%d crossings, %d invalid rows) -> %s\n",
			region.Tag, report.Summary.Status, len(report.Summary.Results),
			report.Summary.InvalidRows, report.Summary.OutputDir)
	}
	if err != nil {
		logger.Error("culvert evaluation failed", "region", region.Tag, "error", err)
		sinks.Close(logger)
		os.Exit(1)
	}
}
