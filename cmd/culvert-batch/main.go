// Command culvert-batch evaluates every region listed in a manifest.
//
// Usage:
//
//	culvert-batch <manifest> <output_dir>
//
// The manifest has one header row and the columns region_tag,
// watershed_data_filename, watershed_precipitation_tablename and
// field_data_filename. A missing ".csv" extension is added. When HTTP_ADDR is
// set, /healthz, /readyz, /metrics and (with LEDGER_PATH) /runs are served
// while the batch runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/culvert-eval/internal/adapter/http"
	"github.com/couchcryptid/culvert-eval/internal/app"
	"github.com/couchcryptid/culvert-eval/internal/config"
	"github.com/couchcryptid/culvert-eval/internal/observability"
	"github.com/couchcryptid/culvert-eval/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: culvert-batch <manifest> <output_dir>")
		os.Exit(2)
	}
	os.Exit(run(os.Args[1], os.Args[2]))
}

func run(manifestPath, outputRoot string) int {
	// An absent .env is normal; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	regions, err := pipeline.LoadManifest(manifestPath)
	if err != nil {
		logger.Error("invalid manifest, no region was run", "manifest", manifestPath, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, err := app.BuildSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build sinks", "error", err)
		return 1
	}
	defer sinks.Close(logger)

	p := app.NewPipeline(cfg, outputRoot, sinks.List, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		var runs httpadapter.RunLister
		if sinks.Ledger != nil {
			runs = sinks.Ledger
		}
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, runs, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	outcomes := pipeline.NewBatch(p, cfg.BatchWorkers, logger, metrics).Run(ctx, regions)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Printf("%-20s FAILED   %v\n", o.Region.Tag, o.Err)
			continue
		}
		s := o.Report.Summary
		fmt.Printf("%-20s ok       %d crossings, %d invalid rows -> %s\n",
			o.Region.Tag, len(s.Results), s.InvalidRows, s.OutputDir)
	}

	if srv != nil {
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}
