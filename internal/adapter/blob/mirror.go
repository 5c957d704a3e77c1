package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/couchcryptid/culvert-eval/internal/domain"
)

// SummaryObject is the name of the run summary written next to the mirrored
// output files.
const SummaryObject = "run.json"

// Mirror copies every output file of a region run into a Store under
// <region>/<run directory>/<file>. It implements pipeline.Sink.
type Mirror struct {
	store  Store
	logger *slog.Logger
}

func NewMirror(store Store, logger *slog.Logger) *Mirror {
	return &Mirror{store: store, logger: logger}
}

func (m *Mirror) Name() string { return "artifacts_" + string(m.store.Driver()) }

// Deliver uploads the run's files and a JSON summary. Failed runs are
// mirrored too, since their partial outputs and validation report explain the
// failure. Every file is attempted; the returned error joins all failures.
func (m *Mirror) Deliver(ctx context.Context, run domain.RunSummary) error {
	prefix := path.Join(run.Region, filepath.Base(run.OutputDir))

	var errs []error
	for _, name := range run.Files {
		if err := m.putFile(ctx, path.Join(prefix, name), filepath.Join(run.OutputDir, name)); err != nil {
			errs = append(errs, err)
		}
	}

	summary, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		errs = append(errs, fmt.Errorf("encode run summary: %w", err))
	} else if err := m.store.Put(ctx, path.Join(prefix, SummaryObject), bytes.NewReader(summary), "application/json"); err != nil {
		errs = append(errs, fmt.Errorf("upload run summary: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.logger.Debug("run outputs mirrored", "region", run.Region, "prefix", prefix, "files", len(run.Files))
	return nil
}

func (m *Mirror) putFile(ctx context.Context, key, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(src), err)
	}
	defer func() { _ = f.Close() }()
	if err := m.store.Put(ctx, key, f, "text/csv"); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
