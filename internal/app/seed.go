package app

import (
	"context"
	"fmt"

	"xcreator/internal/adapter/fs"
	"xcreator/internal/domain"
)

// SeedFailure records one handle that could not be ingested.
type SeedFailure struct {
	Entry fs.SeedEntry
	Err   error
}

func (f SeedFailure) String() string {
	return fmt.Sprintf("%s:%d @%s (%s): %v", f.Entry.Source, f.Entry.Line, f.Entry.Handle, f.Entry.Category, f.Err)
}

// SeedReport summarizes a bulk seeding run.
type SeedReport struct {
	Ingested int
	Existing int
	Failed   []SeedFailure
}

// LoadSeeds collects handle entries from the configured seed globs under root.
func (a *App) LoadSeeds(root string) ([]fs.SeedEntry, error) {
	def, err := domain.ParseCategory(a.cfg.Seed.DefaultCategory)
	if err != nil {
		return nil, fmt.Errorf("seed.default_category: %w", err)
	}
	walker := fs.NewWalker(a.cfg.Seed.Includes, a.cfg.Seed.Excludes)
	return fs.LoadSeeds(walker, root, def)
}

// Seed ingests entries one at a time. Per-handle failures are collected and
// do not stop the run; a cancelled context does. progress, when set, is
// called after each entry on the calling goroutine, in entry order.
func (a *App) Seed(ctx context.Context, entries []fs.SeedEntry, opts domain.IngestOptions, progress func(fs.SeedEntry, error)) (*SeedReport, error) {
	report := &SeedReport{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := a.ingest.Ingest(ctx, e.Handle, e.Category, opts)
		switch {
		case err != nil:
			a.logger.Warn("seed entry failed", "handle", e.Handle, "source", e.Source, "line", e.Line, "error", err)
			report.Failed = append(report.Failed, SeedFailure{Entry: e, Err: err})
		case result.Existed:
			report.Existing++
		default:
			report.Ingested++
		}

		if progress != nil {
			progress(e, err)
		}
	}
	return report, nil
}
