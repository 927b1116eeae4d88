package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Skotchmaster/shopdata/internal/dataset"
	"github.com/Skotchmaster/shopdata/internal/store"
)

type Options struct {
	DataDir  string
	Location string
	DryRun   bool
}

// CheckInputs fails with ErrMissingInput unless every collection file is
// present in dir.
func CheckInputs(dir string) error {
	var missing []string
	for _, t := range store.Tables {
		path := filepath.Join(dir, dataset.FileName(t.Name))
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, path)
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingInput, missing)
	}
	return nil
}

// Run loads opts.DataDir into a freshly rebuilt store and returns the
// integrity report. A dry run works on a private in-memory store, so the
// store at opts.Location is never touched. A failed mutating run leaves no
// store behind.
func Run(ctx context.Context, opts Options, log *slog.Logger) (*Report, error) {
	if err := CheckInputs(opts.DataDir); err != nil {
		return nil, err
	}

	var (
		st  *store.Store
		err error
	)
	if opts.DryRun {
		log.Info("dry_run", "data_dir", opts.DataDir)
		st, err = store.OpenMemory(ctx)
	} else {
		if err := store.RemoveFile(opts.Location); err != nil {
			return nil, err
		}
		st, err = store.Open(ctx, opts.Location)
	}
	if err != nil {
		return nil, err
	}

	report, err := build(ctx, st, opts, log)
	if err != nil {
		if opts.DryRun {
			if cerr := st.Close(); cerr != nil {
				log.Error("store_close_failed", "location", store.MemoryLocation, "err", cerr)
			}
		} else if derr := st.Discard(context.WithoutCancel(ctx)); derr != nil {
			log.Error("store_discard_failed", "location", opts.Location, "err", derr)
		}
		return nil, err
	}

	if err := st.Close(); err != nil {
		return nil, fmt.Errorf("close store: %w", err)
	}
	return report, nil
}

func build(ctx context.Context, st *store.Store, opts Options, log *slog.Logger) (*Report, error) {
	if st.Kind == store.KindPostgres {
		if err := st.DropTables(ctx); err != nil {
			return nil, err
		}
	}
	if err := st.CreateSchema(ctx); err != nil {
		return nil, err
	}

	l := &Loader{Store: st, Log: log}
	if err := l.LoadDir(ctx, opts.DataDir); err != nil {
		return nil, err
	}

	report, err := BuildReport(ctx, st.DB, !opts.DryRun)
	if err != nil {
		return nil, err
	}
	if err := st.SetForeignKeys(ctx, true); err != nil {
		return nil, err
	}

	log.Info("reconciliation_done",
		"found", report.Totals.Found,
		"fixed", report.Totals.Fixed,
		"remaining", report.Totals.Remaining,
		"fk_violations", report.ViolationTotal(),
		"dry_run", opts.DryRun,
	)
	return report, nil
}
