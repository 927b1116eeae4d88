package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Skotchmaster/shopdata/internal/config"
	"github.com/Skotchmaster/shopdata/internal/logging"
	"github.com/Skotchmaster/shopdata/internal/query"
	"github.com/Skotchmaster/shopdata/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("query", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: query [flags] [db] [queries.sql]")
		fs.PrintDefaults()
	}
	fs.String("db", "db/ecommerce.db", "SQLite file path or postgres:// URL")
	fs.String("queries", "queries.sql", "file holding the query batch")
	fs.String("log-level", "info", "debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	// positional arguments win over flags and environment
	args := fs.Args()
	if len(args) > 0 {
		_ = fs.Set("db", args[0])
	}
	if len(args) > 1 {
		_ = fs.Set("queries", args[1])
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr).With("cmd", "query")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("query_run_failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	batch, err := os.ReadFile(cfg.QueriesFile)
	if err != nil {
		return fmt.Errorf("read queries: %w", err)
	}
	if store.KindOf(cfg.DBPath) == store.KindSQLite {
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return fmt.Errorf("store %s: %w", cfg.DBPath, err)
		}
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := &query.Runner{DB: st.DB, Out: os.Stdout, Log: logger}
	failed, err := runner.Run(ctx, string(batch))
	if err != nil {
		return err
	}
	logger.Info("queries_done", "file", cfg.QueriesFile, "failed", failed)
	return nil
}
