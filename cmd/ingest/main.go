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
	"github.com/Skotchmaster/shopdata/internal/loader"
	"github.com/Skotchmaster/shopdata/internal/logging"
)

func main() {
	fs := pflag.NewFlagSet("ingest", pflag.ExitOnError)
	fs.Bool("dry-run", false, "load into a private in-memory store and report without fixing anything")
	fs.String("data-dir", "data", "directory holding the five CSV files")
	fs.String("db", "db/ecommerce.db", "SQLite file path or postgres:// URL to rebuild")
	fs.String("log-level", "info", "debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr).With("cmd", "ingest")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DryRun {
		fmt.Println("=== DRY RUN MODE ===")
	}

	report, err := loader.Run(ctx, loader.Options{
		DataDir:  cfg.DataDir,
		Location: cfg.DBPath,
		DryRun:   cfg.DryRun,
	}, logger)
	if err != nil {
		logger.Error("ingest_failed", "error", err)
		stop()
		os.Exit(1)
	}

	report.Write(os.Stdout)
	if cfg.DryRun {
		fmt.Println("\nDry run complete. No store was written.")
		return
	}
	fmt.Printf("\nStore ready at %s\n", cfg.DBPath)
}
