package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/Skotchmaster/shopdata/internal/config"
	"github.com/Skotchmaster/shopdata/internal/dataset"
	"github.com/Skotchmaster/shopdata/internal/generator"
	"github.com/Skotchmaster/shopdata/internal/logging"
)

func main() {
	fs := pflag.NewFlagSet("generate", pflag.ExitOnError)
	fs.Int64("seed", 42, "random seed; identical seeds reproduce identical data")
	fs.String("data-dir", "data", "directory the CSV files are written to")
	fs.Int("customers", 500, "number of customers")
	fs.Int("products", 200, "number of products")
	fs.Int("orders", 1500, "number of orders")
	fs.Int("reviews", 800, "number of reviews")
	fs.Bool("faker", true, "use the faker name source instead of the fixed vocabulary")
	fs.String("reference-time", "2025-01-01T00:00:00Z", "instant generated timestamps are measured back from (RFC3339)")
	fs.String("log-level", "info", "debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr).With("cmd", "generate")
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("generate_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ref, err := cfg.Reference()
	if err != nil {
		return err
	}

	opts := generator.DefaultOptions()
	opts.Seed = cfg.Seed
	opts.Reference = ref
	opts.Customers = cfg.Customers
	opts.Products = cfg.Products
	opts.Orders = cfg.Orders
	opts.Reviews = cfg.Reviews
	opts.UseFaker = cfg.Faker

	d, findings := generator.New(opts, logger).Generate()

	if err := d.WriteCSV(cfg.DataDir); err != nil {
		return err
	}
	logger.Info("dataset_written", "dir", cfg.DataDir, "seed", cfg.Seed)

	dataset.WriteValidation(os.Stdout, findings)
	fmt.Println()
	d.WriteSummary(os.Stdout)
	return nil
}
