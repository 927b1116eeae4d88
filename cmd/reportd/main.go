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
	"time"

	"github.com/spf13/pflag"

	"github.com/Skotchmaster/shopdata/internal/config"
	"github.com/Skotchmaster/shopdata/internal/logging"
	"github.com/Skotchmaster/shopdata/internal/store"
	httpserver "github.com/Skotchmaster/shopdata/internal/transport/http"
)

func main() {
	fs := pflag.NewFlagSet("reportd", pflag.ExitOnError)
	fs.String("db", "db/ecommerce.db", "SQLite file path or postgres:// URL to serve")
	fs.String("addr", ":8080", "listen address")
	fs.String("log-level", "info", "debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr).With("cmd", "reportd")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := store.Open(ctx, cfg.DBPath)
	cancel()
	if err != nil {
		logger.Error("store_open_failed", "location", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	e := httpserver.New(&httpserver.Deps{
		Store:  st,
		Report: &httpserver.ReportHandler{DB: st.DB},
		Query:  &httpserver.QueryHandler{DB: st.DB},
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "store", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("store_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
