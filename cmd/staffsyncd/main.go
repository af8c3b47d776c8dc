// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// staffsyncd is the sync server for the front-desk app: it accepts batches
// of offline mutations from staff devices and reconciles them against the
// hotel database.
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

	"github.com/spf13/cobra"
)

func main() {
	cfg := &ServerConfig{}

	root := &cobra.Command{
		Use:   "staffsyncd",
		Short: "Offline mutation sync server for hotel front-line staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVar(&cfg.ListenAddr, "listen", envOr("STAFFSYNC_LISTEN", ":8080"), "listen address")
	flags.StringVar(&cfg.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "HS256 secret for staff tokens")
	flags.IntVar(&cfg.MaxBatchSize, "max-batch-size", 500, "maximum mutations per sync request")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, cfg *ServerConfig) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	cfg.Logger = logger

	comps, err := SetupServer(ctx, cfg)
	if err != nil {
		logger.Error("Server setup failed", "error", err)
		return err
	}
	defer comps.Close()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      comps.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Sync server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
