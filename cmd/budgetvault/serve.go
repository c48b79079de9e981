package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teamvault/budgetvault/internal/api"
	"github.com/teamvault/budgetvault/internal/config"
	"github.com/teamvault/budgetvault/internal/docstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote ledger service",
	Long:  "Serve the append-only document API that clients push records to and pull records from.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogging(cfg.Log)
	slog.Info("configuration loaded")

	if cfg.Remote.APIKey == "" {
		return errors.New("BUDGETVAULT_API_KEY is required to serve")
	}

	db, err := docstore.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("document store initialized", "path", cfg.Database.Path)

	handler := api.NewHandler(db, cfg.Remote.APIKey, Version)
	router := api.NewRouter(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error on graceful Shutdown(); any
		// other error is a real failure and triggers shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := db.Close(); err != nil {
		slog.Error("document store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
