package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamvault/budgetvault/internal/advice"
	"github.com/teamvault/budgetvault/internal/config"
	"github.com/teamvault/budgetvault/internal/engine"
	"github.com/teamvault/budgetvault/internal/gamification"
	"github.com/teamvault/budgetvault/internal/remote"
	"github.com/teamvault/budgetvault/internal/store"
	"github.com/teamvault/budgetvault/internal/throttle"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "budgetvault",
	Short: "BudgetVault - offline-first expense and income tracker",
	Long:  "Track expenses and income locally, sync them to a remote ledger service when signed in, and keep every device deduplicated by content.",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(adviceCmd)
	rootCmd.AddCommand(backupCmd)
}

// app bundles everything a client command needs.
type app struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	engine  *engine.Engine
	tracker *gamification.Tracker
}

// newApp loads configuration, opens the local store and wires the engine.
// The remote client is only attached when remote sync is configured.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	initLogging(cfg.Log)

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	var remoteStore remote.Store
	if cfg.Remote.BaseURL != "" {
		remoteStore = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey)
	}

	bus := engine.NewBus()
	tracker := gamification.NewTracker(db)
	bus.Subscribe(tracker)

	e := engine.New(db, remoteStore, throttle.New(db), bus)

	return &app{cfg: cfg, store: db, engine: e, tracker: tracker}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}
}

// ownerID returns the configured owner, falling back to the local default
// identity for owners who never sign in.
func (a *app) ownerID() string {
	if a.cfg.Remote.OwnerID != "" {
		return a.cfg.Remote.OwnerID
	}
	return "local"
}

func (a *app) advisor() (*advice.Advisor, error) {
	if a.cfg.Advice.APIKey == "" {
		return nil, errMissingAdviceKey
	}
	return advice.New(a.cfg.Advice.APIKey, a.cfg.Advice.Model, a.store), nil
}

func initLogging(cfg config.LogConfig) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
