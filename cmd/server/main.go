package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/logging"
	"github.com/JonMunkholm/uploader/internal/storage"
	_ "github.com/JonMunkholm/uploader/internal/storage/backends" // Register all backends
	"github.com/JonMunkholm/uploader/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Storage.Backend,
		"max_files", cfg.Widget.MaxFiles,
		"max_concurrent", cfg.Widget.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	for _, def := range storage.All() {
		slog.Debug("storage backend available", "name", def.Name, "description", def.Description)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Warn("storage close error", "error", err)
		}
	}()

	server := web.NewServer(cfg, backend)
	if err := server.Run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("server stopped")
}
