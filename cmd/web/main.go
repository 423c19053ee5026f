// Command web serves the ingestion pipeline over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"

	"slotledger/internal/app"
	"slotledger/internal/config"
	"slotledger/internal/infrastructure"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	paths, err := cfg.ResolvePaths(os.Getenv("SLOT_BASE_DIR"))
	if err != nil {
		slog.Error("failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	paths.Apply(cfg)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()
	paths.LogPathResolution(logger)

	ctx := context.Background()
	application, err := app.NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
