package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"slotledger/internal/config"
	apierrors "slotledger/internal/errors"
	customMiddleware "slotledger/internal/middleware"
	"slotledger/internal/operations"
	handlers "slotledger/internal/transport/http"
	"slotledger/internal/upload"
	"slotledger/pkg/contracts"
)

// AppName is logged at startup
const AppName = "slotledger"

// Application holds the wired HTTP service
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Pipeline *operations.Pipeline
	Router   *chi.Mux
	Server   *http.Server
}

// NewApplication wires the pipeline, its uploader and metrics, and the
// HTTP router for cfg.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	app := &Application{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	if err := app.initializePipeline(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializePipeline(ctx context.Context) error {
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := operations.NewMetrics(a.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := []operations.Option{
		operations.WithLogger(a.Logger),
		operations.WithMetrics(metrics),
		operations.WithRunConfig(operations.ConfigFrom(a.Config)),
	}

	uploader, err := upload.New(ctx, a.Config.Upload, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize uploader: %w", err)
	}
	if uploader != nil {
		opts = append(opts, operations.WithUploader(uploader))
		a.Logger.InfoContext(ctx, "artifact upload enabled",
			slog.String("provider", a.Config.Upload.Provider))
	}

	pipeline, err := operations.NewPipeline(a.Config, opts...)
	if err != nil {
		return err
	}
	a.Pipeline = pipeline
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Order: RequestID, RealIP, Logger, Recoverer, SecurityHeaders.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Config, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/version", healthHandler.Version)

		r.Group(func(r chi.Router) {
			if a.Config.Server.RateLimitRPS > 0 {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.Server.RateLimitRPS,
					a.Config.Server.RateLimitBurst,
					a.Logger,
				).Handler)
			}
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout))

			ingestHandler := handlers.NewIngestHandler(a.Pipeline, a.Config, a.Logger, errorHandler)
			r.Mount("/", ingestHandler.Routes())
		})
	})

	r.Handle("/metrics", handlers.NewMetricsHandler(a.Registry))

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Start serves in the background. A listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("address", a.Server.Addr),
		slog.String("store_dir", a.Config.Store.Dir),
		slog.String("workbook", a.Config.Workbook.Path),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the server, letting an in-flight run finish within
// the shutdown timeout.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "received shutdown signal")

	return a.Stop(ctx)
}
