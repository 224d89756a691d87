// Package app wires configuration, logging, the session registry and the
// HTTP transport into one runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"datalens/internal/config"
	apierrors "datalens/internal/errors"
	"datalens/internal/infrastructure"
	custommw "datalens/internal/middleware"
	"datalens/internal/session"
	handlers "datalens/internal/transport/http"
)

// Version identifies the running build.
const Version = "1.0.0"

// Application is the dependency container for the service.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *session.Registry
	Router   *chi.Mux
	Server   *http.Server
}

// New loads configuration and assembles the application.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := infrastructure.InitializeLogger(cfg.Logging)
	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
	)

	registry := session.NewRegistry(cfg.Session.TTL, logger)
	registry.StartJanitor(cfg.Session.JanitorInterval)

	app := &Application{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
	}
	app.Router = app.buildRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) buildRouter() *chi.Mux {
	errorHandler := apierrors.NewErrorHandler(a.Logger)
	uploadHandler := handlers.NewUploadHandler(a.Registry, a.Config.Upload, a.Logger, errorHandler)
	analysisHandler := handlers.NewAnalysisHandler(a.Registry, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Registry, Version)

	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(custommw.Metrics)
	r.Use(custommw.CORS(a.Config.Security))
	r.Use(custommw.RateLimiter(a.Config.Security.RateLimit))

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Mount("/upload", uploadHandler.Routes())
		r.Mount("/analysis", analysisHandler.Routes())
	})

	return r
}

// Run starts the HTTP server and blocks until shutdown completes or a fatal
// error occurs. SIGINT/SIGTERM trigger a graceful drain.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.Registry.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
