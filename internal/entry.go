// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/docservice"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/snapshot"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/watch"
)

func buildApp(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func pipelineConfig(cfg *Config) pipeline.Config {
	workers := cfg.Concurrency.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return pipeline.Config{
		EntryPoints:    cfg.Graph.EntryPoints,
		SkipCodeFences: cfg.Corpus.SkipCodeFences,
		Concurrency: pipeline.Concurrency{
			Enabled: cfg.Concurrency.Enabled,
			Workers: workers,
			MinDocs: cfg.Concurrency.MinDocs,
		},
	}
}

// RunCheck validates the corpus once, renders the report, and applies the
// gate flags. Logs go to stderr so stdout stays clean for the report.
func RunCheck(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Corpus.Path, cfg.Corpus.Exclude)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	pipe := pipeline.New(store, pipelineConfig(cfg), logger)
	res, err := pipe.Run(ctx)
	if err != nil {
		return err
	}

	rendered, err := renderReport(res, app.check.Format)
	if err != nil {
		return err
	}
	if app.check.Output != "" {
		if err := os.WriteFile(app.check.Output, rendered, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report written", slog.String("path", app.check.Output))
	} else if _, err := os.Stdout.Write(rendered); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return gate(res, app.check)
}

func renderReport(res *models.Result, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return report.JSON(res)
	case FormatMarkdown:
		return []byte(report.Markdown(res)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// gate maps findings to the check exit policy: broken links fail a strict
// run; ambiguous and unresolved references and orphans fail only when
// warnings are promoted.
func gate(res *models.Result, o CheckOptions) error {
	if o.Strict && res.Metrics.Broken > 0 {
		return fmt.Errorf("%d broken links: %w", res.Metrics.Broken, apperr.ErrGateFailed)
	}
	if o.FailOnWarnings {
		warnings := res.Metrics.Ambiguous + res.Metrics.Unresolved + len(res.Anomalies.Orphans)
		if warnings > 0 {
			return fmt.Errorf("%d warnings: %w", warnings, apperr.ErrGateFailed)
		}
	}
	return nil
}

// RunServe starts the HTTP server with the watcher-driven revalidation loop.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Corpus.Path, cfg.Corpus.Exclude)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	snap, err := snapshot.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}
	defer snap.Close()

	broker := sse.NewBroker()
	defer broker.Close()

	pipe := pipeline.New(store, pipelineConfig(cfg), logger)
	svc := docservice.NewService(store, pipe, snap, broker, logger)

	// Initial pass. The server still starts when it fails; readiness stays
	// down until a later pass succeeds.
	if _, err := svc.Validate(ctx, "startup"); err != nil {
		logger.Warn("initial validation failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !svc.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no validation run recorded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the corpus; each settled burst of changes triggers a full
	// revalidation pass.
	g.Go(func() error {
		return watch.Watch(gCtx, store.Root(), 0, logger,
			broker.PublishDocumentChanged,
			func() {
				if _, err := svc.Validate(gCtx, "watcher"); err != nil {
					logger.Warn("revalidation failed", slog.String("error", err.Error()))
				}
			})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server. stdout carries the protocol, so logs
// go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Corpus.Path, cfg.Corpus.Exclude)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	snap, err := snapshot.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}
	defer snap.Close()

	broker := sse.NewBroker()
	defer broker.Close()

	pipe := pipeline.New(store, pipelineConfig(cfg), logger)
	svc := docservice.NewService(store, pipe, snap, broker, logger)

	// Seed the snapshot so the read tools answer before the first explicit
	// validate_corpus call.
	if _, err := svc.Validate(ctx, "startup"); err != nil {
		logger.Warn("initial validation failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(svc)
	logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
