// Package main is the entrypoint for the autotriage API server.
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

	"github.com/kiranshivaraju/autotriage/internal/analysis"
	"github.com/kiranshivaraju/autotriage/internal/api"
	"github.com/kiranshivaraju/autotriage/internal/api/handler"
	mw "github.com/kiranshivaraju/autotriage/internal/api/middleware"
	"github.com/kiranshivaraju/autotriage/internal/api/response"
	"github.com/kiranshivaraju/autotriage/internal/cache"
	"github.com/kiranshivaraju/autotriage/internal/config"
	"github.com/kiranshivaraju/autotriage/internal/feedback"
	"github.com/kiranshivaraju/autotriage/internal/logging"
	"github.com/kiranshivaraju/autotriage/internal/nlp"
	"github.com/kiranshivaraju/autotriage/internal/pricing"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logging.Init(slog.LevelInfo, "json", os.Stdout)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireRedis(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stdout)
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open database and apply migrations
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()
	slog.Info("database connected")

	// 3. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 4. Load the language model
	model, err := nlp.LoadEnglish()
	if err != nil {
		return fmt.Errorf("load language model: %w", err)
	}

	// 5. Create services
	engine := analysis.NewEngine(model, analysis.KMeansFromConfig(cfg.Analysis))
	analyzer := analysis.NewService(st, engine, pricing.Default(), logging.New("analysis"))
	intake := feedback.NewService(st, logging.New("feedback"))

	// 6. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RequestsPerMinute),

		HealthHandler:  healthHandler(st, redisCache),
		MetricsHandler: promhttp.Handler(),

		CreateFeedbackHandler: handler.NewCreateFeedbackHandler(intake),
		ListFeedbackHandler:   handler.NewListFeedbackHandler(intake),
		GetFeedbackHandler:    handler.NewGetFeedbackHandler(intake),

		AnalyzeHandler: handler.NewAnalyzeHandler(analyzer, redisCache, handler.AnalyzeConfig{
			Defaults: analysis.ParamsFromConfig(cfg.Analysis),
			LockTTL:  cfg.Analysis.LockTTL,
		}),
		LatestReportHandler: handler.NewLatestReportHandler(redisCache),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
