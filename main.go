package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gasfeel/gaspay/internal/cache"
	"github.com/gasfeel/gaspay/internal/config"
	"github.com/gasfeel/gaspay/internal/httpserver"
	"github.com/gasfeel/gaspay/internal/ingest"
	"github.com/gasfeel/gaspay/internal/metrics"
	"github.com/gasfeel/gaspay/internal/middleware"
	"github.com/gasfeel/gaspay/internal/models"
	"github.com/gasfeel/gaspay/internal/referral"
	"github.com/gasfeel/gaspay/internal/snapshot"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to standard log
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting gaspay portal backend",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.Duration("feed_ttl", cfg.Feed.CacheTTL),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics("gaspay")
	}

	// Optional Redis snapshot store for warm starts
	var opts []cache.Option
	if cfg.Snapshot.Addr != "" {
		store, err := snapshot.NewRedisStore(ctx, cfg.Snapshot, logger)
		if err != nil {
			logger.Warn("snapshot store unavailable, continuing without warm start", zap.Error(err))
		} else {
			defer store.Close()
			opts = append(opts, cache.WithSnapshotStore(store))
		}
	}

	// Feed ingestion behind the refresh cache
	feedClient := ingest.NewClient(cfg.Feed, logger)
	fetch := func(ctx context.Context) (*models.EventSet, error) {
		start := time.Now()
		set, err := feedClient.FetchAndParse(ctx)
		if m != nil {
			if err != nil {
				m.RecordRefresh("failure", time.Since(start), 0, 0)
			} else {
				m.RecordRefresh("success", time.Since(start), len(set.Events), set.Skipped)
			}
		}
		return set, err
	}
	feedCache := cache.New(fetch, cfg.Feed.CacheTTL, logger, opts...)
	feedCache.WarmStart(ctx)

	// Query service
	engine := referral.NewEngine(cfg.Payout.PerReferral, cfg.Payout.WeekWindowDays)
	service := referral.NewService(feedCache, engine, cfg.Payout.SummaryWindowDays, m, logger)

	// Build dependencies
	deps := &httpserver.Dependencies{
		Service: service,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	}

	// Create HTTP server with all middlewares
	handler := httpserver.NewServer(deps)

	// Apply middleware chain (order matters: outermost first)
	// Recovery -> RequestID -> Logging -> RateLimit -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	requestIDMW := middleware.NewRequestIDMiddleware()
	loggingMW := middleware.NewLoggingMiddleware(logger, m)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)

	finalHandler := recoveryMW.Handler(
		requestIDMW.Handler(
			loggingMW.Handler(
				rateLimitMW.Handler(handler),
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Cancel main context to stop background goroutines
	cancel()

	logger.Info("server stopped")
}
