package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"real-estate-search/internal/app"
	"real-estate-search/internal/config"
	"real-estate-search/internal/logging"
	"real-estate-search/internal/ratelimit"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, configPath, err := config.Load("/app/config/config.yaml")
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath, "database", cfg.Database.Type, "search", cfg.Search.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	rateLimiter := ratelimit.NewRateLimiter(
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.Enabled,
	)
	logger.Info("rate limiter initialized",
		"per_minute", cfg.RateLimit.RequestsPerMinute,
		"per_hour", cfg.RateLimit.RequestsPerHour,
		"enabled", cfg.RateLimit.Enabled,
	)
	go pruneRateLimiter(ctx, rateLimiter)

	if services.Scheduler != nil {
		if err := services.Scheduler.Start(); err != nil {
			return err
		}
		defer services.Scheduler.Stop()

		if cfg.Reindex.RunOnStart {
			go func() {
				if _, err := services.Scheduler.RunNow(ctx); err != nil {
					logger.Error("initial reindex failed", "error", err)
				}
			}()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.NewRouter(cfg, services, rateLimiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pruneRateLimiter drops idle clients every few minutes
func pruneRateLimiter(ctx context.Context, rl *ratelimit.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}
