package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"trackit/internal/amqp"
	"trackit/internal/backend"
	"trackit/internal/cache"
	"trackit/internal/cli"
	apphttp "trackit/internal/http"
	"trackit/internal/log"
	"trackit/internal/services"
	"trackit/internal/session"
)

// pinger is implemented by the SQL backends.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	sessions := session.NewManager(result.Store,
		session.WithIdleTimeout(cfg.SessionIdleTimeout),
		session.WithLogger(logger))

	// Change notifications are optional: without a broker the API still works.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, change notifications disabled", log.FieldError, err)
		} else {
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	dashboards := cache.NewLRUCache[any](1024, cfg.DashboardCacheTTL)
	caches := cache.NewManager(logger.Logger)
	caches.Register("dashboards", dashboards)
	caches.StartCleanup(time.Minute)

	svc := services.NewFinanceService(sessions, publisher, dashboards, logger)

	opts := apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}
	if p, ok := result.Store.(pinger); ok {
		opts.Ready = p.Ping
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close publisher", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})
	go sessions.Run(ctx)

	logger.Info("Starting trackit server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
