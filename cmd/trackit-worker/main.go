package main

import (
	"context"
	"errors"
	"os"
	"time"

	"trackit/internal/alerts"
	"trackit/internal/amqp"
	"trackit/internal/backend"
	"trackit/internal/cache"
	"trackit/internal/cli"
	"trackit/internal/log"
	"trackit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting trackit-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is not shared with the API process, alerts only cover seeded sessions")
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	notifiers := alerts.MultiNotifier{alerts.NewLogNotifier(logger)}
	if cfg.EmailAlertsEnabled() {
		notifiers = append(notifiers, alerts.NewEmailNotifier(alerts.EmailConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.AlertEmailFrom,
			To:       cfg.AlertEmailTo,
		}))
		logger.Info("Email alerts enabled", "recipients", len(cfg.AlertEmailTo))
	}

	w := worker.NewAlertWorker(result.Store, alerts.NewEvaluator(cfg.AlertDueWithinDays), notifiers, worker.DefaultRepeatAfter)

	caches := cache.NewManager(logger.Logger)
	caches.Register("sent_alerts", w.SentCache())
	caches.StartCleanup(10 * time.Minute)

	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		w.Stop()
		caches.Stop()
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	if err := w.StartSchedule(ctx, cfg.AlertSchedule); err != nil {
		logger.Error("Failed to schedule alert sweep", log.FieldError, err)
		os.Exit(1)
	}

	// Catch up on anything that changed while the worker was down.
	if err := w.Sweep(ctx); err != nil {
		logger.Error("Startup alert sweep failed", log.FieldError, err)
	}

	if client != nil {
		go func() {
			err := client.ConsumeChanges(ctx, w.HandleChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming change messages", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, relying on the alert schedule only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
