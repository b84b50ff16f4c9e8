package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ryan-Karimov/notification-service/internal/channel"
	"github.com/Ryan-Karimov/notification-service/internal/config"
	"github.com/Ryan-Karimov/notification-service/internal/infra/postgresql"
	"github.com/Ryan-Karimov/notification-service/internal/observability"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	if err := broker.DeclareTopology(ctx); err != nil {
		logger.Fatal("rabbitmq topology declaration failed", zap.Error(err))
	}

	publisher := queue.NewRabbitMQPublisher(broker)
	consumer := queue.NewRabbitMQConsumer(broker, cfg.Prefetch, logger)
	metrics := observability.NewMetrics()

	notificationRepo := repository.NewGormNotificationRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)
	apiKeyRepo := repository.NewGormAPIKeyRepo(db)

	registry := channel.NewRegistry(
		channel.NewEmailSender(cfg.SMTP()),
		channel.NewTelegramSender(cfg.TelegramBotToken),
		channel.NewSMSSender(cfg.Twilio()),
	)

	worker, err := service.NewWorkerService(notificationRepo, attemptRepo, apiKeyRepo, consumer, publisher, registry, logger)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(notificationRepo, publisher, 0, 0, logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}
	scheduler.SetMetrics(metrics)

	webhooks, err := service.NewWebhookService(consumer, logger)
	if err != nil {
		logger.Fatal("webhook dispatcher initialization failed", zap.Error(err))
	}
	webhooks.SetMetrics(metrics)

	logger.Info("notification-service worker started",
		zap.Int("prefetch", cfg.Prefetch),
		zap.Int("queues", len(queue.WorkQueueNames())),
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Start(groupCtx) })
	g.Go(func() error { return scheduler.Start(groupCtx) })
	g.Go(func() error { return webhooks.Start(groupCtx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker terminated", zap.Error(err))
	}

	logger.Info("notification-service worker stopped")
}
