package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/config"
	"github.com/Ryan-Karimov/notification-service/internal/handler"
	"github.com/Ryan-Karimov/notification-service/internal/infra/postgresql"
	"github.com/Ryan-Karimov/notification-service/internal/infra/postgresql/migrations"
	infraredis "github.com/Ryan-Karimov/notification-service/internal/infra/redis"
	"github.com/Ryan-Karimov/notification-service/internal/observability"
	"github.com/Ryan-Karimov/notification-service/internal/queue"
	"github.com/Ryan-Karimov/notification-service/internal/repository"
	"github.com/Ryan-Karimov/notification-service/internal/service"
	"github.com/Ryan-Karimov/notification-service/internal/template"
	"github.com/Ryan-Karimov/notification-service/internal/transport"
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

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	if err := broker.DeclareTopology(ctx); err != nil {
		logger.Fatal("rabbitmq topology declaration failed", zap.Error(err))
	}

	publisher := queue.NewRabbitMQPublisher(broker)
	metrics := observability.NewMetrics()
	engine := template.NewEngine()

	notificationRepo := repository.NewGormNotificationRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)
	apiKeyRepo := repository.NewGormAPIKeyRepo(db)

	notificationSvc, err := service.NewNotificationService(notificationRepo, templateRepo, attemptRepo, publisher, engine, logger)
	if err != nil {
		logger.Fatal("notification service initialization failed", zap.Error(err))
	}
	notificationSvc.SetMetrics(metrics)

	templateSvc, err := service.NewTemplateService(templateRepo, engine, logger)
	if err != nil {
		logger.Fatal("template service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb, broker)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api/v1",
		transport.APIKeyAuth(apiKeyRepo, logger),
		transport.RateLimit(limiter, logger),
	)
	if err := handler.RegisterNotificationRoutes(api, notificationSvc); err != nil {
		logger.Fatal("notification routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterTemplateRoutes(api, templateSvc); err != nil {
		logger.Fatal("template routes registration failed", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, draining http server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("notification-service api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("http server terminated", zap.Error(err))
	}

	logger.Info("notification-service api stopped")
}
