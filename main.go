package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/config"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/consumer"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/handler"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/lock"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/database"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/logger"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/obs"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, "autosched-service", cfg.OtelEndpoint)
	if err != nil {
		log.WithError(err).Fatal("failed to init tracing")
	}
	defer shutdownTracer(context.Background())

	metrics.Register()

	db := database.NewPostgresDB(cfg.DSN())

	// Per-event lock: redis when configured, in-process otherwise
	var locker lock.EventLocker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockTimeout, log)
	} else {
		log.Warn("REDIS_ADDR not set, using in-process event lock")
		locker = lock.NewLocalLocker(cfg.LockTimeout)
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	// Repositories
	txm := repository.NewTxManager(db)
	eventRepo := repository.NewEventRepository(db, cfg.LockTimeout)
	subEventRepo := repository.NewSubEventRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	configRepo := repository.NewItemConfigRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Services
	dispatcher := notify.NewDispatcher(publisher)
	settingsSvc := service.NewSettingsService(settingsRepo, eventRepo)
	resolver := service.NewResolver(catalogRepo, orderRepo, log)
	transactor := service.NewTransactor(service.TransactorDeps{
		Locker:      locker,
		Tx:          txm,
		Events:      eventRepo,
		Quotas:      quotaRepo,
		Orders:      orderRepo,
		Catalog:     catalogRepo,
		Links:       linkRepo,
		Settings:    settingsSvc,
		Messenger:   notify.NewMessenger(publisher),
		OrderEvents: notify.NewOrderEvents(publisher),
		PublicURL:   cfg.PublicURL,
		Logger:      log,
	})
	search := service.NewSlotSearch(subEventRepo, quotaRepo, cfg.MaxCandidates, log)
	orchestrator := service.NewOrchestrator(eventRepo, orderRepo, configRepo, linkRepo, resolver, search, transactor, log)
	selfService := service.NewSelfService(service.SelfServiceDeps{
		Events:    eventRepo,
		Orders:    orderRepo,
		Configs:   configRepo,
		Links:     linkRepo,
		SubEvents: subEventRepo,
		Quotas:    quotaRepo,
		Settings:  settingsSvc,
		Resolver:  resolver,
		Booker:    transactor,
		Logger:    log,
	})
	checkinSvc := service.NewCheckinService(orderRepo, configRepo, settingsSvc, dispatcher, log)
	itemConfigSvc := service.NewItemConfigService(configRepo, eventRepo, catalogRepo)

	// RabbitMQ consumers: scheduling tasks and platform check-ins
	taskMQ, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.TaskQueueSpec(), 4)
	if err != nil {
		log.WithError(err).Fatal("failed to connect task consumer")
	}
	defer taskMQ.Close()
	taskMsgs, err := taskMQ.Consume()
	if err != nil {
		log.WithError(err).Fatal("failed to consume tasks")
	}
	consumer.NewTaskConsumer(orchestrator, dispatcher, cfg.MaxRetries, cfg.RetryDelay, log).Start(ctx, taskMsgs)

	checkinMQ, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.CheckinQueueSpec(), 16)
	if err != nil {
		log.WithError(err).Fatal("failed to connect check-in consumer")
	}
	defer checkinMQ.Close()
	checkinMsgs, err := checkinMQ.Consume()
	if err != nil {
		log.WithError(err).Fatal("failed to consume check-ins")
	}
	consumer.NewCheckinConsumer(checkinSvc, log).Start(ctx, checkinMsgs)

	copyMQ, err := rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.CopyQueueSpec(), 4)
	if err != nil {
		log.WithError(err).Fatal("failed to connect copy consumer")
	}
	defer copyMQ.Close()
	copyMsgs, err := copyMQ.Consume()
	if err != nil {
		log.WithError(err).Fatal("failed to consume copies")
	}
	consumer.NewCopyConsumer(itemConfigSvc, log).Start(ctx, copyMsgs)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "autosched-service"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.NewSelfServiceHandler(selfService).RegisterRoutes(e)
	handler.NewAdminHandler(itemConfigSvc, settingsSvc, service.NewAuditLog(orderRepo)).RegisterRoutes(e)

	go func() {
		log.Infof("autosched service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}
