package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/shenikar/relief_locator/internal/config"
	v1 "github.com/shenikar/relief_locator/internal/handler/http/v1"
	"github.com/shenikar/relief_locator/internal/metrics"
	"github.com/shenikar/relief_locator/internal/repository"
	"github.com/shenikar/relief_locator/internal/repository/memory"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/shenikar/relief_locator/internal/webhook"
	"github.com/shenikar/relief_locator/pkg/logger"
	"github.com/shenikar/relief_locator/pkg/postgres"
	redisclient "github.com/shenikar/relief_locator/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/relief_locator/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Relief Locator API
// @version 1.0
// @description Proximity search over verified relief resources with audited capacity tracking.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

// storage - хранилища, выбранные по STORAGE_DRIVER
type storage struct {
	resources service.ResourceRepository
	capacity  service.CapacityRepository
	accounts  service.AccountRepository
	alerts    service.AlertRepository
	cache     service.ResourceCache
	redis     *redis.Client
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		accounts := memory.NewAccountStore()
		resources := memory.NewResourceStore(accounts)
		return &storage{
			resources: resources,
			capacity:  resources,
			accounts:  accounts,
			alerts:    memory.NewAlertStore(),
			close:     func() {},
		}, nil
	}

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		return nil, err
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg.DatabaseURL, postgres.DefaultOptions(), log)
	if err != nil {
		return nil, err
	}
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		dbpool.Close()
		return nil, err
	}
	log.Info("Successfully connected to Redis")

	resources := repository.NewResourceRepository(dbpool)
	return &storage{
		resources: resources,
		capacity:  resources,
		accounts:  repository.NewAccountRepository(dbpool),
		alerts:    repository.NewAlertRepository(dbpool),
		cache:     repository.NewResourceCache(redisClient, cfg.ResourceCacheTTL),
		redis:     redisClient,
		close: func() {
			_ = redisClient.Close()
			dbpool.Close()
		},
	}, nil
}

// scheduleAlertSweep деактивирует истёкшие оповещения по расписанию
func scheduleAlertSweep(ctx context.Context, cfg *config.Config, alerts service.AlertService, log *logrus.Logger) (*cron.Cron, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)
	_, err := c.AddFunc(cfg.AlertSweepSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := alerts.SweepExpired(sweepCtx); err != nil {
			log.WithError(err).Warn("Scheduled alert sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_SWEEP_SCHEDULE %q: %w", cfg.AlertSweepSchedule, err)
	}
	c.Start()
	return c, nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.close()

	m := metrics.New()

	// Вебхуки работают только поверх очереди в Redis
	var publisher webhook.WebhookPublisher = webhook.NoopPublisher{}
	var webhookWorker *webhook.WebhookWorker
	if store.redis != nil {
		publisher = webhook.NewRedisWebhookPublisher(store.redis)
		webhookWorker = webhook.NewWebhookWorker(store.redis, log, cfg, m)
		webhookWorker.Start(ctx)
	}

	// Инициализация сервисов
	locks := service.NewKeyedMutex()
	snapshots := service.NewSearchCache(cfg.SearchCacheTTL)

	resourceService := service.NewResourceService(store.resources, store.accounts, store.cache, snapshots, locks, log)
	searchService := service.NewSearchService(store.resources, snapshots, cfg, m, log)
	capacityService := service.NewCapacityService(store.capacity, store.cache, snapshots, locks, publisher, cfg, m, log)
	accountService := service.NewAccountService(store.accounts, log)
	alertService := service.NewAlertService(store.alerts, cfg, m, log)

	sweeper, err := scheduleAlertSweep(ctx, cfg, alertService, log)
	if err != nil {
		log.Fatalf("Failed to schedule alert sweep: %v", err)
	}

	// Инициализация хэндлеров
	handler := v1.NewHandler(v1.Services{
		Resources: resourceService,
		Search:    searchService,
		Capacity:  capacityService,
		Accounts:  accountService,
		Alerts:    alertService,
	}, log, cfg)

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Recovery(), m.Middleware())
	router.GET("/metrics", m.Handler())
	api := router.Group("/api/v1", v1.IdentityMiddleware(cfg.JWTSecret, log))
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.WithField("storage", cfg.StorageDriver).Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	<-sweeper.Stop().Done()
	cancel()
	if webhookWorker != nil {
		select {
		case <-webhookWorker.Done():
		case <-shutdownCtx.Done():
			log.Warn("Webhook worker did not stop in time")
		}
	}

	log.Info("Server gracefully stopped")
}
