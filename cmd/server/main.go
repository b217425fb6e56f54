package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/cache"
	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	"github.com/ignatzorin/crew-shifts-backend/internal/db"
	"github.com/ignatzorin/crew-shifts-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/crew-shifts-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/crew-shifts-backend/internal/http/router"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/payment"
	"github.com/ignatzorin/crew-shifts-backend/internal/queue"
	"github.com/ignatzorin/crew-shifts-backend/internal/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/service"
	"github.com/ignatzorin/crew-shifts-backend/internal/storage"
	"github.com/ignatzorin/crew-shifts-backend/internal/ws"
)

const (
	ratingStatCacheTTL = 10 * time.Minute
	accessTokenTTL     = 24 * time.Hour
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
	if err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}
	if len(applied) > 0 {
		logger.L().WithField("migrations", applied).Info("миграции применены")
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, accessTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Хранилище и адаптеры.
	ledger := repository.NewLedger(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	var publisher *queue.Publisher
	if cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL)
	}

	var gateway service.PaymentGateway
	switch cfg.PaymentDriver {
	case "amqp":
		gateway = payment.NewQueueGateway(publisher)
	default:
		gateway = payment.NewSimulatedGateway()
	}

	healthChecks := map[string]httpHandlers.HealthCheck{"database": dbConn.PingContext}

	var statCache service.StatCache
	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		defer closeRedis(redisClient)
		statCache = cache.NewRedisStatCache(redisClient, ratingStatCacheTTL)
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		memCache := service.NewCacheService()
		defer memCache.Close()
		statCache = service.NewMemoryStatCache(memCache, ratingStatCacheTTL)
	}

	// Уведомления: вебсокеты и, если настроен брокер, очередь событий.
	notificationService := service.NewNotificationService(notificationRepo)
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	goroutine.SafeGo(hub.Run)
	notificationService.SetPusher(hub)
	if publisher != nil {
		notificationService.SetPublisher(publisher)
	}

	// Сервисы workflow.
	escrowService := service.NewEscrowService(ledger, gateway, cfg.Policy.AdapterTimeout)
	shiftService := service.NewShiftService(ledger, escrowService, notificationService, cfg.Policy)
	ratingService := service.NewRatingService(ledger, statCache, notificationService, shiftService)
	disputeService := service.NewDisputeService(ledger, escrowService, notificationService, shiftService, cfg.Policy)

	scheduler := service.NewScheduler(service.NewSweepJobs(ledger, shiftService, escrowService, cfg.Policy), cfg.Policy.SweepInterval)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("main: не удалось запустить планировщик: %v", err)
	}
	defer scheduler.Stop()

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Shift:        httpHandlers.NewShiftHandler(shiftService),
		Assignment:   httpHandlers.NewAssignmentHandler(shiftService),
		Rating:       httpHandlers.NewRatingHandler(ratingService),
		Dispute:      httpHandlers.NewDisputeHandler(disputeService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		Evidence:     httpHandlers.NewEvidenceHandler(photoStorage),
		Health:       httpHandlers.NewHealthHandler(healthChecks, hub),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.L().WithFields(logrus.Fields{
		"port":           cfg.HTTPPort,
		"payment_driver": cfg.PaymentDriver,
		"redis":          redisClient != nil,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Printf("main: ошибка закрытия redis: %v", err)
	}
}
