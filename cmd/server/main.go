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

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/config"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/db"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/goroutine"
	httpHandlers "github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/handlers"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/middleware"
	httpRouter "github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/router"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/events"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/gatewayhttp"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/memory"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/infrastructure/persistence"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/handler"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/service"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/escrow"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/notify"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/request"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/worker"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/ws"
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

	checks := map[string]httpHandlers.Check{}

	// Хранилище.
	var (
		store   repository.Store
		catalog repository.ServiceCatalog
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Log.Warn("main: используется in-memory хранилище, данные не сохраняются")
		store = memory.NewStore()
		catalog = memory.NewCatalog()
	default:
		dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}
		store = persistence.NewStore(dbConn)
		catalog = persistence.NewCatalog(dbConn)
		checks["database"] = dbConn.PingContext
	}

	recovery := goroutine.NewRecoveryHandler(logger.Recovery())

	// Вебсокеты.
	hub := ws.NewHub()
	recovery.SafeGoWithContext(ctx, hub.Run)

	// Доставка событий: с Redis хаб каждого воркера слушает общий канал,
	// без Redis события идут сразу в локальный хаб.
	var (
		publishers events.Multi
		rdb        *redis.Client
	)
	if cfg.Events.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("main: ошибка закрытия redis: %v", err)
			}
		}()

		subscriber := events.NewRedisSubscriber(rdb, cfg.Events.RedisChannel, hub)
		pubsub, err := subscriber.Start(ctx)
		if err != nil {
			log.Fatalf("main: ошибка подписки на redis: %v", err)
		}
		recovery.SafeGoWithContext(ctx, func(ctx context.Context) { subscriber.Listen(ctx, pubsub) })

		publishers = append(publishers, events.NewRedisPublisher(rdb, cfg.Events.RedisChannel))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		publishers = append(publishers, hub)
	}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Printf("main: ошибка закрытия kafka writer: %v", err)
			}
		}()
		publishers = append(publishers, kafkaPublisher)
	}

	var publisher event.Publisher = publishers
	notifier := notify.NewDispatcher(publisher, recovery)

	// Шлюз, сервисы и use cases.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, 0)
	gw := gatewayhttp.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout)
	ledger := escrow.NewLedger()
	access := request.NewAccess(catalog)

	callbackUC := payment.NewHandleCallbackUseCase(store, ledger, notifier)
	reconcileUC := payment.NewReconcilePendingUseCase(store, gw, callbackUC)
	settings := payment.Settings{
		Currency:    cfg.Gateway.Currency,
		CallbackURL: cfg.Gateway.CallbackURL,
	}

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Requests: handler.NewRequestHandler(
			request.NewCreateRequestUseCase(store, catalog, notifier),
			request.NewUpdateStatusUseCase(store, access, notifier),
			request.NewGetRequestUseCase(store, access),
			request.NewListRequestsUseCase(store, access),
			request.NewDeleteRequestUseCase(store, notifier),
		),
		Payments: handler.NewPaymentHandler(
			payment.NewInitiatePaymentUseCase(store, gw, ledger, notifier, settings),
			payment.NewReleasePaymentUseCase(store, ledger, notifier),
			payment.NewRefundPaymentUseCase(store, ledger, notifier),
			payment.NewGetEscrowUseCase(store, access),
		),
		Webhooks: handler.NewWebhookHandler(callbackUC),
		Health:   httpHandlers.NewHealthHandler(checks),
		WS:       httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}

	limitStore, err := middleware.NewRateLimitStore(rdb)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	// Фоновая сверка платежей.
	reconciler := worker.NewReconciler(reconcileUC, cfg.Reconcile.Interval, cfg.Reconcile.StaleAfter, cfg.Reconcile.BatchSize)
	recovery.SafeGoWithContext(ctx, reconciler.Run)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, limitStore)

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

	logger.Log.Infof("main: HTTP сервер запущен на порту %s (store=%s)", cfg.HTTPPort, cfg.StoreDriver)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Дожидаемся фоновых горутин и неотправленных событий.
	stop()
	notifier.Wait()
	logger.Log.Info("main: сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
