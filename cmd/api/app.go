package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkhub/internal/cache"
	"github.com/SergeiKhy/linkhub/internal/config"
	"github.com/SergeiKhy/linkhub/internal/handler"
	"github.com/SergeiKhy/linkhub/internal/middleware"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"github.com/SergeiKhy/linkhub/internal/service"
	"go.uber.org/zap"
)

// app собранное приложение. Close освобождает ресурсы в обратном порядке.
type app struct {
	router  http.Handler
	closers []func()
}

// newApp собирает зависимости. При ошибке уже открытые ресурсы закрываются.
func newApp(cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	memCache := cache.New()

	// Redis подключается до хранилища и миграций
	linkCache := repository.NewMemoryLinkCache(memCache)
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = redis.Close() })
		linkCache = repository.NewRedisLinkCache(redis)
		logger.Info("Connected to Redis")
	}

	// Хранилище документов: файлы или postgres
	backend, closeBackend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(closeBackend)

	store := repository.NewStore(backend, memCache, logger)
	customers := repository.NewCustomerRepository(backend)

	// Инициализация сервисов
	resolver := service.NewResolver(store, linkCache, logger)
	linkService := service.NewLinkService(store, resolver, logger)
	statsService := service.NewStatsService(store, customers, logger, nil)

	// Очередь кликов: Stop записывает остаток при завершении
	clickQueue := service.NewClickQueue(store, service.ClickQueueConfig{
		BatchSize:  cfg.Clicks.BatchSize,
		FlushDelay: cfg.Clicks.FlushDelay,
		Backlog:    cfg.Clicks.Buffer,
	}, logger)
	clickQueue.Start()
	a.onClose(clickQueue.Stop)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	a.onClose(rateLimiter.Stop)

	customerMiddleware := middleware.CustomerFromHeader()
	if len(cfg.Auth.APIKeys) > 0 {
		customerMiddleware = middleware.RequireAPIKey(cfg.Auth.APIKeys)
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	}

	// Настройка роутера
	linkHandler := handler.NewLinkHandler(linkService, statsService, clickQueue, cfg.App.BaseURL, logger)
	a.router = handler.NewRouter(linkHandler, rateLimiter, customerMiddleware, logger)
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close останавливает очередь кликов до закрытия хранилища, чтобы остаток был записан
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newBackend выбирает хранилище по STORE_BACKEND
func newBackend(cfg *config.Config, logger *zap.Logger) (repository.Backend, func(), error) {
	if cfg.Store.Backend != config.BackendPostgres {
		logger.Info("Using file store", zap.String("dir", cfg.Store.DataDir))
		return repository.NewFileBackend(cfg.Store.DataDir), func() {}, nil
	}

	if err := repository.Migrate(repository.DSN(cfg.DB)); err != nil {
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Connected to PostgreSQL")

	return repository.NewPostgresBackend(db), db.Close, nil
}
