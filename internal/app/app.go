package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"giftnews/internal/adapter/extractor"
	"giftnews/internal/adapter/fetcher"
	"giftnews/internal/config"
	"giftnews/internal/logger"
	"giftnews/internal/migrations"
	server "giftnews/internal/transport/http"
	"giftnews/internal/usecase"
	"giftnews/internal/worker"
	"giftnews/storage"
)

// App представляет приложение-агрегатор новостей.
// Координирует работу всех компонентов: HTTP-сервера, фонового воркера
// обновления, базы данных и системы логирования.
// Обеспечивает graceful startup и shutdown.
type App struct {
	config   *config.Config
	logger   *slog.Logger
	server   *http.Server
	worker   *worker.Worker
	dbPool   *pgxpool.Pool
	stopChan chan os.Signal
	wg       sync.WaitGroup
}

// New создает и инициализирует новый экземпляр приложения.
// Выполняет настройку логгера, подключение к базе данных, применение
// миграций и сборку конвейера агрегации со всеми зависимостями.
// Возвращает ошибку в случае сбоя любой из инициализационных процедур.
func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbPool.Ping(context.Background()); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := migrations.Apply(context.Background(), appLogger, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	dbStorage := storage.NewPostgresNewsDB(dbPool, cfg.App, appLogger)

	httpFetcher := fetcher.NewHTTPFetcher(appLogger)
	channelExt := extractor.NewChannelExtractor(httpFetcher, appLogger)
	feedExt := extractor.NewFeedExtractor(httpFetcher, appLogger)
	categorizer := usecase.NewCategorizer(cfg.App.Keywords, cfg.App.CategoryPriority)

	cacheTTL, err := time.ParseDuration(cfg.App.CacheTTL)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("bad init app: %w", err)
	}
	resultCache := usecase.NewResultCache(cacheTTL)

	pipeline := usecase.NewPipeline(cfg.App, channelExt, feedExt, categorizer, resultCache, appLogger)

	refreshInterval, err := time.ParseDuration(cfg.App.RefreshInterval)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("bad init app: %w", err)
	}
	refreshWorker := worker.New(pipeline, dbStorage, cfg.App.DefaultNewsLimit, refreshInterval, appLogger)

	handler := server.NewHandler(appLogger, pipeline, dbStorage, cfg.App.Keywords)
	router := server.NewServer(appLogger, handler)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	return &App{
		config:   cfg,
		logger:   appLogger,
		server:   httpServer,
		worker:   refreshWorker,
		dbPool:   dbPool,
		stopChan: make(chan os.Signal, 1),
	}, nil
}

// Run запускает приложение: фоновый воркер обновления и HTTP-сервер.
// Метод блокируется до получения сигнала завершения.
func (a *App) Run() error {
	a.logger.Info("Starting news aggregator",
		slog.String("component", "app"),
		slog.Int("channel_count", len(a.config.App.Channels)),
		slog.Int("feed_count", len(a.config.App.Feeds)),
		slog.String("refresh_interval", a.config.App.RefreshInterval),
	)

	a.worker.Start()

	serverErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("HTTP server starting",
			slog.String("component", "server"),
			slog.String("address", a.server.Addr),
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed",
				slog.String("component", "server"),
				slog.Any("error", err),
			)
			serverErr <- err
		}
	}()

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-a.stopChan:
		a.logger.Info("Shutdown signal received",
			slog.String("component", "app"),
			slog.String("signal", sig.String()),
		)
	case err := <-serverErr:
		a.shutdown()
		return fmt.Errorf("server failed: %w", err)
	}

	a.shutdown()
	return nil
}

// shutdown выполняет корректную остановку всех компонентов приложения.
func (a *App) shutdown() {
	a.worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed",
			slog.String("component", "server"),
			slog.Any("error", err),
		)
	} else {
		a.logger.Info("HTTP server stopped gracefully", slog.String("component", "server"))
	}

	a.wg.Wait()
	a.dbPool.Close()
	a.logger.Info("Application stopped", slog.String("component", "app"))
}
