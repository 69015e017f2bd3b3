package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/glowcart/storefront-search/internal/catalog/postgres"
	"github.com/glowcart/storefront-search/internal/config"
	"github.com/glowcart/storefront-search/internal/event"
	handler "github.com/glowcart/storefront-search/internal/handler/http"
	"github.com/glowcart/storefront-search/internal/history"
	"github.com/glowcart/storefront-search/internal/index"
	"github.com/glowcart/storefront-search/internal/indexsync"
	"github.com/glowcart/storefront-search/internal/service"
	"github.com/glowcart/storefront-search/internal/suggest"
	"github.com/glowcart/storefront-search/pkg/database"
	"github.com/glowcart/storefront-search/pkg/health"
	pkgkafka "github.com/glowcart/storefront-search/pkg/kafka"
	"github.com/glowcart/storefront-search/pkg/tracing"
)

// ServiceName identifies the search service in logs, metrics and traces.
const ServiceName = "search-service"

// slowQueryThreshold applies when DB_SLOW_QUERY_LOG is set.
const slowQueryThreshold = 200 * time.Millisecond

// App wires together all dependencies and runs the search service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	core            *Core
	redis           *redis.Client
	consumer        *pkgkafka.Consumer
	httpServer      *http.Server
	tracingShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.AdminJWTSecret == "" && cfg.IsProduction() {
		return nil, errors.New("ADMIN_JWT_SECRET is required in production")
	}

	shutdownTracing, err := tracing.Init(ctx, ServiceName, cfg.Version, cfg.Environment, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	// Search history is optional; without Redis, suggestions come from the
	// index alone and searches are not recorded.
	var (
		redisClient *redis.Client
		recorder    service.HistoryRecorder
		source      suggest.HistorySource
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = core.Close()
			_ = shutdownTracing(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store := history.NewStore(redisClient, cfg.HistoryMaxTerms)
		recorder, source = store, store
		logger.Info("search history enabled", slog.Int("max_terms", cfg.HistoryMaxTerms))
	}

	searchService := service.NewSearchService(core.Indexes, recorder, logger)
	suggestions := suggest.NewEngine(core.Indexes, source, logger)

	// Product events keep single documents in step with the catalog.
	var consumer *pkgkafka.Consumer
	if cfg.KafkaEnabled {
		eventConsumer := event.NewConsumer(core.Controller, logger)
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topics:  event.Topics(),
		}, eventConsumer.Handle, logger)
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Any("topics", event.Topics()),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("search_index", func(ctx context.Context) error {
		store, err := core.Indexes.Get(ctx)
		if err != nil {
			return err
		}
		return store.Ping(ctx)
	})
	healthHandler.Register("postgres", core.Pool.Ping)
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(searchService, suggestions, core.Controller, healthHandler,
		handler.RouterConfig{Service: ServiceName, AdminJWTSecret: cfg.AdminJWTSecret}, logger)
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, admin sync routes are unauthenticated",
			slog.String("environment", cfg.Environment))
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		core:            core,
		redis:           redisClient,
		consumer:        consumer,
		httpServer:      httpServer,
		tracingShutdown: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if err := a.core.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Core holds the dependencies shared by the service and the indexer job:
// the catalog pool, the index handle and the synchronization controller.
type Core struct {
	Pool       *pgxpool.Pool
	Indexes    *index.Lazy
	Controller *indexsync.Controller

	closeIndex func() error
}

// NewCore connects to the catalog and prepares the index handle. The index
// backend itself is contacted on first use.
func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Core, error) {
	if cfg.SlowQueryLog {
		database.SetSlowQueryLogging(slowQueryThreshold, logger)
	}

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	if err := database.RegisterPoolMetrics(pool, ServiceName); err != nil {
		logger.Warn("register catalog pool metrics", slog.String("error", err.Error()))
	}

	factory, closeIndex, err := newIndexFactory(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	indexes := index.NewLazy(factory, cfg.AutoCreateIndex, logger)

	controller := indexsync.NewController(postgres.NewProductStore(pool), indexes, cfg.SyncBatchSize, logger)

	return &Core{Pool: pool, Indexes: indexes, Controller: controller, closeIndex: closeIndex}, nil
}

// Close releases the index and the catalog pool.
func (c *Core) Close() error {
	var err error
	if c.closeIndex != nil {
		if cerr := c.closeIndex(); cerr != nil {
			err = fmt.Errorf("close index: %w", cerr)
		}
	}
	c.Pool.Close()
	return err
}
