package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/engine"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/inventory"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	engine         *engine.Engine
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Session identity storage. Redis being down is not fatal: the session
	// manager falls back to an in-memory identity that lasts for the process
	// lifetime.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	var sessionStore session.Store
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, session identity will not survive restarts",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		_ = rdb.Close()
		rdb = nil
		sessionStore = session.NewMemoryStore()
	} else {
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		sessionStore = session.NewRedisStore(rdb)
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// HTTP clients for the inventory service. Reads retry on transient
	// failures; mutations get exactly one attempt. Each path has its own
	// circuit breaker so a flood of failing reads cannot block mutations
	// and vice versa.
	readCfg := httpclient.DefaultConfig()
	readCfg.Timeout = cfg.ReadTimeoutDuration()
	mutationCfg := httpclient.MutationConfig()
	mutationCfg.Timeout = cfg.MutationTimeoutDuration()

	cbSettings := func(name string) httpclient.CircuitBreakerConfig {
		return httpclient.CircuitBreakerConfig{
			Name:         name,
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		}
	}
	reads := httpclient.NewCircuitBreakerClient(httpclient.New(readCfg), cbSettings("inventory-read"), logger)
	writes := httpclient.NewCircuitBreakerClient(httpclient.New(mutationCfg), cbSettings("inventory-write"), logger)
	logger.Info("inventory clients initialized",
		slog.String("url", cfg.InventoryServiceURL),
		slog.Duration("read_timeout", readCfg.Timeout),
		slog.Duration("mutation_timeout", mutationCfg.Timeout),
	)

	// Build the dependency graph.
	invClient := inventory.New(reads, writes, cfg.InventoryServiceURL, logger)
	catalog := store.NewCatalogCache(invClient)
	cartStore := store.NewCartStore(invClient)
	sessions := session.NewManager(sessionStore, logger)
	eventProducer := event.NewProducer(producer, logger)
	eng := engine.New(invClient, catalog, cartStore, sessions, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	if rdb != nil {
		client := rdb
		healthHandler.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	healthHandler.Register("kafka", producer.Ping)

	// The readiness probe goes direct to the inventory service, bypassing
	// the breaker so an open circuit does not mask the service coming back.
	probeClient := httpclient.New(readCfg)
	probeURL := strings.TrimRight(cfg.InventoryServiceURL, "/") + "/products/"
	healthHandler.Register("inventory", func(ctx context.Context) error {
		resp, err := probeClient.Get(ctx, probeURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("inventory returned status %d", resp.StatusCode)
		}
		return nil
	})

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	router := handler.NewRouter(eng, healthHandler, logger, cors)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		producer:       producer,
		engine:         eng,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	// Establish the session identity and warm both caches. A failed warmup
	// is logged inside the engine; the caches fill on the next refresh.
	bootCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	if err := a.engine.Bootstrap(bootCtx); err != nil {
		a.logger.Warn("bootstrap incomplete", slog.String("error", err.Error()))
	}
	cancel()

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	// Close Redis client.
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	// Flush pending traces.
	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
