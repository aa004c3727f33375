package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/auth"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/config"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	handler "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/handler/http"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	redisrepo "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository/redis"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/health"
	pkgkafka "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/kafka"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/middleware"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/tracing"
)

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	storage        *Storage
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	deadLetters    *pkgkafka.DeadLetterQueue
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	healthHandler := health.NewHandler()

	// Storage.
	a.storage, err = OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if a.storage.Pool != nil {
		if cfg.RunMigrations {
			applied, err := a.storage.Migrate(ctx, logger)
			if err != nil {
				return nil, err
			}
			logger.Info("database migrations completed", slog.Int("applied", len(applied)))
		}
		if err := database.RegisterPoolMetrics(reg, a.storage.Pool, cfg.ServiceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		healthHandler.RegisterCritical("postgres", a.storage.Ping)
	}

	// Redis product detail cache and event idempotency.
	var (
		cache       repository.ProductDetailCache
		idempotency pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	)
	if cfg.RedisEnabled() {
		a.rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("db", cfg.RedisDB),
		)
		cache = redisrepo.NewProductCache(a.rdb, cfg.CacheTTL)
		idempotency = pkgkafka.NewRedisIdempotencyStore(a.rdb, cfg.ServiceName+":events:", cfg.IdempotencyTTL)
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		})
	}

	// Kafka producer.
	var publisher pkgkafka.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
		}, logger)
		publisher = a.producer
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Build the dependency graph.
	metrics := service.NewMetrics(reg)
	repos, uow := a.storage.Repos, a.storage.UoW
	categoryService := service.NewCategoryService(repos, uow, cache, eventProducer, metrics, logger)
	productService := service.NewProductService(repos, uow, cache, eventProducer, metrics, logger)
	reviewService := service.NewReviewService(repos, uow, cache, eventProducer, metrics, logger)
	identityService := service.NewIdentityService(uow, cache, eventProducer, metrics, logger)

	// Kafka consumer for identity lifecycle events.
	if cfg.KafkaEnabled {
		a.deadLetters = pkgkafka.NewDeadLetterQueue(cfg.KafkaBrokers, logger)
		identityConsumer := event.NewConsumer(identityService, logger)
		c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaConsumerGroup,
			Topic:    event.TopicUserDeleted,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(idempotency, identityConsumer.Handle, logger), pkgkafka.NewConsumerMetrics(reg), logger).
			WithDeadLetterQueue(a.deadLetters)
		a.consumers = append(a.consumers, c)
		logger.Info("kafka consumers initialized",
			slog.String("group", cfg.KafkaConsumerGroup),
			slog.String("topic", event.TopicUserDeleted),
		)
	}

	validator, err := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway)
	if err != nil {
		return nil, fmt.Errorf("create token validator: %w", err)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		Categories:  categoryService,
		Products:    productService,
		Reviews:     reviewService,
		Tokens:      validator.Validate,
		Health:      healthHandler,
		Metrics:     middleware.NewHTTPMetrics(reg, cfg.ServiceName),
		Gatherer:    reg,
		CORS:        middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		CacheMaxAge: cfg.CacheMaxAge,
		Logger:      logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers in background goroutines.
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka consumers
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producer, Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Stop consuming so no event lands after the stores close.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Release connections.
	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	if a.deadLetters != nil {
		if err := a.deadLetters.Close(); err != nil {
			a.logger.Error("dead-letter writer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.storage != nil {
		a.storage.Close()
	}
	return errors.Join(errs...)
}
