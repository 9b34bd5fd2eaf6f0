package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/bookcatalog/pkg/database"
	"github.com/utafrali/bookcatalog/pkg/health"
	pkgkafka "github.com/utafrali/bookcatalog/pkg/kafka"
	"github.com/utafrali/bookcatalog/pkg/middleware"
	"github.com/utafrali/bookcatalog/pkg/tracing"
	"github.com/utafrali/bookcatalog/services/catalog/internal/config"
	"github.com/utafrali/bookcatalog/services/catalog/internal/event"
	gqlhandler "github.com/utafrali/bookcatalog/services/catalog/internal/handler/graphql"
	handler "github.com/utafrali/bookcatalog/services/catalog/internal/handler/http"
	"github.com/utafrali/bookcatalog/services/catalog/internal/ratelimit"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository"
	"github.com/utafrali/bookcatalog/services/catalog/internal/repository/memory"
	mongorepo "github.com/utafrali/bookcatalog/services/catalog/internal/repository/mongo"
	"github.com/utafrali/bookcatalog/services/catalog/internal/service"
)

const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	mongoClient    *mongo.Client
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	localLimiter   *ratelimit.LocalLimiter
	shutdownTracer tracing.ShutdownFunc
	httpServer     *http.Server
}

type repositories struct {
	books   repository.BookRepository
	reviews repository.ReviewRepository
	users   repository.UserRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Tracing.
	tracingCfg := tracing.DefaultConfig(handler.ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	healthHandler := health.NewHandler()

	// Storage.
	repos, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		a.abort(ctx)
		return nil, err
	}

	// Redis backs the shared rate limiter and the consumer's dedup store.
	var (
		limiter ratelimit.Limiter
		dedup   pkgkafka.IdempotencyStore
	)
	if cfg.RedisAddr != "" {
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			a.abort(ctx)
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		limiter = ratelimit.NewRedisLimiter(rdb, "catalog:ratelimit:review", cfg.ReviewRateLimit, cfg.ReviewRateWindow())
		dedup = pkgkafka.NewRedisIdempotencyStore(rdb, "catalog:events:seen", idempotencyTTL)
		healthHandler.RegisterNonCritical("redis", database.RedisPinger(rdb))
	} else {
		a.localLimiter = ratelimit.NewLocalLimiter(cfg.ReviewRateLimit, cfg.ReviewRateWindow())
		limiter = a.localLimiter
		dedup = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	}

	// Kafka is optional; without brokers events are dropped.
	var publisher event.Publisher
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Build the dependency graph.
	catalogService := service.NewCatalogService(repos.books, logger)
	reviewService := service.NewReviewService(repos.reviews, repos.books, repos.users, limiter, eventProducer, logger)
	userService := service.NewUserService(repos.users, repos.books, logger)

	if cfg.KafkaEnabled() {
		eventConsumer := event.NewConsumer(catalogService, logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaConsumerGroup,
			Topic:    event.TopicBookImported,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(dedup, eventConsumer.Handle, logger), logger).WithDLQ(a.dlq)
	}

	// GraphQL.
	schema, err := gqlhandler.NewSchema(
		gqlhandler.NewResolver(catalogService, reviewService, userService),
		cfg.GraphQLMaxDepth,
		logger,
	)
	if err != nil {
		a.abort(ctx)
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}

	// HTTP router.
	metrics := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, handler.ServiceName)
	router := handler.NewRouter(
		gqlhandler.NewHandler(schema, logger),
		userService.ResolveSecret,
		healthHandler,
		metrics,
		handler.RouterConfig{CORSOrigins: cfg.CORSOrigins, PprofCIDRs: cfg.PprofCIDRs},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// initStorage selects the repository backend. The mongo backend is a
// critical readiness dependency.
func (a *App) initStorage(ctx context.Context, hh *health.Handler) (repositories, error) {
	if a.cfg.StorageBackend == config.BackendMemory {
		a.logger.Warn("using in-memory storage; data is lost on restart")
		return repositories{
			books:   memory.NewBookRepository(),
			reviews: memory.NewReviewRepository(),
			users:   memory.NewUserRepository(),
		}, nil
	}

	poolStats := database.NewPoolStatsCollector(handler.ServiceName)
	if err := prometheus.Register(poolStats); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return repositories{}, fmt.Errorf("register mongo pool metrics: %w", err)
		}
	}

	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = a.cfg.MongoURI
	mongoCfg.Database = a.cfg.MongoDatabase
	mongoCfg.MaxPoolSize = a.cfg.MongoMaxPoolSize
	mongoCfg.ConnectTimeout = a.cfg.MongoConnectTimeout()
	mongoCfg.CommandMonitor = database.NewCommandTracer(a.cfg.SlowQueryThreshold(), a.logger).Monitor()
	mongoCfg.PoolMonitor = poolStats.Monitor()

	client, err := database.NewMongoClient(ctx, mongoCfg, a.logger)
	if err != nil {
		return repositories{}, fmt.Errorf("connect to mongo: %w", err)
	}
	a.mongoClient = client

	db := client.Database(a.cfg.MongoDatabase)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return repositories{}, fmt.Errorf("ensure mongo indexes: %w", err)
	}
	hh.RegisterCritical("mongo", database.MongoPinger(client))
	a.logger.Info("connected to MongoDB", slog.String("database", a.cfg.MongoDatabase))

	return repositories{
		books:   mongorepo.NewBookRepository(db),
		reviews: mongorepo.NewReviewRepository(db),
		users:   mongorepo.NewUserRepository(db),
	}, nil
}

// Run starts the HTTP server and the import consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.localLimiter != nil {
		go a.localLimiter.Run(ctx)
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

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

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	errs = append(errs, a.closeAll()...)

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// abort undoes a partially built App.
func (a *App) abort(ctx context.Context) {
	a.closeAll()
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}

// closeAll releases every client that has been opened so far.
func (a *App) closeAll() []error {
	var errs []error
	closeOne := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.consumer != nil {
		closeOne("kafka consumer", a.consumer.Close)
	}
	if a.dlq != nil {
		closeOne("kafka dlq", a.dlq.Close)
	}
	if a.producer != nil {
		closeOne("kafka producer", a.producer.Close)
	}
	if a.rdb != nil {
		closeOne("redis", a.rdb.Close)
	}
	if a.mongoClient != nil {
		closeOne("mongo", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.mongoClient.Disconnect(ctx)
		})
	}
	return errs
}
