package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/reelhunter/recruiter/internal/config"
	"github.com/reelhunter/recruiter/internal/event"
	handler "github.com/reelhunter/recruiter/internal/handler/http"
	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/internal/notification"
	"github.com/reelhunter/recruiter/internal/pipeline"
	"github.com/reelhunter/recruiter/internal/repository/postgres"
	redisrepo "github.com/reelhunter/recruiter/internal/repository/redis"
	"github.com/reelhunter/recruiter/internal/search"
	"github.com/reelhunter/recruiter/internal/workspace"
	"github.com/reelhunter/recruiter/migrations"
	"github.com/reelhunter/recruiter/pkg/database"
	"github.com/reelhunter/recruiter/pkg/health"
	"github.com/reelhunter/recruiter/pkg/httpclient"
	pkgkafka "github.com/reelhunter/recruiter/pkg/kafka"
	"github.com/reelhunter/recruiter/pkg/middleware"
	"github.com/reelhunter/recruiter/pkg/tracing"
)

const serviceName = "recruiter"

// App wires together all dependencies and runs the recruiter service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	workspaces     *workspace.Manager
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// closers releases resources opened during startup, newest first, when a
// later startup step fails.
type closers []func()

func (c *closers) add(fn func()) {
	*c = append(*c, fn)
}

func (c *closers) closeAll() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
	*c = nil
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Notification templates and the sender identity are checked before any
	// connection is opened.
	composer, err := notification.NewComposer(cfg.EmailCompanyName)
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	from := notification.SenderConfig{
		Address: cfg.EmailSenderAddress,
		Name:    cfg.EmailSenderName,
		ReplyTo: cfg.EmailReplyTo,
	}
	if problems := notification.ValidateConfig(from); len(problems) > 0 {
		return nil, fmt.Errorf("email sender misconfigured: %s", strings.Join(problems, "; "))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var opened closers
	fail := func(err error) (*App, error) {
		opened.closeAll()
		return nil, err
	}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	opened.add(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	})

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fail(fmt.Errorf("connect to postgres: %w", err))
	}
	opened.add(pool.Close)
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fail(fmt.Errorf("run migrations: %w", err))
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQuery > 0 {
		database.SetSlowQueryLogging(cfg.SlowQuery, logger)
	}

	// Initialize Redis for the session cache.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return fail(fmt.Errorf("connect to redis: %w", err))
	}
	opened.add(func() { _ = rdb.Close() })
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	opened.add(func() { _ = producer.Close() })
	events := event.NewProducer(producer, logger)

	// Outbound HTTP. Identity calls are never retried because sign-in and
	// sign-up are not idempotent.
	identityHTTP := httpclient.DefaultConfig()
	identityHTTP.MaxRetries = 0
	identityDoer := httpclient.NewCircuitBreakerClient(httpclient.New(identityHTTP),
		httpclient.DefaultCircuitBreakerConfig("identity"), logger)
	relayDoer := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("email-relay"), logger)

	api := identity.NewAPI(identityDoer, cfg.AuthURL, cfg.AuthAnonKey)
	verifier := identity.NewVerifier(cfg.AuthJWTSecret)

	// Notifications.
	var sender notification.Sender = notification.NewDevSender(logger)
	if cfg.IsProduction() {
		sender = notification.NewRelaySender(relayDoer, cfg.AuthURL, cfg.AuthAnonKey)
	}
	dispatcher := notification.NewDispatcher(sender, from, events, logger)
	logger.Info("email sender selected", slog.String("sender", dispatcher.SenderName()))

	// Build the dependency graph.
	profileRepo := postgres.NewProfileRepository(pool)
	store := pipeline.NewStore(postgres.NewStageRepository(pool), postgres.NewPositionRepository(pool), composer, logger)

	workspaces := workspace.NewManager(workspace.Deps{
		API:             api,
		Sessions:        redisrepo.NewSessionStore(rdb, cfg.SessionTTL),
		Profiles:        profileRepo,
		Store:           store,
		Renderer:        composer,
		Notifier:        dispatcher,
		Events:          events,
		Verifier:        verifier,
		PreserveOnError: cfg.PipelinePreserveOnError,
		IdleTTL:         cfg.WorkspaceIdleTTL,
		Logger:          logger,
	})

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Workspaces: workspaces,
		Store:      store,
		Profiles:   profileRepo,
		Search:     search.NewService(postgres.NewCandidateRepository(pool), logger),
		Composer:   composer,
		Dispatcher: dispatcher,
		Verifier:   verifier,
		Health:     healthHandler,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
			Environment:      cfg.Environment,
		},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          rdb,
		producer:       producer,
		workspaces:     workspaces,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the idle workspace sweeper, and blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.workspaces.Run(sweepCtx)

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
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Workspaces (stop session listeners)
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
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

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Stop every workspace.
	a.workspaces.Close()

	// 4. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close Redis.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 6. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
