// Package app wires the worker and CLI dependencies.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	billingApp "github.com/felixgeelhaar/vigil/internal/billing/application"
	billingDomain "github.com/felixgeelhaar/vigil/internal/billing/domain"
	captureApp "github.com/felixgeelhaar/vigil/internal/capture/application"
	captureDomain "github.com/felixgeelhaar/vigil/internal/capture/domain"
	consentApp "github.com/felixgeelhaar/vigil/internal/consent/application"
	consentDomain "github.com/felixgeelhaar/vigil/internal/consent/domain"
	consentPersistence "github.com/felixgeelhaar/vigil/internal/consent/infrastructure/persistence"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/jobs"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/migrations"
	trackingApp "github.com/felixgeelhaar/vigil/internal/tracking/application"
	trackingDomain "github.com/felixgeelhaar/vigil/internal/tracking/domain"
	workforceDomain "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/felixgeelhaar/vigil/pkg/config"
	"github.com/felixgeelhaar/vigil/pkg/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Audit sink names accepted by CONSENT_AUDIT_SINK.
const (
	AuditSinkDatabase = "database"
	AuditSinkRedis    = "redis"
	AuditSinkNone     = "none"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DB          *pgxpool.Pool
	SQLite      *sql.DB
	RedisClient *redis.Client
	Publisher   eventbus.Publisher
	Consumer    eventbus.Consumer
	Metrics     *observability.InMemoryMetrics
	Health      *observability.HealthRegistry
	Jobs        *jobs.Scheduler
	Factory     *RepositoryFactory

	// Repositories
	EmployeeRepo     workforceDomain.EmployeeRepository
	AgreementRepo    workforceDomain.AgreementRepository
	TimeEntryRepo    trackingDomain.TimeEntryRepository
	SubscriptionRepo billingDomain.SubscriptionRepository
	AuditRepo        AuditStore
	ConsentAuditLog  consentDomain.AuditLog
	BillingService   *billingApp.Service
	TrackingService  *trackingApp.Service
	ConsentGate      *consentApp.Gate
	CaptureDispatch  *captureApp.Dispatcher
	Coordinator      *captureApp.Coordinator
	ScreenshotTasks  *captureApp.Scheduler
	RecordingTasks   *captureApp.Scheduler
	CaptureCompanies []uuid.UUID
}

// NewContainer creates a container from configuration. Without a
// DATABASE_URL, or with a SQLite one, it delegates to NewLocalContainer.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if database.DetectDriver(cfg.DatabaseURL) == database.DriverSQLite {
		if cfg.DatabaseURL != "" {
			local := *cfg
			local.SQLitePath = database.SQLitePathFromURL(cfg.DatabaseURL)
			cfg = &local
		}
		return NewLocalContainer(ctx, cfg, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := postgres.Open(ctx, cfg.DatabaseURL, 0)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		DB:      pool,
		Factory: NewPostgresRepositoryFactory(pool),
	}
	if err := c.wire(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewLocalContainer creates a container backed by SQLite at cfg.SQLitePath.
// This provides zero-config operation without requiring PostgreSQL or RabbitMQ.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("running in local mode", "sqlite_path", cfg.SQLitePath)

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		SQLite:  db,
		Factory: NewSQLiteRepositoryFactory(db),
	}
	if err := c.wire(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(ctx context.Context) error {
	cfg := c.Config
	logger := c.Logger

	c.Metrics = observability.NewInMemoryMetrics()
	c.Health = observability.NewHealthRegistry()
	c.Health.Register("database", observability.PingChecker(c.Factory.Ping))

	if err := c.connectRedis(ctx); err != nil {
		return err
	}
	if err := c.connectBus(); err != nil {
		return err
	}

	var err error
	if c.EmployeeRepo, err = c.Factory.EmployeeRepository(); err != nil {
		return err
	}
	if c.AgreementRepo, err = c.Factory.AgreementRepository(); err != nil {
		return err
	}
	if c.TimeEntryRepo, err = c.Factory.TimeEntryRepository(); err != nil {
		return err
	}
	if c.AuditRepo, err = c.Factory.AuditRepository(); err != nil {
		return err
	}
	if c.SubscriptionRepo, err = c.Factory.SubscriptionRepository(); err != nil {
		return err
	}
	c.BillingService = billingApp.NewService(c.SubscriptionRepo)
	c.TrackingService = trackingApp.NewService(c.TimeEntryRepo, c.Publisher, logger)

	c.ConsentAuditLog, err = c.auditSink()
	if err != nil {
		return err
	}
	c.ConsentGate = consentApp.NewGate(c.EmployeeRepo, c.AgreementRepo, c.BillingService, c.ConsentAuditLog, c.Metrics, logger)

	c.ScreenshotTasks = captureApp.NewScheduler(c.screenshotConfig(), c.Metrics, logger)
	c.RecordingTasks = captureApp.NewScheduler(c.recordingConfig(), c.Metrics, logger)
	c.CaptureDispatch = captureApp.NewDispatcher(c.Publisher, captureApp.BreakerConfig{
		FailureThreshold: cfg.CaptureBreakerFailures,
		Timeout:          cfg.CaptureBreakerTimeout,
		MaxRequests:      1,
	}, logger)
	c.ScreenshotTasks.SetCallback(c.CaptureDispatch.CallbackFor(captureDomain.KindScreenshot))
	c.RecordingTasks.SetCallback(c.CaptureDispatch.CallbackFor(captureDomain.KindRecording))

	c.CaptureCompanies, err = parseCompanyIDs(cfg.CaptureCompanyIDs)
	if err != nil {
		return err
	}
	c.Coordinator = captureApp.NewCoordinator(c.ScreenshotTasks, c.RecordingTasks, c.ConsentGate, c.TimeEntryRepo, c.CaptureCompanies, logger)
	c.Consumer.RegisterConsumer(c.Coordinator)

	c.Jobs = jobs.NewScheduler(logger)
	if cfg.CaptureReconcileInterval > 0 {
		if err := c.Jobs.Register(captureApp.NewReconcileJob(c.Coordinator, cfg.CaptureReconcileInterval)); err != nil {
			return err
		}
	}
	if pruner, ok := c.ConsentAuditLog.(consentDomain.AuditPruner); ok {
		job := consentApp.NewAuditRetentionJob(pruner, cfg.ConsentAuditRetentionDays, cfg.ConsentAuditCleanupSchedule, logger)
		if err := c.Jobs.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("invalid Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, continuing without Redis", "error", err)
		return nil
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, continuing without Redis", "error", err)
		return nil
	}
	c.RedisClient = client
	c.Health.Register("redis", observability.PingChecker(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	return nil
}

// connectBus uses RabbitMQ when configured, otherwise an in-process bus so
// time entry events still reach the coordinator.
func (c *Container) connectBus() error {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err == nil {
			var consumer *eventbus.RabbitMQConsumer
			consumer, err = eventbus.NewRabbitMQConsumer(c.Config.RabbitMQURL, eventbus.DefaultQueueName, c.Logger)
			if err == nil {
				c.Publisher = publisher
				c.Consumer = consumer
				return nil
			}
			_ = publisher.Close()
		}
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
	}

	bus := eventbus.NewInProcessBus(c.Logger)
	c.Publisher = bus
	c.Consumer = bus
	return nil
}

func (c *Container) auditSink() (consentDomain.AuditLog, error) {
	switch c.Config.ConsentAuditSink {
	case AuditSinkDatabase, "":
		return c.AuditRepo, nil
	case AuditSinkRedis:
		if c.RedisClient == nil {
			if !c.Config.IsDevelopment() {
				return nil, fmt.Errorf("consent audit sink %q requires REDIS_URL", AuditSinkRedis)
			}
			c.Logger.Warn("Redis audit sink unavailable, writing consent audit to the database")
			return c.AuditRepo, nil
		}
		return consentPersistence.NewRedisAuditLog(c.RedisClient, consentPersistence.DefaultAuditStream), nil
	case AuditSinkNone:
		c.Logger.Warn("consent audit logging is disabled")
		return consentPersistence.NoopAuditLog{}, nil
	default:
		return nil, fmt.Errorf("unknown consent audit sink %q", c.Config.ConsentAuditSink)
	}
}

func (c *Container) screenshotConfig() captureApp.Config {
	cfg := captureApp.ScreenshotConfig()
	cfg.Bounds = captureDomain.IntervalBounds{Min: c.Config.ScreenshotMinInterval, Max: c.Config.ScreenshotMaxInterval}
	cfg.StopTimeout = c.Config.CaptureStopTimeout
	cfg.CallbackTimeout = c.Config.CaptureCallbackTimeout
	return cfg
}

func (c *Container) recordingConfig() captureApp.Config {
	cfg := captureApp.RecordingConfig()
	cfg.Bounds = captureDomain.IntervalBounds{Min: c.Config.RecordingMinInterval, Max: c.Config.RecordingMaxInterval}
	cfg.Duration = c.Config.RecordingDuration
	cfg.StopTimeout = c.Config.CaptureStopTimeout
	cfg.CallbackTimeout = c.Config.CaptureCallbackTimeout
	return cfg
}

func parseCompanyIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid capture company id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases all resources. Capture loops must be stopped first through
// Coordinator.Shutdown.
func (c *Container) Close() {
	if c.Jobs != nil {
		c.Jobs.Stop()
	}
	if c.Consumer != nil {
		if err := c.Consumer.Close(); err != nil {
			c.Logger.Warn("error closing event consumer", "error", err)
		}
	}
	if c.Publisher != nil && any(c.Publisher) != any(c.Consumer) {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			c.Logger.Warn("error closing SQLite connection", "error", err)
		}
	}
}
