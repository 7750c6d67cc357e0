package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	billingDomain "github.com/felixgeelhaar/vigil/internal/billing/domain"
	consentDomain "github.com/felixgeelhaar/vigil/internal/consent/domain"
	consentPersistence "github.com/felixgeelhaar/vigil/internal/consent/infrastructure/persistence"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database"
	workforceDomain "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/felixgeelhaar/vigil/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                      "test",
		SQLitePath:                  filepath.Join(t.TempDir(), "vigil.db"),
		ScreenshotMinInterval:       30 * time.Second,
		ScreenshotMaxInterval:       10 * time.Minute,
		RecordingMinInterval:        time.Minute,
		RecordingMaxInterval:        15 * time.Minute,
		RecordingDuration:           30 * time.Second,
		CaptureStopTimeout:          5 * time.Second,
		CaptureBreakerFailures:      5,
		CaptureBreakerTimeout:       30 * time.Second,
		ConsentAuditSink:            AuditSinkDatabase,
		ConsentAuditRetentionDays:   90,
		ConsentAuditCleanupSchedule: "0 3 * * *",
	}
}

func newLocalContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// seedEmployee stores a full-time employee with an active agreement
// granting screenshots and screen recording, on the given plan.
func seedEmployee(t *testing.T, c *Container, plan billingDomain.Plan) *workforceDomain.Employee {
	t.Helper()
	ctx := context.Background()

	employee, err := workforceDomain.NewEmployee(uuid.New(), "dana@example.com", "Dana", workforceDomain.EmploymentFullTime)
	require.NoError(t, err)
	require.NoError(t, c.EmployeeRepo.Save(ctx, employee))

	agreement := workforceDomain.NewWorkAgreement(employee.ID, employee.CompanyID)
	agreement.ScreenshotConsent = true
	agreement.ScreenRecordingConsent = true
	agreement.Activate()
	require.NoError(t, c.AgreementRepo.Save(ctx, agreement))

	require.NoError(t, c.SubscriptionRepo.Upsert(ctx, billingDomain.NewSubscription(employee.CompanyID, plan)))
	return employee
}

func TestLocalModeContainer(t *testing.T) {
	c := newLocalContainer(t, localConfig(t))

	assert.Equal(t, database.DriverSQLite, c.Factory.Driver())
	assert.NotNil(t, c.SQLite)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.RedisClient)

	assert.NotNil(t, c.EmployeeRepo)
	assert.NotNil(t, c.AgreementRepo)
	assert.NotNil(t, c.TimeEntryRepo)
	assert.NotNil(t, c.ConsentGate)
	assert.NotNil(t, c.Coordinator)
	assert.Same(t, c.AuditRepo, c.ConsentAuditLog)
	assert.Equal(t, []string{"database"}, c.Health.Names())
}

func TestLocalModeContainer_SessionLifecycle(t *testing.T) {
	c := newLocalContainer(t, localConfig(t))
	ctx := context.Background()
	employee := seedEmployee(t, c, billingDomain.PlanBusiness)

	entry, err := c.TrackingService.Start(ctx, employee.ID, employee.CompanyID)
	require.NoError(t, err)

	sessionID := entry.ID.String()
	assert.True(t, c.ScreenshotTasks.IsTaskActive(sessionID))
	assert.True(t, c.RecordingTasks.IsTaskActive(sessionID))

	records, err := c.AuditRepo.ListByUser(ctx, employee.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.True(t, r.Decision.HasConsent)
		assert.Equal(t, sessionID, r.Context["session_id"])
	}

	_, err = c.TrackingService.Stop(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, c.ScreenshotTasks.IsTaskActive(sessionID))
	assert.False(t, c.RecordingTasks.IsTaskActive(sessionID))
}

func TestLocalModeContainer_StarterPlanSkipsRecording(t *testing.T) {
	c := newLocalContainer(t, localConfig(t))
	ctx := context.Background()
	employee := seedEmployee(t, c, billingDomain.PlanStarter)

	entry, err := c.TrackingService.Start(ctx, employee.ID, employee.CompanyID)
	require.NoError(t, err)

	sessionID := entry.ID.String()
	assert.True(t, c.ScreenshotTasks.IsTaskActive(sessionID))
	assert.False(t, c.RecordingTasks.IsTaskActive(sessionID))
	require.NoError(t, c.Coordinator.Shutdown(ctx))
	assert.Empty(t, c.ScreenshotTasks.ListActiveTasks())
}

func TestLocalModeContainer_RestoresRunningSessions(t *testing.T) {
	cfg := localConfig(t)
	ctx := context.Background()

	first := newLocalContainer(t, cfg)
	employee := seedEmployee(t, first, billingDomain.PlanBusiness)
	entry, err := first.TrackingService.Start(ctx, employee.ID, employee.CompanyID)
	require.NoError(t, err)
	require.NoError(t, first.Coordinator.Shutdown(ctx))
	first.Close()

	second := newLocalContainer(t, cfg)
	n, err := second.Coordinator.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, second.ScreenshotTasks.IsTaskActive(entry.ID.String()))
	require.NoError(t, second.Coordinator.Shutdown(ctx))
}

func TestLocalModeContainer_ReconcileFollowsOtherProcess(t *testing.T) {
	cfg := localConfig(t)
	ctx := context.Background()

	cli := newLocalContainer(t, cfg)
	worker := newLocalContainer(t, cfg)
	t.Cleanup(func() {
		_ = worker.Coordinator.Shutdown(context.Background())
		_ = cli.Coordinator.Shutdown(context.Background())
	})
	employee := seedEmployee(t, cli, billingDomain.PlanBusiness)

	entry, err := cli.TrackingService.Start(ctx, employee.ID, employee.CompanyID)
	require.NoError(t, err)
	n, err := worker.Coordinator.Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	screenshots, recordings := worker.Coordinator.SessionActive(entry.ID)
	require.True(t, screenshots)
	require.True(t, recordings)

	// The stop event stays inside the cli process.
	_, err = cli.TrackingService.Stop(ctx, entry.ID)
	require.NoError(t, err)
	running, err := worker.TrackingService.ListRunning(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, running)

	started, stopped, err := worker.Coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, started)
	assert.Equal(t, 1, stopped)
	screenshots, recordings = worker.Coordinator.SessionActive(entry.ID)
	assert.False(t, screenshots)
	assert.False(t, recordings)

	next, err := cli.TrackingService.Start(ctx, employee.ID, employee.CompanyID)
	require.NoError(t, err)
	started, stopped, err = worker.Coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	assert.Zero(t, stopped)
	assert.True(t, worker.ScreenshotTasks.IsTaskActive(next.ID.String()))
	assert.True(t, worker.RecordingTasks.IsTaskActive(next.ID.String()))
}

func TestNewContainer_SQLiteDatabaseURL(t *testing.T) {
	cfg := localConfig(t)
	path := filepath.Join(t.TempDir(), "from-url.db")
	cfg.DatabaseURL = "sqlite://" + path

	c := newLocalContainer(t, cfg)
	assert.NotNil(t, c.SQLite)
	assert.Equal(t, path, c.Config.SQLitePath)
	assert.NotEqual(t, path, cfg.SQLitePath)
}

func TestLocalModeContainer_AuditSinks(t *testing.T) {
	cfg := localConfig(t)
	cfg.ConsentAuditSink = AuditSinkNone
	c := newLocalContainer(t, cfg)
	assert.IsType(t, consentPersistence.NoopAuditLog{}, c.ConsentAuditLog)
	_, prunable := c.ConsentAuditLog.(consentDomain.AuditPruner)
	assert.False(t, prunable)

	cfg = localConfig(t)
	cfg.ConsentAuditSink = "kafka"
	_, err := NewContainer(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestLocalModeContainer_RedisSinkRequiresRedis(t *testing.T) {
	cfg := localConfig(t)
	cfg.ConsentAuditSink = AuditSinkRedis
	_, err := NewContainer(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg.AppEnv = "development"
	c := newLocalContainer(t, cfg)
	assert.Same(t, c.AuditRepo, c.ConsentAuditLog)
}

func TestLocalModeContainer_InvalidCompanyFilter(t *testing.T) {
	cfg := localConfig(t)
	cfg.CaptureCompanyIDs = []string{"not-a-uuid"}
	_, err := NewContainer(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestParseCompanyIDs(t *testing.T) {
	ids, err := parseCompanyIDs(nil)
	require.NoError(t, err)
	assert.Nil(t, ids)

	id := uuid.New()
	ids, err = parseCompanyIDs([]string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)
}

func TestRepositoryFactory_MissingConnection(t *testing.T) {
	f := NewSQLiteRepositoryFactory(nil)
	_, err := f.EmployeeRepository()
	require.Error(t, err)

	f = NewPostgresRepositoryFactory(nil)
	_, err = f.AuditRepository()
	require.Error(t, err)
	require.Error(t, f.Ping(context.Background()))
}
