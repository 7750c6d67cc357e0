package session

import (
	"context"
	"strings"
	"testing"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	billing "github.com/felixgeelhaar/vigil/internal/billing/domain"
	captureApp "github.com/felixgeelhaar/vigil/internal/capture/application"
	consentApp "github.com/felixgeelhaar/vigil/internal/consent/application"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/migrations"
	trackingApp "github.com/felixgeelhaar/vigil/internal/tracking/application"
	"github.com/felixgeelhaar/vigil/internal/tracking/infrastructure/persistence"
	workforce "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freelancers treats every user as a freelancer of one company.
type freelancers struct{}

func (freelancers) FindByID(_ context.Context, id uuid.UUID) (*workforce.Employee, error) {
	return &workforce.Employee{ID: id, EmploymentType: workforce.EmploymentFreelancer}, nil
}

func (freelancers) FindActiveSigned(context.Context, uuid.UUID) (*workforce.WorkAgreement, error) {
	return nil, workforce.ErrAgreementNotFound
}

func (freelancers) PlanForCompany(context.Context, uuid.UUID) (billing.Plan, error) {
	return billing.PlanStarter, nil
}

func resetFlags() {
	startUser = ""
	startCompany = ""
	listCompanies = nil
}

func setupApp(t *testing.T) *cli.App {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.RunSQLiteMigrations(ctx, db))

	bus := eventbus.NewInProcessBus(nil)
	entries := persistence.NewSQLiteTimeEntryRepository(db)
	gate := consentApp.NewGate(freelancers{}, freelancers{}, freelancers{}, nil, nil, nil)
	screenshots := captureApp.NewScheduler(captureApp.ScreenshotConfig(), nil, nil)
	recordings := captureApp.NewScheduler(captureApp.RecordingConfig(), nil, nil)
	coordinator := captureApp.NewCoordinator(screenshots, recordings, gate, entries, nil, nil)
	bus.RegisterConsumer(coordinator)
	t.Cleanup(func() { _ = coordinator.Shutdown(context.Background()) })

	a := &cli.App{
		TrackingService: trackingApp.NewService(entries, bus, nil),
		Coordinator:     coordinator,
	}
	cli.SetApp(a)
	t.Cleanup(func() { cli.SetApp(nil) })
	return a
}

func TestSessionCmds_NoApp(t *testing.T) {
	resetFlags()
	cli.SetApp(nil)
	ctx := context.Background()

	startCmd.SetContext(ctx)
	require.Error(t, startCmd.RunE(startCmd, []string{}))
	stopCmd.SetContext(ctx)
	require.Error(t, stopCmd.RunE(stopCmd, []string{uuid.NewString()}))
	listCmd.SetContext(ctx)
	require.Error(t, listCmd.RunE(listCmd, []string{}))
}

func TestSessionCmds_Lifecycle(t *testing.T) {
	resetFlags()
	setupApp(t)
	ctx := context.Background()
	companyID := uuid.New()

	var output strings.Builder
	startCmd.SetContext(ctx)
	startCmd.SetOut(&output)
	startUser = uuid.NewString()
	startCompany = companyID.String()
	require.NoError(t, startCmd.RunE(startCmd, []string{}))
	assert.Contains(t, output.String(), "Session started: ")
	assert.Contains(t, output.String(), "Screenshots: scheduled")
	assert.Contains(t, output.String(), "Screen recording: not permitted")

	sessionID := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(output.String(), "Session started: "), "\n", 2)[0])

	output.Reset()
	listCmd.SetContext(ctx)
	listCmd.SetOut(&output)
	listCompanies = []string{companyID.String()}
	require.NoError(t, listCmd.RunE(listCmd, []string{}))
	assert.Contains(t, output.String(), sessionID)

	output.Reset()
	listCompanies = []string{uuid.NewString()}
	require.NoError(t, listCmd.RunE(listCmd, []string{}))
	assert.Contains(t, output.String(), "No running sessions.")

	output.Reset()
	stopCmd.SetContext(ctx)
	stopCmd.SetOut(&output)
	require.NoError(t, stopCmd.RunE(stopCmd, []string{sessionID}))
	assert.Contains(t, output.String(), "Session stopped: "+sessionID)

	id, err := uuid.Parse(sessionID)
	require.NoError(t, err)
	screenshots, recordings := cli.GetApp().Coordinator.SessionActive(id)
	assert.False(t, screenshots)
	assert.False(t, recordings)
}

func TestStartCmd_RequiresIDs(t *testing.T) {
	resetFlags()
	setupApp(t)
	startCmd.SetContext(context.Background())

	err := startCmd.RunE(startCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")

	startUser = uuid.NewString()
	err = startCmd.RunE(startCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--company is required")
}

func TestStopCmd_UnknownSession(t *testing.T) {
	resetFlags()
	setupApp(t)
	stopCmd.SetContext(context.Background())

	err := stopCmd.RunE(stopCmd, []string{uuid.NewString()})
	require.Error(t, err)
}
