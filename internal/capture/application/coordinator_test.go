package application

import (
	"context"
	"sync"
	"testing"
	"time"

	billing "github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/felixgeelhaar/vigil/internal/capture/domain"
	consentApp "github.com/felixgeelhaar/vigil/internal/consent/application"
	consent "github.com/felixgeelhaar/vigil/internal/consent/domain"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	tracking "github.com/felixgeelhaar/vigil/internal/tracking/domain"
	workforce "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDirectory struct {
	employees  map[uuid.UUID]*workforce.Employee
	agreements map[uuid.UUID]*workforce.WorkAgreement
	plans      map[uuid.UUID]billing.Plan
}

func (d *staticDirectory) FindByID(ctx context.Context, id uuid.UUID) (*workforce.Employee, error) {
	if e, ok := d.employees[id]; ok {
		return e, nil
	}
	return nil, workforce.ErrEmployeeNotFound
}

func (d *staticDirectory) FindActiveSigned(ctx context.Context, employeeID uuid.UUID) (*workforce.WorkAgreement, error) {
	if a, ok := d.agreements[employeeID]; ok && a.IsActive() {
		return a, nil
	}
	return nil, workforce.ErrAgreementNotFound
}

func (d *staticDirectory) PlanForCompany(ctx context.Context, companyID uuid.UUID) (billing.Plan, error) {
	return d.plans[companyID], nil
}

type auditTrail struct {
	mu      sync.Mutex
	records []*consent.AuditRecord
}

func (a *auditTrail) Append(ctx context.Context, record *consent.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
	return nil
}

type runningSessions struct {
	entries    []*tracking.TimeEntry
	companyIDs []uuid.UUID
}

func (r *runningSessions) ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*tracking.TimeEntry, error) {
	r.companyIDs = companyIDs
	return r.entries, nil
}

type coordinatorFixture struct {
	dir         *staticDirectory
	audit       *auditTrail
	screenshots *Scheduler
	recordings  *Scheduler
	shots       *recorder
	recs        *recorder
	coordinator *Coordinator
	companyID   uuid.UUID
}

func newCoordinatorFixture(t *testing.T, plan billing.Plan, sessions SessionSource) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		dir: &staticDirectory{
			employees:  map[uuid.UUID]*workforce.Employee{},
			agreements: map[uuid.UUID]*workforce.WorkAgreement{},
			plans:      map[uuid.UUID]billing.Plan{},
		},
		audit:     &auditTrail{},
		shots:     &recorder{},
		recs:      &recorder{},
		companyID: uuid.New(),
	}
	f.dir.plans[f.companyID] = plan

	gate := consentApp.NewGate(f.dir, f.dir, f.dir, f.audit, nil, nil)
	f.screenshots = NewScheduler(fastConfig(domain.KindScreenshot), nil, nil)
	f.recordings = NewScheduler(fastConfig(domain.KindRecording), nil, nil)
	f.screenshots.SetCallback(f.shots.capture)
	f.recordings.SetCallback(f.recs.capture)
	f.coordinator = NewCoordinator(f.screenshots, f.recordings, gate, sessions, nil, nil)
	t.Cleanup(func() { _ = f.coordinator.Shutdown(context.Background()) })
	return f
}

func (f *coordinatorFixture) employee(t workforce.EmploymentType, configure func(*workforce.WorkAgreement)) *workforce.Employee {
	e := &workforce.Employee{ID: uuid.New(), CompanyID: f.companyID, EmploymentType: t}
	f.dir.employees[e.ID] = e
	if configure != nil {
		a := workforce.NewWorkAgreement(e.ID, f.companyID)
		a.Activate()
		configure(a)
		f.dir.agreements[e.ID] = a
	}
	return e
}

func publishEntryEvent(t *testing.T, bus eventbus.Publisher, routingKey string, sessionID, userID, companyID uuid.UUID) {
	t.Helper()
	body, err := eventbus.Encode(routingKey, "", tracking.TimeEntryEvent{
		TimeEntryID: sessionID,
		UserID:      userID,
		CompanyID:   companyID,
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), routingKey, body))
}

func TestCoordinator_ScreenshotSessionLifecycle(t *testing.T) {
	f := newCoordinatorFixture(t, billing.PlanStarter, nil)
	employee := f.employee(workforce.EmploymentFullTime, func(a *workforce.WorkAgreement) {
		a.ScreenshotConsent = true
		a.ScreenRecordingConsent = true
	})

	bus := eventbus.NewInProcessBus(nil)
	bus.RegisterConsumer(f.coordinator)
	sess1 := uuid.New()

	publishEntryEvent(t, bus, tracking.RoutingKeyTimeEntryStarted, sess1, employee.ID, f.companyID)
	require.True(t, f.screenshots.IsTaskActive(sess1.String()))
	assert.False(t, f.recordings.IsTaskActive(sess1.String()), "starter plan has no screen recording")

	require.Eventually(t, func() bool { return f.shots.countFor(sess1.String()) >= 1 }, time.Second, time.Millisecond)
	call := f.shots.last()
	assert.Equal(t, employee.ID.String(), call.userID)
	assert.Equal(t, f.companyID.String(), call.companyID)

	publishEntryEvent(t, bus, tracking.RoutingKeyTimeEntryStopped, sess1, employee.ID, f.companyID)
	assert.False(t, f.screenshots.IsTaskActive(sess1.String()))

	after := f.shots.countFor(sess1.String())
	time.Sleep(5 * fastBounds.Max)
	assert.Equal(t, after, f.shots.countFor(sess1.String()))

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	require.Len(t, f.audit.records, 2)
	assert.Equal(t, consent.CapabilityScreenshot, f.audit.records[0].Capability)
	assert.True(t, f.audit.records[0].Decision.HasConsent)
	assert.Equal(t, consent.CapabilityScreenRecording, f.audit.records[1].Capability)
	assert.Equal(t, consent.ReasonPlanNotEligible, f.audit.records[1].Decision.Reason)
	assert.Equal(t, sess1.String(), f.audit.records[0].Context["session_id"])
}

func TestCoordinator_BusinessPlanStartsRecording(t *testing.T) {
	f := newCoordinatorFixture(t, billing.PlanBusiness, nil)
	employee := f.employee(workforce.EmploymentFullTime, func(a *workforce.WorkAgreement) {
		a.ScreenRecordingConsent = true
	})
	session := uuid.New()

	f.coordinator.StartSession(context.Background(), session, employee.ID, f.companyID, "test")

	assert.False(t, f.screenshots.IsTaskActive(session.String()))
	require.True(t, f.recordings.IsTaskActive(session.String()))
	require.Eventually(t, func() bool { return f.recs.count() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 30*time.Second, f.recs.last().duration)

	require.NoError(t, f.coordinator.StopSession(context.Background(), session))
	assert.False(t, f.recordings.IsTaskActive(session.String()))
}

func TestCoordinator_FreelancerGetsScreenshotsOnly(t *testing.T) {
	f := newCoordinatorFixture(t, billing.PlanBusiness, nil)
	employee := f.employee(workforce.EmploymentFreelancer, nil)
	session := uuid.New()

	f.coordinator.StartSession(context.Background(), session, employee.ID, f.companyID, "test")
	screenshots, recordings := f.coordinator.SessionActive(session)
	assert.True(t, screenshots)
	assert.False(t, recordings)
}

func TestCoordinator_NoConsentNoTasks(t *testing.T) {
	f := newCoordinatorFixture(t, billing.PlanBusiness, nil)
	employee := f.employee(workforce.EmploymentFullTime, nil)
	session := uuid.New()

	f.coordinator.StartSession(context.Background(), session, employee.ID, f.companyID, "test")
	assert.Empty(t, f.screenshots.ListActiveTasks())
	assert.Empty(t, f.recordings.ListActiveTasks())
}

func TestCoordinator_MalformedEventIsAcked(t *testing.T) {
	f := newCoordinatorFixture(t, billing.PlanBusiness, nil)

	err := f.coordinator.Handle(context.Background(), &eventbus.ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: tracking.RoutingKeyTimeEntryStarted,
		Payload:    []byte(`{"time_entry_id": 42}`),
	})
	assert.NoError(t, err)
	assert.Empty(t, f.screenshots.ListActiveTasks())

	err = f.coordinator.Handle(context.Background(), &eventbus.ConsumedEvent{
		RoutingKey: tracking.RoutingKeyTimeEntryStarted,
		Payload:    []byte(`{}`),
	})
	assert.NoError(t, err)
	assert.Empty(t, f.screenshots.ListActiveTasks())
}

func TestCoordinator_Restore(t *testing.T) {
	sessions := &runningSessions{}
	f := newCoordinatorFixture(t, billing.PlanFree, sessions)
	filter := []uuid.UUID{f.companyID}
	f.coordinator.companyIDs = filter

	a := f.employee(workforce.EmploymentFreelancer, nil)
	b := f.employee(workforce.EmploymentFullTime, func(ag *workforce.WorkAgreement) { ag.ScreenshotConsent = true })
	c := f.employee(workforce.EmploymentFullTime, nil)
	for _, e := range []*workforce.Employee{a, b, c} {
		sessions.entries = append(sessions.entries, tracking.NewTimeEntry(e.ID, f.companyID))
	}

	n, err := f.coordinator.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, filter, sessions.companyIDs)

	active := f.screenshots.ListActiveTasks()
	assert.Len(t, active, 2)
	assert.Contains(t, active, sessions.entries[0].ID.String())
	assert.Contains(t, active, sessions.entries[1].ID.String())

	require.NoError(t, f.coordinator.Shutdown(context.Background()))
	assert.Empty(t, f.screenshots.ListActiveTasks())
}

func TestCoordinator_EventTypes(t *testing.T) {
	f := newCoordinatorFixture(t, billing.PlanFree, nil)
	assert.ElementsMatch(t, []string{
		tracking.RoutingKeyTimeEntryStarted,
		tracking.RoutingKeyTimeEntryStopped,
	}, f.coordinator.EventTypes())

	n, err := f.coordinator.Restore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCoordinator_ReconcileStopsEndedSessions(t *testing.T) {
	sessions := &runningSessions{}
	f := newCoordinatorFixture(t, billing.PlanBusiness, sessions)
	employee := f.employee(workforce.EmploymentFullTime, func(a *workforce.WorkAgreement) {
		a.ScreenshotConsent = true
		a.ScreenRecordingConsent = true
	})
	entry := tracking.NewTimeEntry(employee.ID, f.companyID)
	sessions.entries = []*tracking.TimeEntry{entry}
	ctx := context.Background()

	_, err := f.coordinator.Restore(ctx)
	require.NoError(t, err)
	screenshots, recordings := f.coordinator.SessionActive(entry.ID)
	require.True(t, screenshots)
	require.True(t, recordings)

	sessions.entries = nil
	started, stopped, err := f.coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, started)
	assert.Equal(t, 1, stopped)
	screenshots, recordings = f.coordinator.SessionActive(entry.ID)
	assert.False(t, screenshots)
	assert.False(t, recordings)

	started, stopped, err = f.coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, started)
	assert.Zero(t, stopped)
}

func TestCoordinator_ReconcileStartsMissingSessionsOnce(t *testing.T) {
	sessions := &runningSessions{}
	f := newCoordinatorFixture(t, billing.PlanStarter, sessions)
	denied := f.employee(workforce.EmploymentFullTime, nil)
	allowed := f.employee(workforce.EmploymentFullTime, func(a *workforce.WorkAgreement) { a.ScreenshotConsent = true })
	sessions.entries = []*tracking.TimeEntry{
		tracking.NewTimeEntry(denied.ID, f.companyID),
		tracking.NewTimeEntry(allowed.ID, f.companyID),
	}
	ctx := context.Background()

	started, stopped, err := f.coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, started)
	assert.Zero(t, stopped)

	active := f.screenshots.ListActiveTasks()
	assert.Len(t, active, 1)
	assert.Contains(t, active, sessions.entries[1].ID.String())

	f.audit.mu.Lock()
	audited := len(f.audit.records)
	f.audit.mu.Unlock()
	assert.Equal(t, 4, audited)

	// Denied sessions are not re-evaluated on every pass.
	started, stopped, err = f.coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, started)
	assert.Zero(t, stopped)
	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	assert.Len(t, f.audit.records, audited)
}

func TestCoordinator_ReconcileKeepsSessionsOutsideFilter(t *testing.T) {
	sessions := &runningSessions{}
	f := newCoordinatorFixture(t, billing.PlanStarter, sessions)
	f.coordinator.companyIDs = []uuid.UUID{uuid.New()}
	employee := f.employee(workforce.EmploymentFullTime, func(a *workforce.WorkAgreement) { a.ScreenshotConsent = true })
	session := uuid.New()
	ctx := context.Background()

	f.coordinator.StartSession(ctx, session, employee.ID, f.companyID, "test")
	_, stopped, err := f.coordinator.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, stopped)
	assert.True(t, f.screenshots.IsTaskActive(session.String()))
}

func TestReconcileJob(t *testing.T) {
	sessions := &runningSessions{}
	f := newCoordinatorFixture(t, billing.PlanStarter, sessions)
	employee := f.employee(workforce.EmploymentFreelancer, nil)
	entry := tracking.NewTimeEntry(employee.ID, f.companyID)
	sessions.entries = []*tracking.TimeEntry{entry}

	job := NewReconcileJob(f.coordinator, 30*time.Second)
	assert.Equal(t, "capture-reconcile", job.Name())
	assert.Equal(t, "@every 30s", job.Schedule())
	assert.Equal(t, "@every 1s", NewReconcileJob(f.coordinator, 0).Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, f.screenshots.IsTaskActive(entry.ID.String()))
}
