package cli

import (
	"context"

	billingApp "github.com/felixgeelhaar/vigil/internal/billing/application"
	billingDomain "github.com/felixgeelhaar/vigil/internal/billing/domain"
	captureApp "github.com/felixgeelhaar/vigil/internal/capture/application"
	consentApp "github.com/felixgeelhaar/vigil/internal/consent/application"
	consentDomain "github.com/felixgeelhaar/vigil/internal/consent/domain"
	trackingApp "github.com/felixgeelhaar/vigil/internal/tracking/application"
	workforceDomain "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/felixgeelhaar/vigil/pkg/observability"
	"github.com/google/uuid"
)

// AuditReader lists consent audit records of a user, newest first.
type AuditReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*consentDomain.AuditRecord, error)
}

// App holds the CLI application dependencies.
type App struct {
	// Workforce
	EmployeeRepo  workforceDomain.EmployeeRepository
	AgreementRepo workforceDomain.AgreementRepository

	// Billing
	SubscriptionRepo billingDomain.SubscriptionRepository
	BillingService   *billingApp.Service

	// Consent
	ConsentGate *consentApp.Gate
	AuditReader AuditReader

	// Tracking and capture
	TrackingService *trackingApp.Service
	Coordinator     *captureApp.Coordinator

	Health *observability.HealthRegistry
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
