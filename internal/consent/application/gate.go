// Package application evaluates monitoring consent for employees.
package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	billing "github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/felixgeelhaar/vigil/internal/consent/domain"
	workforce "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/felixgeelhaar/vigil/pkg/observability"
	"github.com/google/uuid"
)

// EmployeeLookup resolves an employee by id.
type EmployeeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*workforce.Employee, error)
}

// AgreementLookup resolves the single active, fully signed agreement of an employee.
type AgreementLookup interface {
	FindActiveSigned(ctx context.Context, employeeID uuid.UUID) (*workforce.WorkAgreement, error)
}

// PlanLookup resolves the subscription plan in force for a company.
type PlanLookup interface {
	PlanForCompany(ctx context.Context, companyID uuid.UUID) (billing.Plan, error)
}

// Gate decides whether a capture capability is permitted for a user.
// Lookup failures never surface as errors; they become denied decisions.
type Gate struct {
	employees  EmployeeLookup
	agreements AgreementLookup
	plans      PlanLookup
	audit      domain.AuditLog
	metrics    observability.Metrics
	logger     *slog.Logger
}

// NewGate creates a consent gate. audit may be nil to disable audit logging.
func NewGate(
	employees EmployeeLookup,
	agreements AgreementLookup,
	plans PlanLookup,
	audit domain.AuditLog,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Gate {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		employees:  employees,
		agreements: agreements,
		plans:      plans,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
	}
}

// CheckAutoTimerConsent denies freelancers, who track time manually. Full-time
// employees need the auto timer flag on their agreement.
func (g *Gate) CheckAutoTimerConsent(ctx context.Context, userID uuid.UUID) domain.Decision {
	return g.record(domain.CapabilityAutoTimer, g.checkAgreementFlag(ctx, userID, domain.CapabilityAutoTimer,
		domain.Denied(workforce.EmploymentFreelancer, domain.ReasonManualTrackingOnly),
		func(a *workforce.WorkAgreement) bool { return a.AutoTimerConsent },
	))
}

// CheckScreenshotConsent grants freelancers, who opt in voluntarily. Full-time
// employees need the screenshot flag on their agreement.
func (g *Gate) CheckScreenshotConsent(ctx context.Context, userID uuid.UUID) domain.Decision {
	return g.record(domain.CapabilityScreenshot, g.checkAgreementFlag(ctx, userID, domain.CapabilityScreenshot,
		domain.Granted(workforce.EmploymentFreelancer, domain.ReasonVoluntary),
		func(a *workforce.WorkAgreement) bool { return a.ScreenshotConsent },
	))
}

// CheckActivityTrackingConsent follows the screenshot rules with the activity tracking flag.
func (g *Gate) CheckActivityTrackingConsent(ctx context.Context, userID uuid.UUID) domain.Decision {
	return g.record(domain.CapabilityActivityTracking, g.checkAgreementFlag(ctx, userID, domain.CapabilityActivityTracking,
		domain.Granted(workforce.EmploymentFreelancer, domain.ReasonVoluntary),
		func(a *workforce.WorkAgreement) bool { return a.ActivityTrackingConsent },
	))
}

// CheckScreenRecordingConsent gates on the company plan first, then denies
// freelancers, then requires the screen recording flag. A nil companyID
// means the employee's own company.
func (g *Gate) CheckScreenRecordingConsent(ctx context.Context, userID, companyID uuid.UUID) domain.Decision {
	return g.record(domain.CapabilityScreenRecording, g.checkScreenRecording(ctx, userID, companyID))
}

// Check dispatches to the check for capability.
func (g *Gate) Check(ctx context.Context, capability domain.Capability, userID, companyID uuid.UUID) (domain.Decision, error) {
	switch capability {
	case domain.CapabilityAutoTimer:
		return g.CheckAutoTimerConsent(ctx, userID), nil
	case domain.CapabilityScreenshot:
		return g.CheckScreenshotConsent(ctx, userID), nil
	case domain.CapabilityActivityTracking:
		return g.CheckActivityTrackingConsent(ctx, userID), nil
	case domain.CapabilityScreenRecording:
		return g.CheckScreenRecordingConsent(ctx, userID, companyID), nil
	default:
		return domain.Decision{}, domain.ErrUnknownCapability
	}
}

// LogConsentCheck appends an audit record for a decision. Failures are
// logged and swallowed.
func (g *Gate) LogConsentCheck(
	ctx context.Context,
	userID, companyID uuid.UUID,
	capability domain.Capability,
	decision domain.Decision,
	details map[string]string,
) {
	if g.audit == nil {
		return
	}
	record := domain.NewAuditRecord(userID, companyID, capability, decision, details)
	if _, ok := record.Context["correlation_id"]; !ok {
		if id := observability.CorrelationIDFromContext(ctx); id != "" {
			record.Context["correlation_id"] = id
		}
	}
	if err := g.audit.Append(ctx, record); err != nil {
		g.logger.Error("failed to write consent audit record",
			"user_id", userID,
			"capability", capability,
			"error", err,
		)
	}
}

func (g *Gate) checkScreenRecording(ctx context.Context, userID, companyID uuid.UUID) domain.Decision {
	var employee *workforce.Employee
	if companyID == uuid.Nil {
		emp, denied, ok := g.findEmployee(ctx, userID, domain.CapabilityScreenRecording)
		if !ok {
			return denied
		}
		employee, companyID = emp, emp.CompanyID
	}

	plan, err := g.plans.PlanForCompany(ctx, companyID)
	if err != nil {
		g.logger.Error("plan lookup failed",
			"user_id", userID,
			"company_id", companyID,
			"error", err,
		)
		return domain.Denied("", domain.ReasonLookupFailed)
	}
	if !plan.AllowsScreenRecording() {
		d := domain.Denied("", domain.ReasonPlanNotEligible).WithPlan(plan)
		if employee == nil {
			// Only fills the record; the plan decides the outcome.
			employee, _, _ = g.findEmployee(ctx, userID, domain.CapabilityScreenRecording)
		}
		if employee != nil {
			d.EmploymentType = employee.EmploymentType
		}
		return d
	}

	if employee == nil {
		emp, denied, ok := g.findEmployee(ctx, userID, domain.CapabilityScreenRecording)
		if !ok {
			return denied.WithPlan(plan)
		}
		employee = emp
	}
	if employee.EmploymentType.IsFreelancer() {
		return domain.Denied(employee.EmploymentType, domain.ReasonFullTimeOnly).WithPlan(plan)
	}
	return g.fromAgreement(ctx, employee, domain.CapabilityScreenRecording,
		func(a *workforce.WorkAgreement) bool { return a.ScreenRecordingConsent },
	).WithPlan(plan)
}

func (g *Gate) checkAgreementFlag(
	ctx context.Context,
	userID uuid.UUID,
	capability domain.Capability,
	freelancer domain.Decision,
	flag func(*workforce.WorkAgreement) bool,
) domain.Decision {
	employee, denied, ok := g.findEmployee(ctx, userID, capability)
	if !ok {
		return denied
	}
	if employee.EmploymentType.IsFreelancer() {
		return freelancer
	}
	return g.fromAgreement(ctx, employee, capability, flag)
}

func (g *Gate) findEmployee(ctx context.Context, userID uuid.UUID, capability domain.Capability) (*workforce.Employee, domain.Decision, bool) {
	employee, err := g.employees.FindByID(ctx, userID)
	if err == nil {
		return employee, domain.Decision{}, true
	}
	if errors.Is(err, workforce.ErrEmployeeNotFound) {
		return nil, domain.Denied("", domain.ReasonUserNotFound), false
	}
	g.logger.Error("employee lookup failed",
		"user_id", userID,
		"capability", capability,
		"error", err,
	)
	return nil, domain.Denied("", domain.ReasonLookupFailed), false
}

func (g *Gate) fromAgreement(
	ctx context.Context,
	employee *workforce.Employee,
	capability domain.Capability,
	flag func(*workforce.WorkAgreement) bool,
) domain.Decision {
	agreement, err := g.agreements.FindActiveSigned(ctx, employee.ID)
	switch {
	case err == nil:
	case errors.Is(err, workforce.ErrAgreementNotFound):
		return domain.Denied(employee.EmploymentType, domain.ReasonNoActiveAgreement)
	case errors.Is(err, workforce.ErrAgreementAmbiguous):
		g.logger.Warn("multiple active work agreements, refusing to pick one",
			"user_id", employee.ID,
			"capability", capability,
		)
		return domain.Denied(employee.EmploymentType, domain.ReasonNoActiveAgreement)
	default:
		g.logger.Error("agreement lookup failed",
			"user_id", employee.ID,
			"capability", capability,
			"error", err,
		)
		return domain.Denied(employee.EmploymentType, domain.ReasonLookupFailed)
	}

	if flag(agreement) {
		return domain.Granted(employee.EmploymentType, domain.ReasonGrantedByAgreement).WithAgreement(agreement.ID)
	}
	return domain.Denied(employee.EmploymentType, domain.ReasonNotGrantedAgreement).WithAgreement(agreement.ID)
}

func (g *Gate) record(capability domain.Capability, d domain.Decision) domain.Decision {
	g.metrics.Counter(observability.MetricConsentChecks, 1,
		observability.T("capability", string(capability)),
		observability.T("granted", strconv.FormatBool(d.HasConsent)),
	)
	return d
}
