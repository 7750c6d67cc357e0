package domain

import (
	"time"

	"github.com/google/uuid"
)

// AgreementStatus is the lifecycle state of a work agreement.
type AgreementStatus string

const (
	AgreementDraft      AgreementStatus = "draft"
	AgreementPending    AgreementStatus = "pending"
	AgreementActive     AgreementStatus = "active"
	AgreementTerminated AgreementStatus = "terminated"
)

// WorkAgreement is a contract between a company admin and an employee
// carrying the per-capability monitoring consent flags.
type WorkAgreement struct {
	ID                      uuid.UUID
	EmployeeID              uuid.UUID
	CompanyID               uuid.UUID
	Status                  AgreementStatus
	AdminSigned             bool
	EmployeeSigned          bool
	AutoTimerConsent        bool
	ScreenshotConsent       bool
	ActivityTrackingConsent bool
	ScreenRecordingConsent  bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// NewWorkAgreement creates an unsigned draft agreement.
func NewWorkAgreement(employeeID, companyID uuid.UUID) *WorkAgreement {
	now := time.Now().UTC()
	return &WorkAgreement{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Status:     AgreementDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsFullySigned reports whether both parties signed.
func (a *WorkAgreement) IsFullySigned() bool {
	return a.AdminSigned && a.EmployeeSigned
}

// IsActive reports whether the agreement is in force.
func (a *WorkAgreement) IsActive() bool {
	return a.Status == AgreementActive && a.IsFullySigned()
}

// Activate signs the agreement on both sides and marks it active.
func (a *WorkAgreement) Activate() {
	a.AdminSigned = true
	a.EmployeeSigned = true
	a.Status = AgreementActive
	a.UpdatedAt = time.Now().UTC()
}

// Terminate ends the agreement. Signatures are kept for the record.
func (a *WorkAgreement) Terminate() {
	a.Status = AgreementTerminated
	a.UpdatedAt = time.Now().UTC()
}
