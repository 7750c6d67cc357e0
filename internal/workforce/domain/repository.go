package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrAgreementNotFound  = errors.New("no active work agreement found")
	ErrAgreementAmbiguous = errors.New("multiple active work agreements found")
)

// EmployeeRepository defines persistence for employees.
type EmployeeRepository interface {
	Save(ctx context.Context, employee *Employee) error
	FindByID(ctx context.Context, id uuid.UUID) (*Employee, error)
}

// AgreementRepository defines persistence for work agreements.
type AgreementRepository interface {
	Save(ctx context.Context, agreement *WorkAgreement) error

	// FindActiveSigned returns the single active, fully signed agreement for
	// the employee. It returns ErrAgreementNotFound when there is none and
	// ErrAgreementAmbiguous when more than one qualifies.
	FindActiveSigned(ctx context.Context, employeeID uuid.UUID) (*WorkAgreement, error)
}
