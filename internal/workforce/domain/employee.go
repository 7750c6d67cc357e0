package domain

import (
	"time"

	"github.com/google/uuid"
)

// Employee is a worker belonging to a company.
type Employee struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Email          string
	Name           string
	EmploymentType EmploymentType
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewEmployee validates the inputs and creates a new employee.
func NewEmployee(companyID uuid.UUID, email, name string, employmentType EmploymentType) (*Employee, error) {
	validEmail, err := NewEmail(email)
	if err != nil {
		return nil, err
	}
	validName, err := NewName(name)
	if err != nil {
		return nil, err
	}
	if _, err := ParseEmploymentType(string(employmentType)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Employee{
		ID:             uuid.New(),
		CompanyID:      companyID,
		Email:          validEmail.String(),
		Name:           validName.String(),
		EmploymentType: employmentType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
