package domain

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrEmptyName             = errors.New("name cannot be empty")
	ErrNameTooLong           = errors.New("name exceeds maximum length")
	ErrInvalidEmploymentType = errors.New("invalid employment type")
)

// MaxNameLength is the maximum allowed name length
const MaxNameLength = 255

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email represents a validated email address.
type Email struct {
	value string
}

// NewEmail normalizes and validates an email address.
func NewEmail(value string) (Email, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || !emailRegex.MatchString(value) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: value}, nil
}

func (e Email) String() string {
	return e.value
}

// Name represents a validated display name.
type Name struct {
	value string
}

// NewName trims and validates a display name.
func NewName(value string) (Name, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Name{}, ErrEmptyName
	}
	if len(value) > MaxNameLength {
		return Name{}, ErrNameTooLong
	}
	return Name{value: value}, nil
}

func (n Name) String() string {
	return n.value
}

// EmploymentType classifies how a worker is engaged by a company.
type EmploymentType string

const (
	EmploymentFreelancer EmploymentType = "freelancer"
	EmploymentFullTime   EmploymentType = "full_time"
)

// ParseEmploymentType validates a stored or user supplied employment type.
func ParseEmploymentType(value string) (EmploymentType, error) {
	switch t := EmploymentType(strings.TrimSpace(strings.ToLower(value))); t {
	case EmploymentFreelancer, EmploymentFullTime:
		return t, nil
	default:
		return "", ErrInvalidEmploymentType
	}
}

// IsFreelancer reports whether the worker is a freelancer.
func (t EmploymentType) IsFreelancer() bool {
	return t == EmploymentFreelancer
}
