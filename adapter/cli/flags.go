package cli

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseID parses a required uuid flag value.
func ParseID(flag, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("--%s is required", flag)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return id, nil
}

// ParseOptionalID parses a uuid flag value, returning uuid.Nil when empty.
func ParseOptionalID(flag, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return ParseID(flag, value)
}
