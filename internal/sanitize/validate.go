package sanitize

import (
	"errors"
	"fmt"
	"regexp"
)

// Validation errors for identifier checks.
var (
	// ErrInvalidProjectID indicates the project ID format is invalid.
	ErrInvalidProjectID = errors.New("invalid project ID format")

	// ErrInvalidMemoryID indicates the memory ID format is invalid.
	ErrInvalidMemoryID = errors.New("invalid memory ID format")
)

// identifierPattern matches valid sanitized identifiers: lowercase alphanumeric with underscores.
// Max 64 chars to match collection name constraints.
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{0,62}[a-z0-9]?$`)

// memoryIDPattern matches memory ids: UUIDs and sanitized identifiers with
// hyphens allowed, max 128 chars.
var memoryIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidateProjectID checks that a project ID is a valid sanitized identifier.
// Project IDs scope every store query; an invalid one is rejected before any
// backend call is made.
func ValidateProjectID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidProjectID)
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must match ^[a-z0-9][a-z0-9_]{0,63}$", ErrInvalidProjectID, id)
	}
	return nil
}

// ValidateMemoryID checks that a memory ID is shaped like an identifier or UUID.
func ValidateMemoryID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidMemoryID)
	}
	if !memoryIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidMemoryID, id)
	}
	return nil
}
