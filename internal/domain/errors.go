package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClaimConflict means the unit or interval is already held by a
	// non-cancelled claim. Expected under concurrent admins; never retried
	// automatically.
	ErrClaimConflict = errors.New("claim conflict")

	// ErrValidation covers malformed input rejected before the ledger is
	// touched.
	ErrValidation = errors.New("validation error")

	// ErrStorage covers ledger unavailability and commit timeouts.
	ErrStorage = errors.New("storage error")

	ErrClaimNotFound    = errors.New("claim not found")
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInventoryMismatch is raised at startup when two configuration
	// sources disagree about the ticket inventory bound.
	ErrInventoryMismatch = errors.New("ticket inventory size mismatch")
)

// Validationf wraps ErrValidation with a formatted cause.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// AmbiguousMatchError is returned when substring resource matching finds more
// than one candidate. It requires administrator disambiguation and is never
// acted on automatically.
type AmbiguousMatchError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous resource match for %q: %s", e.Query, strings.Join(e.Candidates, ", "))
}
