package plan

import "errors"

// Sentinel errors for plan validation.
var (
	// ErrMissingField indicates a required field is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrOutOfBounds indicates a numeric field is outside its valid range.
	ErrOutOfBounds = errors.New("value out of range")
	// ErrDuplicateBand indicates two bands share a name.
	ErrDuplicateBand = errors.New("duplicate band name")
)

// ValidationCategory classifies a validation error for programmatic handling.
type ValidationCategory string

const (
	// ValCatMissingField indicates a required field is empty.
	ValCatMissingField ValidationCategory = "missing_field"
	// ValCatBoundsViolation indicates a numeric field is out of valid range.
	ValCatBoundsViolation ValidationCategory = "bounds_violation"
	// ValCatDuplicateBand indicates two bands share a name.
	ValCatDuplicateBand ValidationCategory = "duplicate_band"
)

// ValidationError records a validation problem with source context.
type ValidationError struct {
	Category   ValidationCategory
	SourceFile string
	Field      string
	Err        error
}

// Error returns a human-readable string including source file context.
func (e *ValidationError) Error() string {
	if e.SourceFile == "" {
		return e.Err.Error()
	}
	return e.SourceFile + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
