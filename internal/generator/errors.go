package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("invalid generation input")
	// ErrSynthesis matches every SynthesisError.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrAllocation wraps failures of the id allocator backend.
	ErrAllocation = errors.New("id allocation failed")
)

// ValidationError is reported before any allocator state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SynthesisError reports a creature whose documents could not be built.
type SynthesisError struct {
	CopyID int
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize copy id %d: %v", e.CopyID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesis
}

func allocationError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAllocation, op, err)
}
