package blockid

import (
	"errors"
	"fmt"
)

// ErrInvalidBlockID matches every *ValidationError via errors.Is.
var ErrInvalidBlockID = errors.New("invalid block id")

// ValidationError reports a malformed block id. Field names the offending
// segment or sub-field.
type ValidationError struct {
	Input  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid block id %q: %s: %s", e.Input, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidBlockID
}

func invalid(input, field, reason string) error {
	return &ValidationError{Input: input, Field: field, Reason: reason}
}
