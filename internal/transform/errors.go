package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipRecord marks a response that is dropped without failing the batch.
	ErrSkipRecord = errors.New("record skipped")
	// ErrFieldReused is a mapping bug: a source field was read twice.
	ErrFieldReused = errors.New("source field mapped more than once")
)

type MissingRequiredFieldError struct {
	Field      string
	ResponseID string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("response %s: required field %s is missing or blank", e.ResponseID, e.Field)
}

// InvalidFieldError is a required field whose value cannot be mapped.
type InvalidFieldError struct {
	Field      string
	Value      string
	ResponseID string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("response %s: field %s has invalid value %q", e.ResponseID, e.Field, e.Value)
}
