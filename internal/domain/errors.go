package domain

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("invalid crate record")

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	MissingField  ErrorKind = "missing_field"
	OutOfRange    ErrorKind = "out_of_range"
	InvalidEnum   ErrorKind = "invalid_enum"
	InvalidFormat ErrorKind = "invalid_format"
)

// ValidationError reports the first field of a RawRecord that failed its
// constraint. It is user-correctable.
type ValidationError struct {
	Kind  ErrorKind
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("%s is required", e.Field)
	case OutOfRange:
		return fmt.Sprintf("%s out of range: %v", e.Field, e.Value)
	case InvalidEnum:
		return fmt.Sprintf("%s has unrecognized value %q", e.Field, e.Value)
	case InvalidFormat:
		return fmt.Sprintf("%s has invalid format %q", e.Field, e.Value)
	default:
		return fmt.Sprintf("%s invalid", e.Field)
	}
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func missing(field string) error {
	return &ValidationError{Kind: MissingField, Field: field}
}

func outOfRange(field string, v any) error {
	return &ValidationError{Kind: OutOfRange, Field: field, Value: v}
}

func invalidEnum(field string, v any) error {
	return &ValidationError{Kind: InvalidEnum, Field: field, Value: v}
}
