package models

import (
	"errors"
	"fmt"
)

// ValidationKind classifies identifier parsing failures.
type ValidationKind string

const (
	// InvalidFormat is returned when a component has the wrong charset or width.
	InvalidFormat ValidationKind = "invalid_format"
	// TooShort is returned when a SIREN has fewer than 9 characters.
	TooShort ValidationKind = "too_short"
)

// Sentinel errors matched by ValidationError.Is.
var (
	ErrInvalidFormat = errors.New("invalid identifier format")
	ErrTooShort      = errors.New("identifier too short")
)

// ValidationError describes why an identifier component was rejected.
type ValidationError struct {
	Kind      ValidationKind
	Component string
	Value     string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Component, e.Value, e.Reason)
}

// Is lets callers use errors.Is with ErrInvalidFormat and ErrTooShort.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidFormat:
		return e.Kind == InvalidFormat
	case ErrTooShort:
		return e.Kind == TooShort
	}
	return false
}

func invalidFormat(component, value, reason string) *ValidationError {
	return &ValidationError{
		Kind:      InvalidFormat,
		Component: component,
		Value:     value,
		Reason:    reason,
	}
}
