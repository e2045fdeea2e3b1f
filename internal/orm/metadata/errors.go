package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for model building.
var (
	// ErrModelReadOnly is returned when a finalized model is mutated.
	ErrModelReadOnly = errors.New("metadata: model is finalized and read-only")

	// ErrConfigurationConflict is matched by every *ConfigurationConflictError.
	ErrConfigurationConflict = errors.New("metadata: conflicting configuration")

	// ErrValidation is matched by *ValidationErrors returned from FinalizeModel.
	ErrValidation = errors.New("metadata: model validation failed")

	// ErrConventionLoop is recorded when conventions keep producing changes.
	ErrConventionLoop = errors.New("metadata: conventions did not reach a fixpoint")

	// ErrInvalidArgument is returned for empty names or nil arguments.
	ErrInvalidArgument = errors.New("metadata: invalid argument")

	// ErrPropertyNotFound is returned when a named property does not exist.
	ErrPropertyNotFound = errors.New("metadata: property not found")

	// ErrEntityTypeNotFound is returned when an entity type is not part of the model.
	ErrEntityTypeNotFound = errors.New("metadata: entity type not found")
)

// ConfigurationConflictError reports two facts of equal authority that cannot
// both hold. It is returned at the moment of the conflicting call.
type ConfigurationConflictError struct {
	EntityType string
	Member     string
	Message    string
}

// Error implements the error interface
func (e *ConfigurationConflictError) Error() string {
	var b strings.Builder
	b.WriteString("metadata: configuration conflict")
	if e.EntityType != "" {
		b.WriteString(" on ")
		b.WriteString(e.EntityType)
		if e.Member != "" {
			b.WriteString(".")
			b.WriteString(e.Member)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether target is ErrConfigurationConflict.
func (e *ConfigurationConflictError) Is(target error) bool {
	return target == ErrConfigurationConflict
}

func newConflict(entityType, member, format string, args ...any) *ConfigurationConflictError {
	return &ConfigurationConflictError{
		EntityType: entityType,
		Member:     member,
		Message:    fmt.Sprintf(format, args...),
	}
}

// ValidationError represents a finalization error with context
type ValidationError struct {
	EntityType string
	Member     string
	Message    string
	Hint       string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.EntityType != "" {
		b.WriteString(e.EntityType)
		if e.Member != "" {
			b.WriteString(".")
			b.WriteString(e.Member)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// ValidationErrors aggregates every error found while finalizing a model.
type ValidationErrors struct {
	Errors []*ValidationError
}

// Error implements the error interface
func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("model validation failed with %d errors:\n%s",
		len(e.Errors), strings.Join(msgs, "\n"))
}

// Is reports whether target is ErrValidation.
func (e *ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap exposes the individual validation errors to errors.As.
func (e *ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}

// IsConflict reports whether err is a configuration conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConfigurationConflict)
}
