// Package gwerrors provides the structured error type the gateway uses for
// the one taxonomy member in spec §7 allowed to escape as a Go error:
// ConfigurationError (programmer error — missing required field,
// initialisation before use). Every other kind (ParseError, ValidationError,
// PolicyHold, CircuitOpen, ScopeViolation, QuotaExhausted, Transient) is
// recovered locally by its owning component and returned as typed data, not
// as an error — see validate.Report, interceptor.Decision, and
// drift.AlertRecord.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind labels which taxonomy member a GatewayError represents.
type Kind string

const (
	// KindConfiguration marks a programmer error: missing required field,
	// or use of a component before initialisation.
	KindConfiguration Kind = "configuration"
	// KindTransient marks an I/O or lock-timeout failure in a collaborator
	// (store, notifier) that the caller may retry.
	KindTransient Kind = "transient"
)

// GatewayError is a structured failure that preserves message and causal
// context while still implementing the standard error interface. Errors may
// nest via Cause to retain diagnostics across collaborator hops (e.g. a
// store failure wrapped by the Proposal Manager).
type GatewayError struct {
	// Kind classifies the failure per spec §7.
	Kind Kind
	// Message is the human-readable summary of the failure.
	Message string
	// Cause links to the underlying error, enabling chains with errors.Is/As.
	Cause *GatewayError
}

// New constructs a GatewayError with the provided kind and message.
func New(kind Kind, message string) *GatewayError {
	if message == "" {
		message = "gateway error"
	}
	return &GatewayError{Kind: kind, Message: message}
}

// NewWithCause constructs a GatewayError that wraps an underlying error.
func NewWithCause(kind Kind, message string, cause error) *GatewayError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &GatewayError{Kind: kind, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into a GatewayError chain, defaulting
// to KindTransient when the error carries no existing kind.
func FromError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return &GatewayError{
		Kind:    KindTransient,
		Message: err.Error(),
		Cause:   FromError(errors.Unwrap(err)),
	}
}

// Configurationf formats a KindConfiguration error. Configuration errors are
// the only kind a caller should let panic/propagate past a top-level
// initializer — spec §7 requires every other path to degrade to typed data.
func Configurationf(format string, args ...any) *GatewayError {
	return New(KindConfiguration, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error to support errors.Is/As.
func (e *GatewayError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// IsConfiguration reports whether err is (or wraps) a KindConfiguration error.
func IsConfiguration(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == KindConfiguration
}
