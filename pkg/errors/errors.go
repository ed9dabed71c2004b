package errors

import (
	"errors"
	"fmt"
)

// Error types for classification and handling across the supervisor.
//
// Bind and Launch errors are fatal to service startup and surface to the
// caller of Start. Probe errors are transient and only ever drive the
// lifecycle state machine. ShutdownTimeout marks a grace period overrun that
// escalated to a forced kill.

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeBind            ErrorType = "bind"
	ErrorTypeLaunch          ErrorType = "launch"
	ErrorTypeProbe           ErrorType = "probe"
	ErrorTypeShutdownTimeout ErrorType = "shutdown_timeout"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeIO              ErrorType = "io"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeInternal        ErrorType = "internal"
	ErrorTypeCancelled       ErrorType = "cancelled"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Lifecycle errors

func NewBindError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeBind, message, cause)
}

func NewLaunchError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeLaunch, message, cause)
}

func NewProbeError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProbe, message, cause)
}

func NewShutdownTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeShutdownTimeout, message, cause)
}

// Input and state errors

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewConflictError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConflict, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

// System errors

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewNetworkError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNetwork, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

// Error checking helpers

func isType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errorType
}

func IsBindError(err error) bool {
	return isType(err, ErrorTypeBind)
}

func IsLaunchError(err error) bool {
	return isType(err, ErrorTypeLaunch)
}

func IsProbeError(err error) bool {
	return isType(err, ErrorTypeProbe)
}

func IsShutdownTimeoutError(err error) bool {
	return isType(err, ErrorTypeShutdownTimeout)
}

func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

func IsConflictError(err error) bool {
	return isType(err, ErrorTypeConflict)
}

func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

func IsIOError(err error) bool {
	return isType(err, ErrorTypeIO)
}

func IsNetworkError(err error) bool {
	return isType(err, ErrorTypeNetwork)
}

func IsInternalError(err error) bool {
	return isType(err, ErrorTypeInternal)
}

func IsCancelledError(err error) bool {
	return isType(err, ErrorTypeCancelled)
}

// Error aggregation for bulk operations, such as stopping several components
// during shutdown.
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
