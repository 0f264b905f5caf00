package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures of the supervision subsystem so callers can
// react without string matching.
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypePortInUse     ErrorType = "port_in_use"
	ErrorTypeProcess       ErrorType = "process"
	ErrorTypeImmediateExit ErrorType = "immediate_exit"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeIO            ErrorType = "io"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRCON          ErrorType = "rcon"
	ErrorTypeInternal      ErrorType = "internal"
)

// DomainError is a structured error carrying a type, a message, an optional
// cause and free-form context values.
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

func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext attaches a context value and returns the error for chaining.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConflict, message, cause)
}

// NewPortInUseError reports a launch precondition failure: one of the
// server's ports is already bound locally. The offending port is recorded
// in the error context under "port".
func NewPortInUseError(port int) *DomainError {
	return NewDomainError(ErrorTypePortInUse,
		fmt.Sprintf("port %d is already in use", port), nil).WithContext("port", port)
}

func NewProcessError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcess, message, cause)
}

// NewImmediateExitError reports a process that terminated within the launch
// grace period. The OS exit status string is recorded under "exit_status".
func NewImmediateExitError(exitStatus string, cause error) *DomainError {
	return NewDomainError(ErrorTypeImmediateExit,
		"process exited during launch grace period", cause).WithContext("exit_status", exitStatus)
}

func NewTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewNetworkError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNetwork, message, cause)
}

func NewRCONError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeRCON, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func isType(err error, t ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == t
}

func IsValidationError(err error) bool    { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool      { return isType(err, ErrorTypeNotFound) }
func IsConflictError(err error) bool      { return isType(err, ErrorTypeConflict) }
func IsPortInUseError(err error) bool     { return isType(err, ErrorTypePortInUse) }
func IsProcessError(err error) bool       { return isType(err, ErrorTypeProcess) }
func IsImmediateExitError(err error) bool { return isType(err, ErrorTypeImmediateExit) }
func IsTimeoutError(err error) bool       { return isType(err, ErrorTypeTimeout) }
func IsIOError(err error) bool            { return isType(err, ErrorTypeIO) }
func IsNetworkError(err error) bool       { return isType(err, ErrorTypeNetwork) }
func IsRCONError(err error) bool          { return isType(err, ErrorTypeRCON) }
func IsInternalError(err error) bool      { return isType(err, ErrorTypeInternal) }
