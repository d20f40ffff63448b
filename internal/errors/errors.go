package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeUnavailable Code = 12
	CodeUnsupported Code = 13

	// Workflow/selection failures. These are terminal for the workflow that
	// raised them but must never take a worker down.
	CodeNoOptions           Code = 20
	CodeNoRoute             Code = 21
	CodeInsufficientFunding Code = 22
	CodeUnknownWorkflow     Code = 23
	CodeStageTimeout        Code = 24
)

// String returns the stable type name carried in stage failure messages and
// API error bodies.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "OK"
	case CodeUsage:
		return "USAGE"
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeUnsupported:
		return "UNSUPPORTED"
	case CodeNoOptions:
		return "NO_OPTIONS_AVAILABLE"
	case CodeNoRoute:
		return "NO_ROUTE_WITHIN_TOLERANCE"
	case CodeInsufficientFunding:
		return "INSUFFICIENT_FUNDING"
	case CodeUnknownWorkflow:
		return "UNKNOWN_WORKFLOW"
	case CodeStageTimeout:
		return "STAGE_TIMEOUT"
	default:
		return "INTERNAL"
	}
}

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf extracts the stable code from any error chain.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

func ExitCode(err error) int {
	return int(CodeOf(err))
}
