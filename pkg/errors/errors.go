// Package errors provides structured reporting for failures that cannot be
// returned to the caller, such as a broken native bridge behind a permission
// query that has no error result.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates a malformed payload from native code.
	KindParsing
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// PlatformError is a failure reported while talking to the host.
type PlatformError struct {
	// Op is the operation that failed (e.g., "permissions.check").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Channel is the platform channel name, if applicable.
	Channel string
	// Permission is the permission being queried, if applicable.
	Permission string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *PlatformError) Error() string {
	msg := e.Op + " [" + e.Kind.String() + "]"
	if e.Channel != "" {
		msg += " channel=" + e.Channel
	}
	if e.Permission != "" {
		msg += " permission=" + e.Permission
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "permissions.outcome").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a payload that did not have the expected shape.
type ParseError struct {
	// Channel is the platform channel that delivered the payload.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// Handler receives errors reported through Report and ReportPanic.
type Handler interface {
	// HandleError is called when an error is reported.
	HandleError(err *PlatformError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
