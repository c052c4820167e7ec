// Package errors provides structured error handling for the Weft framework.
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
	// KindInit indicates an initialization error.
	KindInit
	// KindRender indicates a failure in a component's content render.
	KindRender
	// KindDestroy indicates a failure in a destroy-lifecycle callback.
	KindDestroy
	// KindRefresh indicates a failure in a cached-value supplier.
	KindRefresh
	// KindMisuse indicates an API contract violation by the caller.
	KindMisuse
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindRender:
		return "render"
	case KindDestroy:
		return "destroy"
	case KindRefresh:
		return "refresh"
	case KindMisuse:
		return "misuse"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// WeftError represents a structured error in the Weft framework.
type WeftError struct {
	// Op is the operation that failed (e.g., "core.updateContents").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Component is the id of the component involved, if any.
	Component string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *WeftError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s [%s] component=%s: %v", e.Op, e.Kind, e.Component, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *WeftError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "core.Scheduler.Flush").
	Op string
	// Value is the value passed to panic().
	Value any
	// Component is the id of the component involved, if any.
	Component string
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

// MisuseError reports an API contract violation, such as rendering a
// destroyed component.
type MisuseError struct {
	// Op is the operation that was misused.
	Op string
	// Component is the id of the component involved, if any.
	Component string
	// Reason describes the violated contract.
	Reason string
}

func (e *MisuseError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (component %s)", e.Op, e.Reason, e.Component)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Handler receives errors reported by the Weft framework.
type Handler interface {
	// HandleError is called when an error occurs.
	HandleError(err *WeftError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
