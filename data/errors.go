package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrorKind is the closed classification attached to every failed operation.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindAlreadyExists      ErrorKind = "already_exists"
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindInvalidArgument    ErrorKind = "invalid_argument"
	KindUnsupported        ErrorKind = "unsupported"
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindCancelled          ErrorKind = "cancelled"
	KindAggregate          ErrorKind = "aggregate"
)

// Sentinel errors matching each kind. A classified *Error reports true for
// errors.Is against the sentinel of its kind, so callers can match without
// depending on the concrete error type.
var (
	ErrNotFound           = errors.New("usal: entity not found")
	ErrAlreadyExists      = errors.New("usal: entity already exists")
	ErrPermissionDenied   = errors.New("usal: permission denied")
	ErrInvalidArgument    = errors.New("usal: invalid argument")
	ErrUnsupported        = errors.New("usal: operation unsupported")
	ErrBackendUnavailable = errors.New("usal: backend unavailable")
	ErrCancelled          = errors.New("usal: operation cancelled")
	ErrAggregate          = errors.New("usal: batch aggregate failure")
)

var sentinels = map[ErrorKind]error{
	KindNotFound:           ErrNotFound,
	KindAlreadyExists:      ErrAlreadyExists,
	KindPermissionDenied:   ErrPermissionDenied,
	KindInvalidArgument:    ErrInvalidArgument,
	KindUnsupported:        ErrUnsupported,
	KindBackendUnavailable: ErrBackendUnavailable,
	KindCancelled:          ErrCancelled,
	KindAggregate:          ErrAggregate,
}

// Error is a classified operation failure. Every accessor operation method
// returns either a successful reply or one of these - never an unclassified
// generic failure.
type Error struct {
	Kind      ErrorKind
	Operation Operation
	Path      string
	Cause     error
}

func NewError(kind ErrorKind, op Operation, path string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Operation: op,
		Path:      path,
		Cause:     cause,
	}
}

func NewNotFound(op Operation, path string, cause error) *Error {
	return NewError(KindNotFound, op, path, cause)
}

func NewAlreadyExists(op Operation, path string, cause error) *Error {
	return NewError(KindAlreadyExists, op, path, cause)
}

func NewPermissionDenied(op Operation, path string, cause error) *Error {
	return NewError(KindPermissionDenied, op, path, cause)
}

func NewInvalidArgument(op Operation, path string, cause error) *Error {
	return NewError(KindInvalidArgument, op, path, cause)
}

func NewUnsupported(op Operation, path string, cause error) *Error {
	return NewError(KindUnsupported, op, path, cause)
}

func NewBackendUnavailable(op Operation, path string, cause error) *Error {
	return NewError(KindBackendUnavailable, op, path, cause)
}

func NewCancelled(op Operation, path string, cause error) *Error {
	return NewError(KindCancelled, op, path, cause)
}

func NewAggregate(op Operation, path string, cause error) *Error {
	return NewError(KindAggregate, op, path, cause)
}

func (e *Error) Error() string {
	text := fmt.Sprintf("usal: %s '%s' failed (%s)", e.Operation, e.Path, e.Kind)
	if e.Path == "" {
		text = fmt.Sprintf("usal: %s failed (%s)", e.Operation, e.Kind)
	}
	if e.Cause != nil {
		text = fmt.Sprintf("%s: %v", text, e.Cause)
	}
	return text
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel error of this kind, so that
// errors.Is(err, data.ErrNotFound) works for any classified error.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Classified reports whether err carries a classification and returns it.
func Classified(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the classification of err, or an empty kind when the error
// is nil or unclassified.
func KindOf(err error) ErrorKind {
	if ce, ok := Classified(err); ok {
		return ce.Kind
	}
	return ""
}

// ClassifyContext maps context cancellation and deadline expiry onto the
// Cancelled kind. Returns nil when err is not a context error.
func ClassifyContext(op Operation, path string, err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCancelled(op, path, err)
	}
	return nil
}

// Errors collects failures from multi-step teardown paths.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
