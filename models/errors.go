package models

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures across the pool, pacing, memory and content
// layers. Callers branch on kind, never on message text.
type ErrorKind int

const (
	// ErrCapacityExceeded means the session pool is full. Allocation is
	// rejected immediately; there is no queue.
	ErrCapacityExceeded ErrorKind = iota
	// ErrNotFound means the requested session or host record does not exist.
	ErrNotFound
	// ErrExpired means the session outlived its TTL and has been evicted.
	ErrExpired
	// ErrBrowserOperation wraps a failure reported by the browser driver.
	ErrBrowserOperation
	// ErrTimeout means the operation hit its deadline. The session survives
	// and may be retried.
	ErrTimeout
	// ErrConfiguration means invalid configuration or stored state. Fatal at
	// startup.
	ErrConfiguration
	// ErrValidation means the input was rejected before any driver call.
	ErrValidation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrCapacityExceeded:
		return "capacity exceeded"
	case ErrNotFound:
		return "not found"
	case ErrExpired:
		return "expired"
	case ErrBrowserOperation:
		return "browser operation failed"
	case ErrTimeout:
		return "timed out"
	case ErrConfiguration:
		return "invalid configuration"
	case ErrValidation:
		return "invalid input"
	default:
		return "unknown error"
	}
}

// Error carries a kind plus the operation and host it belongs to, so logs and
// callers see the same classification.
type Error struct {
	Kind ErrorKind
	Op   string // failing operation, e.g. "pool.allocate"
	Host string // set when the failure is host-scoped
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Host != "" {
		sb.WriteString(e.Host)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error without host scope.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewHostError builds an Error scoped to a host.
func NewHostError(kind ErrorKind, op, host string, err error) *Error {
	return &Error{Kind: kind, Op: op, Host: host, Err: err}
}

// KindOf extracts the kind from err. ok is false when err carries no kind.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsTransient reports whether the failure may succeed on retry. Timeouts and
// driver failures are transient; everything else is terminal.
func IsTransient(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == ErrTimeout || k == ErrBrowserOperation
}
