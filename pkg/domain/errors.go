package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a user has no live session in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTransport matches catalog failures where the service could not be reached
// (connection errors, timeouts).
var ErrTransport = errors.New("catalog unreachable")

// ErrProtocol matches catalog failures where the service answered with an
// unexpected status or payload shape.
var ErrProtocol = errors.New("unexpected catalog response")

// FailureKind classifies a CatalogError.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureProtocol
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// CatalogError is the classified failure returned by catalog clients.
// Use errors.Is with ErrTransport or ErrProtocol to branch on the kind.
type CatalogError struct {
	Kind   FailureKind
	Op     string // Catalog operation, e.g. "search_title"
	Status int    // HTTP status when Kind == FailureProtocol and a response arrived
	Err    error
}

// NewTransportError wraps err as a transport failure of op.
func NewTransportError(op string, err error) *CatalogError {
	return &CatalogError{Kind: FailureTransport, Op: op, Err: err}
}

// NewProtocolError wraps err as a protocol failure of op.
func NewProtocolError(op string, status int, err error) *CatalogError {
	return &CatalogError{Kind: FailureProtocol, Op: op, Status: status, Err: err}
}

func (e *CatalogError) Error() string {
	msg := fmt.Sprintf("catalog %s failed (%s)", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransport) and errors.Is(err, ErrProtocol) match by kind.
func (e *CatalogError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == FailureTransport
	case ErrProtocol:
		return e.Kind == FailureProtocol
	}
	return false
}

// Reason returns a short user-facing explanation of a catalog failure.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "the catalog server could not be reached"
	case errors.Is(err, ErrProtocol):
		return "the catalog server returned an unexpected answer"
	default:
		return "something went wrong"
	}
}
