// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so callers can distinguish configuration mistakes from
// server rejections and transport failures without string matching.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// AuthFailed indicates a malformed login URL or unsupported auth scheme,
	// detected before any network call.
	AuthFailed Kind = "auth_failed"
	// ServerRejected indicates the server answered the Login transaction
	// with a non-success reply.
	ServerRejected Kind = "server_rejected"
	// TransactionUnavailable indicates the session has no endpoint for the
	// requested transaction (the account lacks that privilege).
	TransactionUnavailable Kind = "transaction_unavailable"
	// RequestFailed indicates a transport-level failure or retry exhaustion.
	RequestFailed Kind = "request_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// HasKind reports whether err or any error in its chain carries the given kind.
func HasKind(err error, kind Kind) bool {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
