// Package faults defines the error taxonomy shared by the live and fallback
// transports. Handlers match these with errors.As and translate them into
// wire error envelopes or HTTP statuses.
package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Wire error codes.
const (
	CodeAuthFailed        = "auth_failed"
	CodePermissionDenied  = "permission_denied"
	CodeInvalidRequest    = "invalid_request"
	CodePersistenceFailed = "persistence_failed"
	CodeRateLimited       = "rate_limited"
	CodeTransport         = "transport_failed"
)

// AuthError rejects a handshake outright (bad or missing credential).
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "authentication failed: " + e.Reason }

// PermissionError rejects a single request against a room the caller has no
// qualifying relationship to. The connection stays open.
type PermissionError struct {
	RoomID string
	Reason string
}

func (e *PermissionError) Error() string {
	if e.RoomID == "" {
		return "permission denied: " + e.Reason
	}
	return fmt.Sprintf("permission denied for room %s: %s", e.RoomID, e.Reason)
}

// ValidationError rejects a malformed request. The connection stays open.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: field %q %s", e.Field, e.Reason)
}

// StorageError means a write did not become durable. A message that hits this
// is never broadcast; the sender is told so it can retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// TransportError is a transient read/write failure on the live channel. The
// client retries it transparently; it only surfaces once the retry budget is
// spent.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Code maps an error to its wire error code.
func Code(err error) string {
	var (
		authErr   *AuthError
		permErr   *PermissionError
		validErr  *ValidationError
		storeErr  *StorageError
		transpErr *TransportError
	)
	switch {
	case errors.As(err, &authErr):
		return CodeAuthFailed
	case errors.As(err, &permErr):
		return CodePermissionDenied
	case errors.As(err, &validErr):
		return CodeInvalidRequest
	case errors.As(err, &storeErr):
		return CodePersistenceFailed
	case errors.As(err, &transpErr):
		return CodeTransport
	default:
		return CodePersistenceFailed
	}
}

// HTTPStatus maps an error to the status used by the fallback endpoints.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeAuthFailed:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
