package api

import (
	"errors"
	"fmt"
	"net/http"
)

// SessionExpiredError is returned for any 401. By the time the caller sees it
// the session has already been cleared.
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string {
	return "session expired"
}

// RequestFailedError is any other non-2xx response.
type RequestFailedError struct {
	StatusCode int
	// Detail is the server's {"detail": "..."} message, verbatim.
	Detail    string
	RequestID string
}

func (e *RequestFailedError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed (HTTP %d)", e.StatusCode)
}

// TransportUnavailableError is a failure before any response arrived.
type TransportUnavailableError struct {
	Err error
}

func (e *TransportUnavailableError) Error() string {
	if isContextError(e.Err) {
		return fmt.Sprintf("request aborted: %v", e.Err)
	}
	return fmt.Sprintf("API unreachable: %v", e.Err)
}

func (e *TransportUnavailableError) Unwrap() error {
	return e.Err
}

// IsSessionExpired checks if the error is a session expiry.
func IsSessionExpired(err error) bool {
	var e *SessionExpiredError
	return errors.As(err, &e)
}

// IsRequestFailed checks if the error is a classified HTTP failure.
func IsRequestFailed(err error) bool {
	var e *RequestFailedError
	return errors.As(err, &e)
}

// IsTransportUnavailable checks if the error is a network-level failure.
func IsTransportUnavailable(err error) bool {
	var e *TransportUnavailableError
	return errors.As(err, &e)
}

// IsNotFound checks if the error is a 404.
func IsNotFound(err error) bool {
	var e *RequestFailedError
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// ErrorKind is a machine-readable error classification.
type ErrorKind string

const (
	KindSessionExpired       ErrorKind = "session_expired"
	KindRequestFailed        ErrorKind = "request_failed"
	KindTransportUnavailable ErrorKind = "transport_unavailable"
	KindUnknown              ErrorKind = "unknown"
)

// Kind classifies err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsSessionExpired(err):
		return KindSessionExpired
	case IsRequestFailed(err):
		return KindRequestFailed
	case IsTransportUnavailable(err):
		return KindTransportUnavailable
	default:
		return KindUnknown
	}
}

// UserMessage is the inline message shown for err. Session expiry has none:
// the caller redirects instead.
func UserMessage(err error) string {
	var failed *RequestFailedError
	switch {
	case err == nil, IsSessionExpired(err):
		return ""
	case errors.As(err, &failed) && failed.Detail != "":
		return failed.Detail
	default:
		return "request failed"
	}
}

// StructuredError is the JSON form of an error for --output json.
type StructuredError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// StructuredErrorFromError builds the JSON error form for err.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}
	out := &StructuredError{Kind: Kind(err), Message: err.Error()}
	var failed *RequestFailedError
	if errors.As(err, &failed) {
		out.StatusCode = failed.StatusCode
		out.RequestID = failed.RequestID
	}
	return out
}
