// Package apperror defines the error taxonomy shared by every layer of the
// telemetry service plane and the fixed HTTP status/message each kind maps
// to. Handlers at the edge (internal/httpapi) translate an *apperror.Error
// into a response; nothing below that edge ever inspects a status code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one error category from spec.md §7. Kinds are grouped by the
// subsystem that raises them, but the namespace is flat — callers switch on
// Kind directly rather than on a subsystem tag.
type Kind int

const (
	KindUnknown Kind = iota

	// common
	KindValidationFailed
	KindInternalServerError
	KindRateLimited
	KindUpdateLimit

	// token
	KindInvalidToken
	KindMissingToken
	KindExpiredToken

	// telemetry
	KindAlreadyStarted
	KindNotActive
	KindCastingError
	KindShutdown
	KindUnsupportedFormat
	KindNoPortAvailable
	KindChampionshipNotFound

	// user / championship administration
	KindAlreadyExists
	KindNotFound
	KindInvalidCredentials
	KindNotVerified
	KindUnauthorized
	KindWrongProvider
	KindAlreadyActive
	KindAlreadyInactive
	KindInvalidUpdate
	KindSelfDelete
)

type taxonomyEntry struct {
	status  int
	message string
}

var taxonomy = map[Kind]taxonomyEntry{
	KindValidationFailed:    {http.StatusBadRequest, "data validation failed"},
	KindInternalServerError: {http.StatusInternalServerError, "internal server error"},
	KindRateLimited:         {http.StatusTooManyRequests, "rate limited"},
	KindUpdateLimit:         {http.StatusTooManyRequests, "update limit exceeded"},

	KindInvalidToken:  {http.StatusUnauthorized, "invalid token"},
	KindMissingToken:  {http.StatusBadRequest, "missing token"},
	KindExpiredToken:  {http.StatusBadRequest, "expired token"},

	KindAlreadyStarted:       {http.StatusConflict, "service already started"},
	KindNotActive:            {http.StatusServiceUnavailable, "service not active"},
	KindCastingError:         {http.StatusInternalServerError, "error casting data"},
	KindShutdown:             {http.StatusInternalServerError, "error shutting down service"},
	KindUnsupportedFormat:    {http.StatusBadRequest, "unsupported udp format"},
	KindNoPortAvailable:      {http.StatusServiceUnavailable, "no port available"},
	KindChampionshipNotFound: {http.StatusNotFound, "championship not found"},

	KindAlreadyExists:      {http.StatusConflict, "resource already exists"},
	KindNotFound:           {http.StatusNotFound, "resource not found"},
	KindInvalidCredentials: {http.StatusUnauthorized, "invalid credentials"},
	KindNotVerified:        {http.StatusUnauthorized, "not verified"},
	KindUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	KindWrongProvider:      {http.StatusBadRequest, "using wrong provider"},
	KindAlreadyActive:      {http.StatusBadRequest, "already active"},
	KindAlreadyInactive:    {http.StatusBadRequest, "not active"},
	KindInvalidUpdate:      {http.StatusBadRequest, "invalid update"},
	KindSelfDelete:         {http.StatusBadRequest, "cannot delete yourself"},
}

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Kind  Kind
	cause error
}

func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) entry() taxonomyEntry {
	if entry, ok := taxonomy[e.Kind]; ok {
		return entry
	}
	return taxonomyEntry{http.StatusInternalServerError, "internal server error"}
}

func (e *Error) Error() string {
	msg := e.entry().message
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// StatusCode returns the fixed HTTP status for this error's Kind.
func (e *Error) StatusCode() int { return e.entry().status }

// Message returns the short, detail-free plaintext surfaced to clients.
func (e *Error) Message() string { return e.entry().message }

// StatusCode extracts the HTTP status for any error, defaulting to 500 for
// errors that are not *Error (or don't wrap one).
func StatusCode(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.StatusCode()
	}
	return http.StatusInternalServerError
}

// Message extracts the client-safe message for any error, defaulting to a
// generic internal-error message so internal detail never leaks.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return "internal server error"
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}
