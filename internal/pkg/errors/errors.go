package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure for HTTP mapping and retry policy.
type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindNotFound        Kind = "not_found"
	KindNotReady        Kind = "not_ready"
	KindUpstream        Kind = "upstream"
	KindRateLimit       Kind = "rate_limit"
	KindMalformedSource Kind = "malformed_source"
	KindConfiguration   Kind = "configuration"
	KindStore           Kind = "store_error"
	KindInternal        Kind = "internal"
)

// Error is the taxonomy-carrying error used across the pipelines.
type Error struct {
	Kind       Kind
	Msg        string
	Err        error
	RetryAfter time.Duration // only meaningful for KindRateLimit
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound, KindNotReady:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindMalformedSource:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func BadRequest(msg string) *Error      { return New(KindBadRequest, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func NotReady(msg string) *Error        { return New(KindNotReady, msg) }
func Configuration(msg string) *Error   { return New(KindConfiguration, msg) }
func MalformedSource(msg string) *Error { return New(KindMalformedSource, msg) }

func Upstream(msg string, err error) *Error  { return Wrap(KindUpstream, msg, err) }
func Malformed(msg string, err error) *Error { return Wrap(KindMalformedSource, msg, err) }
func Store(msg string, err error) *Error     { return Wrap(KindStore, msg, err) }
func Internal(msg string, err error) *Error  { return Wrap(KindInternal, msg, err) }

func RateLimited(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Msg: msg, RetryAfter: retryAfter}
}

// KindOf returns the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError extracts the taxonomy error, wrapping untyped errors as Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unclassified error", err)
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
