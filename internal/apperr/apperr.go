// Package apperr implements the error taxonomy of the pipeline: transient I/O,
// permanent I/O, data validity, engine degradation, and invariant violations.
// Lower layers classify into these before the outermost polling loop or HTTP
// handler decides what to do.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error is an HTTP-addressable error carrying a stable code for clients and
// an optional wrapped cause for logs.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned on request validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIdempotencyConflict signals a duplicate business key with an
	// incompatible payload (spec.md §6.2, 409).
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrDataInvalid marks a permanent, non-retryable data-validity fault
	// (missing/short transcript, malformed upstream payload).
	ErrDataInvalid = errors.New("data invalid")
	// ErrClaimLost signals a CAS update affected zero rows: another worker
	// already owns the lease, or the lease had not yet expired.
	ErrClaimLost = errors.New("claim lost")
)

// HTTPStatusCoder lets a wrapped error carry a transport status so classifiers
// below don't need direct knowledge of the http package.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus implements the classification of spec.md §4.2/§6.1:
// 408/429/5xx are retryable, other 4xx are permanent.
func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsTransient reports whether err represents a transient I/O fault that
// should be abandoned for the current tick and retried on the next, per
// spec.md §7.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var coder HTTPStatusCoder
	if errors.As(err, &coder) {
		return IsRetryableHTTPStatus(coder.HTTPStatusCode())
	}
	return false
}

// IsPermanent reports whether err is a non-retryable 4xx (other than 408/429).
func IsPermanent(err error) bool {
	var coder HTTPStatusCoder
	if errors.As(err, &coder) {
		code := coder.HTTPStatusCode()
		return code >= 400 && code < 500 && !IsRetryableHTTPStatus(code)
	}
	return false
}

// IsDataInvalid reports whether err represents a permanent data-validity
// fault (spec.md §7): no retries, terminal transition.
func IsDataInvalid(err error) bool {
	return errors.Is(err, ErrDataInvalid)
}
