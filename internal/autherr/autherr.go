// Package autherr defines the single error shape the rest of the library
// works with. Backend responses arrive in several incompatible encodings;
// everything is normalized here so handler logic never branches on a
// backend-specific payload.
package autherr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument  Code = "invalid-argument"
	CodePermissionDenied Code = "permission-denied"
	CodeInternal         Code = "internal"
	CodeUnknown          Code = "unknown"
	CodeUnavailable      Code = "unavailable"
)

// Error carries the normalized failure: a taxonomy code, the HTTP status the
// backend answered with (0 for local errors), the backend's string sub-code
// when one was present, and a human-readable message.
//
// Retry, when non-nil, re-runs the operation that produced the error on the
// same instance. Because RPC steps are memoized, only the steps that had not
// yet succeeded are re-executed.
type Error struct {
	Code       Code
	HTTPStatus int
	SubCode    string
	Message    string
	Retry      func(ctx context.Context) error
}

func (e *Error) Error() string {
	if e.SubCode != "" {
		return fmt.Sprintf("%s: %s", e.SubCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether retrying without changing input can succeed.
// Local validation failures and authorization denials cannot; transport and
// server-side failures typically can.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeInvalidArgument, CodePermissionDenied:
		return false
	}
	return true
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func PermissionDenied(format string, args ...any) *Error {
	return &Error{Code: CodePermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

func Unknown(format string, args ...any) *Error {
	return &Error{Code: CodeUnknown, Message: fmt.Sprintf(format, args...)}
}

// Wrap coerces err into an *Error. Errors that already carry a normalized
// shape pass through untouched; everything else becomes CodeUnknown.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeUnavailable, Message: err.Error()}
	}
	return &Error{Code: CodeUnknown, Message: err.Error()}
}

// codeForStatus maps an HTTP status to the error taxonomy.
func codeForStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusInternalServerError:
		return CodeInternal
	default:
		if status >= 500 {
			return CodeUnavailable
		}
		return CodeUnknown
	}
}
