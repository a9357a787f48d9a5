// Package apperr defines the error taxonomy shared by the stores and the HTTP
// layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized covers a missing session and a bad or expired OTP.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is an ownership or role mismatch.
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrRateLimited    = errors.New("rate limited")
	ErrNotImplemented = errors.New("not implemented")
	// ErrInternal marks downstream dispatch or persistence failures.
	ErrInternal = errors.New("internal error")
)

// Status maps an error to the HTTP status the API answers with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable code carried in the error envelope.
func Code(err error) string {
	switch Status(err) {
	case http.StatusOK:
		return ""
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// FromCode is the inverse of Code, used by API clients.
func FromCode(code string) error {
	switch code {
	case "UNAUTHORIZED":
		return ErrUnauthorized
	case "FORBIDDEN":
		return ErrForbidden
	case "NOT_FOUND":
		return ErrNotFound
	case "INVALID_INPUT":
		return ErrInvalidInput
	case "RATE_LIMITED":
		return ErrRateLimited
	case "NOT_IMPLEMENTED":
		return ErrNotImplemented
	default:
		return ErrInternal
	}
}
