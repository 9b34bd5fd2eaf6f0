// Package errors defines the error taxonomy shared by the transport
// layers. Store and domain code wrap one of the sentinels; handlers turn
// whatever reaches them into an AppError with Public.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels identify an error's kind through any amount of wrapping.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrRateLimited    = errors.New("rate limited")
	ErrServiceUnavail = errors.New("service unavailable")
)

type kind struct {
	sentinel error
	code     string
	status   int
}

// kinds is ordered; the first sentinel found in a chain wins.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
}

func kindOf(err error) (kind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k, true
		}
	}
	return kind{}, false
}

// AppError is the client-facing form of an error. Status maps it onto
// HTTP; Code reaches GraphQL clients through Extensions.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Extensions is attached to the error entry of a GraphQL response.
func (e *AppError) Extensions() map[string]any {
	return map[string]any{"code": e.Code}
}

func newError(sentinel error, message string) *AppError {
	k, _ := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports a missing resource by kind and id.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// AlreadyExists reports a uniqueness conflict.
func AlreadyExists(resource, field, value string) *AppError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

func InvalidInput(message string) *AppError { return newError(ErrInvalidInput, message) }
func Unauthorized(message string) *AppError { return newError(ErrUnauthorized, message) }
func Forbidden(message string) *AppError    { return newError(ErrForbidden, message) }
func RateLimited(message string) *AppError  { return newError(ErrRateLimited, message) }

// Internal hides err behind a generic message. The cause stays reachable
// through Unwrap for logging.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	if k, ok := kindOf(err); ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// Public converts any error into the AppError shown to API clients. A
// chain holding neither an AppError nor a known sentinel becomes
// INTERNAL_ERROR so store details never leak.
func Public(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	k, ok := kindOf(err)
	if !ok {
		return Internal(err)
	}
	msg := k.sentinel.Error()
	if k.sentinel == ErrInvalidInput {
		msg = err.Error()
	}
	return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
}
