// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr is the error vocabulary shared by services and handlers.

An [AppError] pairs a stable code with a message that is safe to show a
client and the HTTP status respond.Error will use. Storage and upstream
failures are attached as Cause; they are logged and never serialized.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes carried in the "code" field of error envelopes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeBadGateway   = "BAD_GATEWAY"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// AppError is a client-facing failure.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	Details    []FieldError `json:"details,omitempty"`
	HTTPStatus int          `json:"-"`

	// Cause is for logs only.
	Cause error `json:"-"`

	// RetryAfter, when positive, becomes the Retry-After header in seconds.
	RetryAfter int `json:"-"`
}

// FieldError is one failed input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Error returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// WithRetryAfter sets the retry hint on e and returns it.
func (e *AppError) WithRetryAfter(seconds int) *AppError {
	e.RetryAfter = seconds
	return e
}

// # 4xx

// NotFound reads "<resource> not found".
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

func Unauthorized(message string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, message)
}

func Conflict(message string) *AppError {
	return newError(CodeConflict, http.StatusConflict, message)
}

// ValidationError is a 400 with optional per-field details.
func ValidationError(message string, details ...FieldError) *AppError {
	ae := newError(CodeValidation, http.StatusBadRequest, message)
	ae.Details = details
	return ae
}

// RateLimited is a 429 that tells the client when to come back.
func RateLimited(retryAfterSeconds int) *AppError {
	message := fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds)
	return newError(CodeRateLimited, http.StatusTooManyRequests, message).WithRetryAfter(retryAfterSeconds)
}

// # 5xx

// BadGateway reports a failed upstream call.
func BadGateway(message string, cause error) *AppError {
	ae := newError(CodeBadGateway, http.StatusBadGateway, message)
	ae.Cause = cause
	return ae
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	ae := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	ae.Cause = cause
	return ae
}

func ServiceUnavailable(message string) *AppError {
	return newError(CodeUnavailable, http.StatusServiceUnavailable, message)
}

// # Inspection

// As returns the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err's chain carries an [*AppError] with code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
