// Package apperror defines coded application errors. Every error that reaches
// an HTTP client carries a status, a numeric code and a user-facing message.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Generic codes shared by all handlers. Feature-specific codes live next to
// the feature (see filters.Code*).
const (
	CodeValidation       = 40
	CodeValidationFilter = 43
	CodeValidationID     = 46
	CodeUnauthorized     = 40001
	CodeForbidden        = 40005
	CodeNotFound         = 40404
	CodeInternal         = 50000
)

// AppError is an error with an HTTP status and a machine-readable code.
// Err is the wrapped cause and is never sent to the client.
type AppError struct {
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body written for an AppError.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message}
}

func New(status, code int, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(code int, message string, err error) *AppError {
	return New(http.StatusBadRequest, code, message, err)
}

func Forbidden(code int, message string, err error) *AppError {
	return New(http.StatusForbidden, code, message, err)
}

func NotFound(code int, message string, err error) *AppError {
	return New(http.StatusNotFound, code, message, err)
}

func Unauthorized(message string, err error) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, err)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, "Internal server error", err)
}

// Validation builds a 400 with the generic validation code unless code is set.
func Validation(message string, code int) *AppError {
	if code == 0 {
		code = CodeValidation
	}
	return BadRequest(code, message, nil)
}

// ValidationFilter reports request filter keys that are not accepted.
func ValidationFilter(keys []string) *AppError {
	message := "Request filter is invalid"
	switch {
	case len(keys) > 1:
		message += fmt.Sprintf(". Fields '%s' are invalid", strings.Join(keys, ","))
	case len(keys) == 1:
		message += fmt.Sprintf(". Field '%s' is invalid", keys[0])
	}
	return BadRequest(CodeValidationFilter, message, nil)
}

func ValidationID(message string) *AppError {
	return BadRequest(CodeValidationID, "Validation error: "+message, nil)
}

// FromError returns the first AppError in err's chain.
func FromError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status for err; unknown errors map to 500.
func StatusCode(err error) int {
	if appErr, ok := FromError(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Write serialises err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	appErr, ok := FromError(err)
	if !ok {
		appErr = Internal(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr.ToResponse())
}
