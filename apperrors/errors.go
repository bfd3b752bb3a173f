// Package apperrors defines the error taxonomy of the submission pipeline and its HTTP mapping.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for each rejection kind.
var (
	ErrValidation      = errors.New("validation failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrSpam            = errors.New("spam detected")
	ErrInappropriate   = errors.New("inappropriate content")
	ErrFileRejected    = errors.New("file rejected")
	ErrChallengeFailed = errors.New("challenge failed")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
	ErrUnavailable     = errors.New("service unavailable")
)

// FieldError is a single violated field. Field uses dotted/indexed paths such as "messages[2].content".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is a classified error carrying everything needed to build the HTTP response.
type AppError struct {
	Code      int
	Message   string
	Status    int
	Err       error
	Fields    []FieldError
	ResetTime time.Time
}

func (e *AppError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("%d: %s: %s", e.Code, e.Message, strings.Join(parts, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation reports every violated field of a form.
func Validation(fields []FieldError) *AppError {
	return &AppError{
		Code:    40001,
		Message: "validation failed",
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
		Fields:  fields,
	}
}

// InvalidInput is a request that could not be parsed at all.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    40002,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Spam rejects content flagged by the spam heuristics.
func Spam() *AppError {
	return &AppError{
		Code:    40010,
		Message: "your submission looks like spam; please revise it and try again",
		Status:  http.StatusBadRequest,
		Err:     ErrSpam,
	}
}

// Inappropriate rejects content containing blocklisted language.
func Inappropriate() *AppError {
	return &AppError{
		Code:    40011,
		Message: "your submission contains inappropriate language",
		Status:  http.StatusBadRequest,
		Err:     ErrInappropriate,
	}
}

// ChallengeFailed rejects a submission whose human-verification token did not verify.
func ChallengeFailed() *AppError {
	return &AppError{
		Code:    40012,
		Message: "human verification failed",
		Status:  http.StatusBadRequest,
		Err:     ErrChallengeFailed,
	}
}

// FileRejected lists every invalid upload of a submission.
func FileRejected(fields []FieldError) *AppError {
	return &AppError{
		Code:    40020,
		Message: "one or more files were rejected",
		Status:  http.StatusBadRequest,
		Err:     ErrFileRejected,
		Fields:  fields,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    40401,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Conflict creates a 409 error, used for illegal state transitions.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    40901,
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// RateLimited tells the client when the current window ends.
func RateLimited(resetTime time.Time) *AppError {
	return &AppError{
		Code:      42901,
		Message:   "too many requests, please try again later",
		Status:    http.StatusTooManyRequests,
		Err:       ErrRateLimited,
		ResetTime: resetTime,
	}
}

// Internal wraps an unexpected failure. The message stays generic.
func Internal(err error) *AppError {
	return &AppError{
		Code:    50001,
		Message: "an unexpected error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Unavailable reports that a downstream collaborator cannot serve the request right now.
func Unavailable(err error) *AppError {
	return &AppError{
		Code:    50301,
		Message: "service temporarily unavailable, please try again later",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %v", ErrUnavailable, err),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrSpam),
		errors.Is(err, ErrInappropriate), errors.Is(err, ErrFileRejected), errors.Is(err, ErrChallengeFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
