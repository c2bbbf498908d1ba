// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
//
// Every error is a *goerrors.Error carrying a category, an HTTP status code and a
// stable text code:
//
//   - NotFound: the entity is absent (404)
//   - Unauthorized: token or provider authentication failure (401)
//   - Upstream: backing store or AI agent failure, upstream message embedded (500)
//   - Validation: malformed input rejected at the boundary (400)
//
// Services never retry. Anything that is not an apperr error is treated as an internal
// failure by Status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to every taxonomy error.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUpstream     = "UPSTREAM_FAILURE"
	CodeValidation   = "VALIDATION_FAILURE"
)

// NotFound reports an absent entity.
func NotFound(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(CodeNotFound)
}

// Unauthorized reports an authentication failure.
func Unauthorized(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(CodeUnauthorized)
}

// Validation reports malformed input.
func Validation(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeValidation)
}

// Upstream reports a failure of the backing store or the AI agent. The upstream
// message is appended to msg when cause is non-nil, and cause stays reachable through
// errors.Is and errors.As.
func Upstream(msg string, cause error) error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, cause.Error())
	}
	err := goerrors.New(msg, goerrors.CategoryExternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(CodeUpstream)
	// set directly: goerrors.Wrap flattens *goerrors.Error causes into a clone
	err.Source = cause
	return err
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return hasTextCode(err, CodeNotFound) }

// IsUnauthorized reports whether err is an Unauthorized error.
func IsUnauthorized(err error) bool { return hasTextCode(err, CodeUnauthorized) }

// IsUpstream reports whether err is an Upstream error.
func IsUpstream(err error) bool { return hasTextCode(err, CodeUpstream) }

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool { return hasTextCode(err, CodeValidation) }

// Status returns the HTTP status for err.
func Status(err error) int {
	var e *goerrors.Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *goerrors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

func hasTextCode(err error, code string) bool {
	var e *goerrors.Error
	return errors.As(err, &e) && e.TextCode == code
}
