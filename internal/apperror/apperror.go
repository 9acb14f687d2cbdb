// Package apperror defines the error categories the reporting pipeline
// distinguishes. Handlers map categories to HTTP statuses; services and the
// log store attach them so callers never have to string-match messages.
package apperror

import (
	"errors"
	"fmt"
)

// Category classifies a pipeline failure.
type Category string

const (
	// CategoryNotFound means a referenced entity (typically an
	// organization) does not exist.
	CategoryNotFound Category = "not_found"
	// CategoryInvalidArgument means the request was malformed or out of
	// bounds. Raised before any fetch or cache interaction.
	CategoryInvalidArgument Category = "invalid_argument"
	// CategoryUpstreamFailure means the database (or another dependency)
	// failed. Never cached.
	CategoryUpstreamFailure Category = "upstream_failure"
)

// Error carries a category alongside the underlying cause.
type Error struct {
	Cat     Category
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing entity.
func NotFound(format string, args ...any) error {
	return &Error{Cat: CategoryNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument reports a rejected request parameter.
func InvalidArgument(format string, args ...any) error {
	return &Error{Cat: CategoryInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a dependency failure so it propagates with its cause intact.
func Upstream(err error, format string, args ...any) error {
	return &Error{Cat: CategoryUpstreamFailure, Message: fmt.Sprintf(format, args...), Err: err}
}

// CategoryOf extracts the category from err, or empty when err carries none.
func CategoryOf(err error) Category {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Cat
	}
	return ""
}

// Is reports whether err carries the given category.
func Is(err error, cat Category) bool {
	return CategoryOf(err) == cat
}
