// Package apperror defines the machine-stable failure reasons surfaced by
// the conversion and transcription services.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason is a machine-stable failure code returned to callers.
type Reason string

const (
	MissingFile            Reason = "MissingFile"
	InvalidOutputFormat    Reason = "InvalidOutputFormat"
	UnsupportedInputFormat Reason = "UnsupportedInputFormat"
	InvalidParameterValue  Reason = "InvalidParameterValue"
	InvalidFlipDirection   Reason = "InvalidFlipDirection"
	ToolExecutionFailure   Reason = "ToolExecutionFailure"
	ToolTimeout            Reason = "ToolTimeout"
	UnsupportedLanguage    Reason = "UnsupportedLanguage"
	NotFound               Reason = "NotFound"
	InvalidRequest         Reason = "InvalidRequest"
	Internal               Reason = "Internal"
)

// Error carries a Reason, an optional offending field and a human message.
type Error struct {
	Reason  Reason
	Field   string
	Message string
	Err     error
}

// Error formats the failure for logs.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an Error with a formatted message.
func New(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Field returns an InvalidParameterValue error naming field.
func Field(field, format string, args ...interface{}) *Error {
	return &Error{
		Reason:  InvalidParameterValue,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a reason and message to err.
func Wrap(reason Reason, err error, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...), Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ReasonOf returns the reason carried by err, or Internal when err carries
// none. A nil error has no reason.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return Internal
}

// Is reports whether err carries reason.
func Is(err error, reason Reason) bool {
	return err != nil && ReasonOf(err) == reason
}

// HTTPStatus maps a reason to the status code used in responses.
func HTTPStatus(reason Reason) int {
	switch reason {
	case MissingFile, InvalidOutputFormat, UnsupportedInputFormat,
		InvalidParameterValue, InvalidFlipDirection, UnsupportedLanguage,
		InvalidRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case ToolTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
