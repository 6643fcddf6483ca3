// Package apperr holds the error kinds every entry point converts into
// user-facing state.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRequired means no credential could be obtained for an operation that needs one.
	ErrAuthRequired = errors.New("authentication required")
	// ErrEmptyResult is informational: a query succeeded but matched nothing.
	ErrEmptyResult = errors.New("empty result")
)

// ValidationError rejects user input before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// TransportError covers network failures and non-2xx responses.
// StatusCode is 0 when no response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": transport error"
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage converts err into the inline message a view shows. fallback is
// used for transport failures, e.g. "Failed to load triggers.".
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Reason
	case errors.Is(err, ErrAuthRequired):
		return "Please log in to continue."
	case errors.Is(err, ErrEmptyResult):
		return "No items returned."
	case errors.As(err, &te) && te.Detail != "":
		return te.Detail
	}
	return fallback
}
