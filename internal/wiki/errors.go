package wiki

import (
	"errors"
	"fmt"
)

// Decode errors. A response failing with one of these is discarded whole.
var (
	// ErrMalformedResponse is returned when the body is not a JSON object.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingField is returned when a required member is absent,
	// e.g. a response without "query.pages" or a linkshere entry without
	// "pageid".
	ErrMissingField = errors.New("missing field")

	// ErrUnexpectedType is returned when a member has the wrong JSON type,
	// e.g. a non-numeric "pageid" or a "linkshere" that is not an array.
	ErrUnexpectedType = errors.New("unexpected type")
)

// ErrTransport is returned when the API could not be reached or answered
// with a failure. The request may succeed if retried later.
var ErrTransport = errors.New("transport error")

// APIError is an error object reported by the API itself.
// It matches ErrTransport with errors.Is.
type APIError struct {
	Code string
	Info string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// Unwrap classifies API errors as transport errors.
func (e *APIError) Unwrap() error {
	return ErrTransport
}

// Reason returns a short, stable reason string for logging an error
// returned by this package.
func Reason(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrUnexpectedType):
		return "unexpected_type"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}

// IsDecodeError reports whether err is one of the three decode errors.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnexpectedType)
}
