package formhub

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a Formhub server that could not be reached or did not
// answer in time. Callers treat it as "try again later".
var ErrUnavailable = errors.New("formhub unavailable")

// UnavailableError carries the transport failure behind ErrUnavailable.
type UnavailableError struct {
	URL string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("formhub unavailable at %s: %v", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// ParseError reports a response body that is not valid JSON.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed formhub response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusError is returned by form loading when Formhub answers with a
// non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("formhub returned status %d for %s", e.StatusCode, e.URL)
}
