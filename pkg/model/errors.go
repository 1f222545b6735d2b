package model

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrInvalidInput is returned when a caller supplies no file, no URL or omits a required field.
	// The offending field is attached as goerr value "field".
	ErrInvalidInput = goerr.New("invalid input")

	// ErrPolicyRejected is returned when the admission policy denies a source. Nothing is created.
	ErrPolicyRejected = goerr.New("rejected by admission policy")
)

// UpstreamError is a non-2xx (or malformed 2xx) response from the remote service.
type UpstreamError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// AsUpstream extracts an UpstreamError from err, looking through goerr wrapping.
func AsUpstream(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is an UpstreamError with status 404.
func IsNotFound(err error) bool {
	upErr, ok := AsUpstream(err)
	return ok && upErr.Status == 404
}

// InvalidInput builds an ErrInvalidInput naming the offending field.
func InvalidInput(field, reason string) error {
	return goerr.Wrap(ErrInvalidInput, reason, goerr.V("field", field))
}
