package api

import (
	"errors"
	"fmt"
)

// Deterministic validation messages, shown verbatim to the user.
const (
	MsgRequirementRequired = "Please enter a requirement"
	MsgNoTestCases         = "No test cases available. Generate test cases first or enter a requirement."
)

// ValidationError is a client-side rejection raised before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// TransportError is any failure after a request was attempted: the service
// was unreachable, answered with a non-2xx status, or returned a body that
// does not decode.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string { return e.Message }

func (e *TransportError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusCode returns the HTTP status carried by a TransportError, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

func httpStatusMessage(code int) string {
	return fmt.Sprintf("HTTP error! status: %d", code)
}
