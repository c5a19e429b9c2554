package gateway

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when a send would exceed its class budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// ValidationError reports a malformed outbound payload. It is never retried
// and the payload is never coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Error is a non-2xx response or transport failure from the gateway.
type Error struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("gateway request failed: %v", e.Err)
	case e.Code != 0:
		return fmt.Sprintf("gateway error %d (%s, status %d): %s", e.Code, e.Type, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the upstream status, zero for transport failures.
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}
