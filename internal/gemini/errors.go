package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseShape indicates the provider's success contract was
	// violated: no candidate or no text part in a 200 response.
	ErrResponseShape = errors.New("unexpected response shape from AI endpoint")
	// ErrTransport indicates a network-level failure before any status
	// code was received.
	ErrTransport = errors.New("AI endpoint unreachable")
	// ErrTimeout indicates the call exceeded its deadline.
	ErrTimeout = errors.New("AI call timed out")
)

// StatusError is a non-200 response from the AI endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI endpoint returned status %d", e.Code)
}
