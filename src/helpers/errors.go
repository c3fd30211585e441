package helpers

import (
	"context"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type BridgeError struct {
	Message string
	Cause   error
}

func (e *BridgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Distinct categories so callers can errors.As on the failure class
type TransportError struct{ BridgeError }
type DecodeError struct{ BridgeError }
type ResourceError struct{ BridgeError }
type ProtocolError struct{ BridgeError }

func NewTransportError(message string, cause error) error {
	return &TransportError{BridgeError{Message: message, Cause: cause}}
}

func NewDecodeError(message string, cause error) error {
	return &DecodeError{BridgeError{Message: message, Cause: cause}}
}

func NewResourceError(message string, cause error) error {
	return &ResourceError{BridgeError{Message: message, Cause: cause}}
}

func NewProtocolError(message string, cause error) error {
	return &ProtocolError{BridgeError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Backoff
// -----------------------------------------------------------------------------

// SleepContext waits for d or until ctx is done. It returns false when the
// context ended first.
func SleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
