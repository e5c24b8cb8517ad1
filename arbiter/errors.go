package arbiter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrVerificationRejected    = errors.New("arbiter: credential rejected by server")
	ErrVerificationUnavailable = errors.New("arbiter: verification service unavailable")
	ErrStoreFailure            = errors.New("arbiter: state store failure")
)

// Caller-facing error strings. These cross the runtime channel and end
// up in page UI, so they stay short and generic; detail goes to logs.
const (
	MessageInvalidTokenFormat    = "Invalid token format"
	MessageVerificationFailed    = "Token verification failed"
	MessageAuthorizationNotSaved = "Unable to save authorization"
)

// VerificationError carries the HTTP detail of a failed verifier call.
type VerificationError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *VerificationError) Error() string {
	if e == nil {
		return ErrVerificationUnavailable.Error()
	}
	base := ErrVerificationUnavailable.Error()
	if e.Cause != nil {
		if errors.Is(e.Cause, ErrVerificationRejected) {
			base = ErrVerificationRejected.Error()
		}
	}
	if strings.TrimSpace(e.Message) != "" {
		base += ": " + strings.TrimSpace(e.Message)
	}
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *VerificationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
