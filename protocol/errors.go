package protocol

import (
	"errors"
	"strings"
)

var (
	ErrUnknownMessageType = errors.New("protocol: unknown message type")
	ErrMalformedMessage   = errors.New("protocol: malformed message")
	ErrInvalidTokenFormat = errors.New("protocol: invalid token format")
	ErrInvalidOrigin      = errors.New("protocol: invalid origin")
	ErrOriginMismatch     = errors.New("protocol: origin mismatch")
	ErrUnsupportedAction  = errors.New("protocol: unsupported action")
	ErrMissingPayload     = errors.New("protocol: missing payload")
)

// MessageError reports why an incoming message was rejected. Rejected
// messages are a distinct variant, never a silently ignored decode.
type MessageError struct {
	Code  string
	Field string
	Cause error
}

func (e *MessageError) Error() string {
	if e == nil {
		return ErrMalformedMessage.Error()
	}
	parts := []string{ErrMalformedMessage.Error()}
	if strings.TrimSpace(e.Code) != "" {
		parts = append(parts, "code="+strings.TrimSpace(e.Code))
	}
	if strings.TrimSpace(e.Field) != "" {
		parts = append(parts, "field="+strings.TrimSpace(e.Field))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *MessageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
