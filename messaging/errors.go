package messaging

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrNoReceiver       = errors.New("messaging: no receiver registered")
	ErrChannelClosed    = errors.New("messaging: channel closed")
	ErrHandlerConflict  = errors.New("messaging: handler already registered")
	ErrDeliveryCanceled = errors.New("messaging: delivery canceled")
)

const (
	ErrorCodeBadMessage = "MESSAGING_BAD_MESSAGE"
	ErrorCodeNoReceiver = "MESSAGING_NO_RECEIVER"
	ErrorCodeConflict   = "MESSAGING_HANDLER_CONFLICT"
	ErrorCodeInternal   = "MESSAGING_INTERNAL"
)

func messagingBadMessage(message string, metadata map[string]any) error {
	return messagingError(message, goerrors.CategoryBadInput, ErrorCodeBadMessage, metadata)
}

func messagingInternal(message string, metadata map[string]any) error {
	return messagingError(message, goerrors.CategoryInternal, ErrorCodeInternal, metadata)
}

func messagingError(
	message string,
	category goerrors.Category,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func messagingWrapError(
	source error,
	category goerrors.Category,
	message string,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return messagingError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
