// Package messaging is the internal runtime channel between the
// extension's execution contexts. Contexts share no memory; a request
// crosses the channel, runs in the receiver's context, and comes back
// as exactly one structured result. A missing receiver is a transport
// failure, reported as an error value and never as a dropped reply.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/tripthread/companion/protocol"
)

const defaultDeliveryTimeout = 5 * time.Second

// HandlerFunc runs in the receiving context. It must return a
// structured result for every request; returned results are the only
// way a reply reaches the sender.
type HandlerFunc func(ctx context.Context, msg protocol.RuntimeMessage) protocol.Result

type Bus struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   glog.Logger
	timeout  time.Duration
}

type BusConfig struct {
	Logger          glog.Logger
	DeliveryTimeout time.Duration
}

func NewBus(cfg BusConfig) *Bus {
	_, logger := glog.Resolve("messaging", nil, cfg.Logger)
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Bus{
		handlers: map[string]HandlerFunc{},
		logger:   glog.Ensure(logger),
		timeout:  timeout,
	}
}

// Register binds a handler to one runtime message type. A second
// registration for the same type is a conflict, not a replacement.
func (b *Bus) Register(messageType string, handler HandlerFunc) error {
	if b == nil {
		return messagingInternal("messaging: bus is nil", nil)
	}
	messageType = strings.TrimSpace(messageType)
	if messageType == "" {
		return messagingBadMessage("messaging: message type is required", nil)
	}
	if handler == nil {
		return messagingBadMessage("messaging: handler is nil", map[string]any{"type": messageType})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[messageType]; exists {
		return messagingWrapError(
			ErrHandlerConflict,
			goerrors.CategoryConflict,
			fmt.Sprintf("messaging: handler already registered for %q", messageType),
			ErrorCodeConflict,
			map[string]any{"type": messageType},
		)
	}
	b.handlers[messageType] = handler
	return nil
}

// Send delivers one request and waits for its single result. The
// handler runs on its own goroutine, standing in for the receiving
// context's event loop. A handler panic is folded into a transport
// error; the sender always gets a result or an error, never an escape.
func (b *Bus) Send(ctx context.Context, msg protocol.RuntimeMessage) (protocol.Result, error) {
	if b == nil {
		return protocol.Result{}, messagingInternal("messaging: bus is nil", nil)
	}
	if msg == nil {
		return protocol.Result{}, messagingBadMessage("messaging: message is required", nil)
	}
	messageType := msg.RuntimeType()

	b.mu.RLock()
	handler, ok := b.handlers[messageType]
	b.mu.RUnlock()
	if !ok {
		return protocol.Result{}, messagingWrapError(
			ErrNoReceiver,
			goerrors.CategoryNotFound,
			fmt.Sprintf("messaging: no receiver for %q", messageType),
			ErrorCodeNoReceiver,
			map[string]any{"type": messageType},
		)
	}

	requestID := uuid.NewString()
	deliveryCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	results := make(chan protocol.Result, 1)
	failures := make(chan error, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				failures <- messagingInternal(
					fmt.Sprintf("messaging: handler panic: %v", recovered),
					map[string]any{"type": messageType, "request_id": requestID},
				)
			}
		}()
		results <- handler(deliveryCtx, msg)
	}()

	select {
	case result := <-results:
		b.logger.Debug("message delivered", "type", messageType, "request_id", requestID, "success", result.Success)
		return result, nil
	case err := <-failures:
		b.logger.Error("message handler failed", "type", messageType, "request_id", requestID, "error", err)
		return protocol.Result{}, err
	case <-deliveryCtx.Done():
		return protocol.Result{}, messagingWrapError(
			deliveryCtx.Err(),
			goerrors.CategoryInternal,
			fmt.Sprintf("messaging: delivery of %q canceled", messageType),
			ErrorCodeInternal,
			map[string]any{"type": messageType, "request_id": requestID},
		)
	}
}

// SendRaw decodes a wire envelope and delivers it. Shape rejections
// come back as errors before any handler runs.
func (b *Bus) SendRaw(ctx context.Context, raw []byte) (protocol.Result, error) {
	msg, err := protocol.DecodeRuntimeMessage(raw)
	if err != nil {
		return protocol.Result{}, messagingWrapError(
			err,
			goerrors.CategoryBadInput,
			"messaging: reject malformed envelope",
			ErrorCodeBadMessage,
			nil,
		)
	}
	return b.Send(ctx, msg)
}
