// Package relay bridges the authorization page to the background
// arbiter. It runs in the content-script context on pages under the
// authorization path; the page world is untrusted web content, so the
// relay acts only on same-origin, well-formed data messages and answers
// each one with exactly one acknowledgment.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/tripthread/companion/protocol"
)

// Caller-facing error string for a broken runtime channel. The page
// cannot tell this apart from a validation failure, by design.
const messageChannelUnavailable = "Extension is not responding"

// WindowMessage is one event from the page world: the sender's origin
// as reported by the browser, and the raw structured-clone payload.
type WindowMessage struct {
	Origin string
	Data   json.RawMessage
}

// AckSender posts a message into the page world at a target origin.
type AckSender interface {
	PostMessage(targetOrigin string, msg protocol.AckMessage) error
}

// RuntimeSender is the relay's side of the runtime channel to the
// background arbiter.
type RuntimeSender interface {
	Send(ctx context.Context, msg protocol.RuntimeMessage) (protocol.Result, error)
}

type Config struct {
	PageOrigin string
	Runtime    RuntimeSender
	Sender     AckSender
	Logger     glog.Logger
}

type Relay struct {
	pageOrigin string
	runtime    RuntimeSender
	sender     AckSender
	logger     glog.Logger
}

func New(cfg Config) (*Relay, error) {
	origin, err := protocol.NormalizeOrigin(cfg.PageOrigin)
	if err != nil {
		return nil, fmt.Errorf("relay: page origin: %w", err)
	}
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("relay: runtime sender is required")
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("relay: ack sender is required")
	}
	_, logger := glog.Resolve("relay", nil, cfg.Logger)
	return &Relay{
		pageOrigin: origin,
		runtime:    cfg.Runtime,
		sender:     cfg.Sender,
		logger:     glog.Ensure(logger),
	}, nil
}

// HandleWindowMessage processes one page-world event. Cross-origin
// traffic and shape violations are dropped without any response; a
// well-formed authorize request is forwarded to the arbiter and
// acknowledged exactly once, with a runtime-channel failure folded into
// a success=false acknowledgment.
func (r *Relay) HandleWindowMessage(ctx context.Context, event WindowMessage) {
	if r == nil {
		return
	}
	if !protocol.SameOrigin(event.Origin, r.pageOrigin) {
		r.logger.Debug("dropped cross-origin message", "origin", event.Origin)
		return
	}
	decoded, err := protocol.DecodeWindowMessage(event.Data)
	if err != nil {
		r.logger.Debug("dropped malformed message", "error", err)
		return
	}
	msg, ok := decoded.(protocol.DataMessage)
	if !ok {
		// The relay's own acks come back through the same listener.
		return
	}

	result, err := r.runtime.Send(ctx, protocol.TokenReceived{Token: msg.Payload.Token})
	if err != nil {
		r.logger.Warn("runtime channel failed, acknowledging failure", "error", err)
		r.postAck(false, messageChannelUnavailable)
		return
	}
	if result.Success {
		r.postAck(true, "")
		return
	}
	errMessage := messageChannelUnavailable
	if result.Data != nil && result.Data.Error != "" {
		errMessage = result.Data.Error
	}
	r.postAck(false, errMessage)
}

func (r *Relay) postAck(success bool, errMessage string) {
	ack := protocol.NewAckMessage(success, errMessage)
	if err := r.sender.PostMessage(r.pageOrigin, ack); err != nil {
		r.logger.Error("ack delivery failed", "error", err)
	}
}
