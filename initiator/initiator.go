// Package initiator drives the handshake from the authorization page.
// The server has already rendered a freshly issued credential into the
// page; on user action the initiator posts it toward the content-script
// relay and races the acknowledgment against a fixed timer. The page
// cannot tell "extension absent" from "extension hung", so both funnel
// into the same fallback: the raw credential in a read-only field for
// manual copy.
package initiator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/tripthread/companion/protocol"
)

// DefaultAckTimeout matches the page's reference behavior.
const DefaultAckTimeout = 2000 * time.Millisecond

const fallbackNoResponse = "No response from the extension"

type State string

const (
	StateIdle            State = "idle"
	StatePending         State = "pending"
	StateSuccess         State = "success"
	StateFailureFallback State = "failure_fallback"
)

var ErrSubmitPending = fmt.Errorf("initiator: submit already pending")

// MessagePoster posts the data message into the page world.
type MessagePoster interface {
	PostMessage(targetOrigin string, msg protocol.DataMessage) error
}

// WindowEvent is one message event observed by the page.
type WindowEvent struct {
	Origin string
	Data   json.RawMessage
}

// Outcome is the terminal result of one submit. RawCredential is only
// populated on the fallback path, where the user copies it by hand.
type Outcome struct {
	State         State
	Error         string
	RawCredential string
}

type Config struct {
	PageOrigin string
	Credential string
	AckTimeout time.Duration
	Poster     MessagePoster
	Logger     glog.Logger
}

type Initiator struct {
	config Config
	logger glog.Logger

	mu      sync.Mutex
	state   State
	pending chan protocol.AckPayload
}

func New(cfg Config) (*Initiator, error) {
	origin, err := protocol.NormalizeOrigin(cfg.PageOrigin)
	if err != nil {
		return nil, fmt.Errorf("initiator: page origin: %w", err)
	}
	if strings.TrimSpace(cfg.Credential) == "" {
		return nil, fmt.Errorf("initiator: credential is required")
	}
	if cfg.Poster == nil {
		return nil, fmt.Errorf("initiator: message poster is required")
	}
	timeout := cfg.AckTimeout
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	_, logger := glog.Resolve("initiator", nil, cfg.Logger)
	return &Initiator{
		config: Config{
			PageOrigin: origin,
			Credential: strings.TrimSpace(cfg.Credential),
			AckTimeout: timeout,
			Poster:     cfg.Poster,
		},
		logger: glog.Ensure(logger),
		state:  StateIdle,
	}, nil
}

// State reports the current position in the submit state machine.
func (i *Initiator) State() State {
	if i == nil {
		return StateIdle
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Submit runs one handshake attempt. While an attempt is pending a
// second submit is rejected outright; the protocol tolerates at most
// one in-flight attempt per page and this is where that is enforced.
// From a terminal state an explicit resubmit starts a fresh attempt.
func (i *Initiator) Submit(ctx context.Context) (Outcome, error) {
	if i == nil {
		return Outcome{}, fmt.Errorf("initiator: initiator is nil")
	}

	acks := make(chan protocol.AckPayload, 1)
	i.mu.Lock()
	if i.state == StatePending {
		i.mu.Unlock()
		return Outcome{}, ErrSubmitPending
	}
	i.state = StatePending
	i.pending = acks
	i.mu.Unlock()

	outcome := i.run(ctx, acks)

	i.mu.Lock()
	i.state = outcome.State
	i.pending = nil
	i.mu.Unlock()
	return outcome, nil
}

func (i *Initiator) run(ctx context.Context, acks <-chan protocol.AckPayload) Outcome {
	msg := protocol.NewDataMessage(i.config.Credential)
	if err := i.config.Poster.PostMessage(i.config.PageOrigin, msg); err != nil {
		i.logger.Warn("data message post failed", "error", err)
		return i.fallback(fallbackNoResponse)
	}

	timer := time.NewTimer(i.config.AckTimeout)
	defer timer.Stop()

	select {
	case ack := <-acks:
		if ack.Success {
			i.logger.Info("extension acknowledged authorization")
			return Outcome{State: StateSuccess}
		}
		reason := fallbackNoResponse
		if ack.Error != nil && strings.TrimSpace(*ack.Error) != "" {
			reason = strings.TrimSpace(*ack.Error)
		}
		i.logger.Info("extension rejected authorization", "error", reason)
		return i.fallback(reason)
	case <-timer.C:
		i.logger.Info("acknowledgment timed out")
		return i.fallback(fallbackNoResponse)
	case <-ctx.Done():
		return i.fallback(fallbackNoResponse)
	}
}

func (i *Initiator) fallback(reason string) Outcome {
	return Outcome{
		State:         StateFailureFallback,
		Error:         reason,
		RawCredential: i.config.Credential,
	}
}

// HandleWindowEvent feeds page-observed messages into the pending
// attempt. Only the first same-origin ack reaches the race; everything
// else, including the initiator's own outbound data message echoing
// back, is ignored.
func (i *Initiator) HandleWindowEvent(event WindowEvent) {
	if i == nil {
		return
	}
	if !protocol.SameOrigin(event.Origin, i.config.PageOrigin) {
		return
	}
	decoded, err := protocol.DecodeWindowMessage(event.Data)
	if err != nil {
		return
	}
	ack, ok := decoded.(protocol.AckMessage)
	if !ok {
		return
	}

	i.mu.Lock()
	pending := i.pending
	i.mu.Unlock()
	if pending == nil {
		return
	}
	select {
	case pending <- ack.Payload:
	default:
		// A second ack for the same attempt; the contract owes us at
		// most one, so late arrivals are dropped.
	}
}
