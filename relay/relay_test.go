package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/tripthread/companion/protocol"
)

type recordingSender struct {
	mu   sync.Mutex
	acks []sentAck
}

type sentAck struct {
	targetOrigin string
	msg          protocol.AckMessage
}

func (s *recordingSender) PostMessage(targetOrigin string, msg protocol.AckMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks = append(s.acks, sentAck{targetOrigin: targetOrigin, msg: msg})
	return nil
}

func (s *recordingSender) sent() []sentAck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentAck(nil), s.acks...)
}

type stubRuntime struct {
	result protocol.Result
	err    error
	calls  int
}

func (r *stubRuntime) Send(_ context.Context, _ protocol.RuntimeMessage) (protocol.Result, error) {
	r.calls++
	return r.result, r.err
}

func newTestRelay(t *testing.T, runtime RuntimeSender, sender AckSender) *Relay {
	t.Helper()
	r, err := New(Config{
		PageOrigin: "https://trips.example",
		Runtime:    runtime,
		Sender:     sender,
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return r
}

func dataMessageBytes(t *testing.T, token string) []byte {
	t.Helper()
	raw, err := json.Marshal(protocol.NewDataMessage(token))
	if err != nil {
		t.Fatalf("marshal data message: %v", err)
	}
	return raw
}

func TestRelay_WellFormedRequestGetsExactlyOneAck(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{result: protocol.Succeeded()}
	r := newTestRelay(t, runtime, sender)

	r.HandleWindowMessage(context.Background(), WindowMessage{
		Origin: "https://trips.example",
		Data:   dataMessageBytes(t, "tt_4f2a_secret"),
	})

	acks := sender.sent()
	if len(acks) != 1 {
		t.Fatalf("expected exactly one ack, got %d", len(acks))
	}
	if !acks[0].msg.Payload.Success {
		t.Fatalf("expected success ack, got %+v", acks[0].msg.Payload)
	}
	if acks[0].msg.Payload.Error != nil {
		t.Fatalf("expected null error on success, got %v", *acks[0].msg.Payload.Error)
	}
	if acks[0].targetOrigin != "https://trips.example" {
		t.Fatalf("ack must target the page origin, got %q", acks[0].targetOrigin)
	}
	if runtime.calls != 1 {
		t.Fatalf("expected one runtime forward, got %d", runtime.calls)
	}
}

func TestRelay_CrossOriginMessageGetsZeroAcks(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{result: protocol.Succeeded()}
	r := newTestRelay(t, runtime, sender)

	r.HandleWindowMessage(context.Background(), WindowMessage{
		Origin: "https://evil.example",
		Data:   dataMessageBytes(t, "tt_4f2a_secret"),
	})

	if len(sender.sent()) != 0 {
		t.Fatalf("cross-origin message must not be acknowledged")
	}
	if runtime.calls != 0 {
		t.Fatalf("cross-origin message must not reach the arbiter")
	}
}

func TestRelay_MalformedShapesDroppedSilently(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{result: protocol.Succeeded()}
	r := newTestRelay(t, runtime, sender)

	payloads := [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"tt_extension_other","payload":{}}`),
		[]byte(`{"type":"tt_extension_data","payload":{"action":"revoke","token":"x"}}`),
		[]byte(`{"type":"tt_extension_data","payload":{"action":"authorize"}}`),
	}
	for _, raw := range payloads {
		r.HandleWindowMessage(context.Background(), WindowMessage{
			Origin: "https://trips.example",
			Data:   raw,
		})
	}

	if len(sender.sent()) != 0 {
		t.Fatalf("malformed messages must not be acknowledged")
	}
	if runtime.calls != 0 {
		t.Fatalf("malformed messages must not reach the arbiter")
	}
}

func TestRelay_IgnoresItsOwnAcks(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{result: protocol.Succeeded()}
	r := newTestRelay(t, runtime, sender)

	raw, err := json.Marshal(protocol.NewAckMessage(true, ""))
	if err != nil {
		t.Fatalf("marshal ack: %v", err)
	}
	r.HandleWindowMessage(context.Background(), WindowMessage{
		Origin: "https://trips.example",
		Data:   raw,
	})

	if len(sender.sent()) != 0 {
		t.Fatalf("echoed ack must not trigger another ack")
	}
}

func TestRelay_ArbiterFailureAcknowledgedOnce(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{result: protocol.Failure("Invalid token format")}
	r := newTestRelay(t, runtime, sender)

	r.HandleWindowMessage(context.Background(), WindowMessage{
		Origin: "https://trips.example",
		Data:   dataMessageBytes(t, "tt_4f2a_secret"),
	})

	acks := sender.sent()
	if len(acks) != 1 {
		t.Fatalf("expected exactly one ack, got %d", len(acks))
	}
	payload := acks[0].msg.Payload
	if payload.Success {
		t.Fatalf("expected failure ack")
	}
	if payload.Error == nil || *payload.Error != "Invalid token format" {
		t.Fatalf("expected arbiter error to pass through, got %+v", payload)
	}
}

func TestRelay_TransportFailureLooksLikeValidationFailure(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{err: fmt.Errorf("runtime channel down")}
	r := newTestRelay(t, runtime, sender)

	r.HandleWindowMessage(context.Background(), WindowMessage{
		Origin: "https://trips.example",
		Data:   dataMessageBytes(t, "tt_4f2a_secret"),
	})

	acks := sender.sent()
	if len(acks) != 1 {
		t.Fatalf("expected exactly one ack, got %d", len(acks))
	}
	payload := acks[0].msg.Payload
	if payload.Success {
		t.Fatalf("transport failure must acknowledge failure")
	}
	if payload.Error == nil || *payload.Error == "" {
		t.Fatalf("expected a caller-facing error string, got %+v", payload)
	}
}

func TestRelay_OriginNormalizationAppliesToEvents(t *testing.T) {
	sender := &recordingSender{}
	runtime := &stubRuntime{result: protocol.Succeeded()}
	r := newTestRelay(t, runtime, sender)

	r.HandleWindowMessage(context.Background(), WindowMessage{
		Origin: "HTTPS://Trips.Example",
		Data:   dataMessageBytes(t, "tt_4f2a_secret"),
	})

	if len(sender.sent()) != 1 {
		t.Fatalf("expected case-folded origin to match")
	}
}
