package protocol

import (
	"encoding/json"
	"strings"
)

// Wire message types for the two channels: page <-> content script
// (postMessage) and content script <-> background worker (runtime
// messaging). The string values are part of the wire contract and
// must not change.
const (
	TypeData = "tt_extension_data"
	TypeAck  = "tt_extension_ack"

	TypeTokenReceived = "tt_token_received"
	TypeDisconnect    = "tt_disconnect"
	TypeQueryState    = "tt_query_state"
)

const ActionAuthorize = "authorize"

// WindowMessage is a decoded page-channel message. Exactly the data and
// ack variants exist; anything else decodes to a MessageError.
type WindowMessage interface {
	windowMessage()
}

type DataPayload struct {
	Action string `json:"action"`
	Token  string `json:"token"`
}

// DataMessage carries a freshly issued credential from the page to the
// content-script relay.
type DataMessage struct {
	Type    string      `json:"type"`
	Payload DataPayload `json:"payload"`
}

func (DataMessage) windowMessage() {}

type AckPayload struct {
	Action  string  `json:"action"`
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// AckMessage is the single acknowledgment the relay posts back to the
// page for one data message.
type AckMessage struct {
	Type    string     `json:"type"`
	Payload AckPayload `json:"payload"`
}

func (AckMessage) windowMessage() {}

// NewDataMessage builds a well-formed authorize data message.
func NewDataMessage(token string) DataMessage {
	return DataMessage{
		Type: TypeData,
		Payload: DataPayload{
			Action: ActionAuthorize,
			Token:  token,
		},
	}
}

// NewAckMessage builds the acknowledgment for an authorize handshake.
// An empty errMessage encodes as a JSON null per the wire contract.
func NewAckMessage(success bool, errMessage string) AckMessage {
	var errValue *string
	if trimmed := strings.TrimSpace(errMessage); trimmed != "" {
		errValue = &trimmed
	}
	return AckMessage{
		Type: TypeAck,
		Payload: AckPayload{
			Action:  ActionAuthorize,
			Success: success,
			Error:   errValue,
		},
	}
}

// DecodeWindowMessage decodes a raw page-channel message into its
// variant. Unknown types and shape violations are rejected with a
// MessageError so callers can drop them without acting.
func DecodeWindowMessage(raw []byte) (WindowMessage, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &MessageError{Code: "decode_failed", Cause: ErrMalformedMessage}
	}
	switch probe.Type {
	case TypeData:
		var msg DataMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, &MessageError{Code: "payload_decode_failed", Field: "payload", Cause: ErrMalformedMessage}
		}
		if msg.Payload.Action != ActionAuthorize {
			return nil, &MessageError{Code: "unsupported_action", Field: "payload.action", Cause: ErrUnsupportedAction}
		}
		if strings.TrimSpace(msg.Payload.Token) == "" {
			return nil, &MessageError{Code: "token_required", Field: "payload.token", Cause: ErrMissingPayload}
		}
		return msg, nil
	case TypeAck:
		var msg AckMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, &MessageError{Code: "payload_decode_failed", Field: "payload", Cause: ErrMalformedMessage}
		}
		if msg.Payload.Action != ActionAuthorize {
			return nil, &MessageError{Code: "unsupported_action", Field: "payload.action", Cause: ErrUnsupportedAction}
		}
		return msg, nil
	default:
		return nil, &MessageError{Code: "unknown_type", Field: "type", Cause: ErrUnknownMessageType}
	}
}

// RuntimeMessage is a decoded background-channel request.
type RuntimeMessage interface {
	RuntimeType() string
}

// TokenReceived asks the background arbiter to validate and persist a
// delivered credential.
type TokenReceived struct {
	Token string `json:"token"`
}

func (TokenReceived) RuntimeType() string { return TypeTokenReceived }

// Disconnect asks the background arbiter to clear the stored record.
type Disconnect struct{}

func (Disconnect) RuntimeType() string { return TypeDisconnect }

// QueryState asks the background arbiter for a read-only snapshot.
type QueryState struct{}

func (QueryState) RuntimeType() string { return TypeQueryState }

// Result is the structured response every runtime request receives,
// including on internal failure.
type Result struct {
	Success bool        `json:"success"`
	Data    *ResultData `json:"data,omitempty"`
}

type ResultData struct {
	Error        string `json:"error,omitempty"`
	AuthState    string `json:"auth_state,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	ServerOrigin string `json:"server_origin,omitempty"`
}

// Failure builds a failed result with a caller-facing error string.
func Failure(message string) Result {
	return Result{Success: false, Data: &ResultData{Error: strings.TrimSpace(message)}}
}

// Succeeded builds an affirmative result with no payload.
func Succeeded() Result {
	return Result{Success: true}
}

type runtimeEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeRuntimeMessage wraps a runtime request in its wire envelope.
func EncodeRuntimeMessage(msg RuntimeMessage) ([]byte, error) {
	if msg == nil {
		return nil, &MessageError{Code: "message_required", Cause: ErrMalformedMessage}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, &MessageError{Code: "encode_failed", Cause: err}
	}
	return json.Marshal(runtimeEnvelope{Type: msg.RuntimeType(), Data: data})
}

// DecodeRuntimeMessage decodes a background-channel envelope into its
// request variant, rejecting unknown and malformed shapes.
func DecodeRuntimeMessage(raw []byte) (RuntimeMessage, error) {
	var envelope runtimeEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &MessageError{Code: "decode_failed", Cause: ErrMalformedMessage}
	}
	switch envelope.Type {
	case TypeTokenReceived:
		var msg TokenReceived
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, &msg); err != nil {
				return nil, &MessageError{Code: "data_decode_failed", Field: "data", Cause: ErrMalformedMessage}
			}
		}
		if strings.TrimSpace(msg.Token) == "" {
			return nil, &MessageError{Code: "token_required", Field: "data.token", Cause: ErrMissingPayload}
		}
		return msg, nil
	case TypeDisconnect:
		return Disconnect{}, nil
	case TypeQueryState:
		return QueryState{}, nil
	default:
		return nil, &MessageError{Code: "unknown_type", Field: "type", Cause: ErrUnknownMessageType}
	}
}
