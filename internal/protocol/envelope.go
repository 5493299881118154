// Package protocol implements the frame codec spoken between chatterm and the
// chat relay.
//
// Every websocket text frame carries one Envelope:
//
//	{"messageType":"users"|"register"|"message","dataArray":[...]|null,"data":"..."|null}
//
// A "message" envelope double-encodes its payload: data is itself a serialized
// ChatMessage ({"from":"...","message":"..."}).
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies the payload carried by an Envelope.
type Kind string

const (
	// KindUsers carries the full roster in DataArray.
	KindUsers Kind = "users"
	// KindRegister carries the client's display name in Data.
	KindRegister Kind = "register"
	// KindMessage carries a serialized ChatMessage in Data.
	KindMessage Kind = "message"
)

// Known reports whether k is one of the kinds this client understands.
func (k Kind) Known() bool {
	switch k {
	case KindUsers, KindRegister, KindMessage:
		return true
	default:
		return false
	}
}

// Envelope is the wire unit exchanged over the socket. Only one of DataArray
// and Data is meaningful for a given Kind; the other encodes as null.
type Envelope struct {
	Kind      Kind     `json:"messageType"`
	DataArray []string `json:"dataArray"`
	Data      *string  `json:"data"`
}

// NewUsers builds a roster envelope.
func NewUsers(names []string) Envelope {
	return Envelope{Kind: KindUsers, DataArray: append([]string(nil), names...)}
}

// NewRegister builds the envelope announcing username to the relay.
func NewRegister(username string) Envelope {
	return Envelope{Kind: KindRegister, Data: &username}
}

// NewMessage builds an outbound chat message envelope. The relay wraps text
// into a ChatMessage before fanning it out.
func NewMessage(text string) Envelope {
	return Envelope{Kind: KindMessage, Data: &text}
}

// Payload returns Data, or "" when it is absent.
func (e Envelope) Payload() string {
	if e.Data == nil {
		return ""
	}
	return *e.Data
}

// ChatMessage decodes the nested payload of a message envelope.
func (e Envelope) ChatMessage() (ChatMessage, error) {
	if e.Data == nil {
		return ChatMessage{}, &DecodeError{Kind: e.Kind, Reason: "missing data payload"}
	}
	msg, err := DecodeChatMessage(*e.Data)
	if err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

// Encode serializes env into a text frame.
func Encode(env Envelope) (string, error) {
	if env.Kind == "" {
		return "", fmt.Errorf("encode envelope: %w", ErrMissingKind)
	}
	data, err := marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode %s envelope: %w", env.Kind, err)
	}
	return data, nil
}

// Decode parses a text frame. Unknown kinds are accepted so that the caller
// can ignore them; unparsable frames and frames without a kind are a
// *DecodeError.
func Decode(frame string) (Envelope, error) {
	var wire struct {
		Kind      *Kind    `json:"messageType"`
		DataArray []string `json:"dataArray"`
		Data      *string  `json:"data"`
	}
	if err := json.Unmarshal([]byte(frame), &wire); err != nil {
		return Envelope{}, &DecodeError{Frame: frame, Reason: "malformed envelope", Err: err}
	}
	if wire.Kind == nil || *wire.Kind == "" {
		return Envelope{}, &DecodeError{Frame: frame, Reason: "missing messageType", Err: ErrMissingKind}
	}
	return Envelope{Kind: *wire.Kind, DataArray: wire.DataArray, Data: wire.Data}, nil
}

// DecodeStrict is Decode that also rejects kinds outside the closed set.
func DecodeStrict(frame string) (Envelope, error) {
	env, err := Decode(frame)
	if err != nil {
		return Envelope{}, err
	}
	if !env.Kind.Known() {
		return Envelope{}, &DecodeError{Frame: frame, Kind: env.Kind, Reason: "unknown messageType", Err: ErrUnknownKind}
	}
	return env, nil
}

// marshal encodes v without HTML escaping so <, > and & reach the relay as
// typed.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
