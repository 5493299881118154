package protocol

import (
	"encoding/json"
	"fmt"
)

// ChatMessage is one line of chat as fanned out by the relay.
type ChatMessage struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// EncodeChatMessage serializes msg into the nested payload form.
func EncodeChatMessage(msg ChatMessage) (string, error) {
	data, err := marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode chat message: %w", err)
	}
	return data, nil
}

// DecodeChatMessage parses a nested payload. Both fields are required.
func DecodeChatMessage(payload string) (ChatMessage, error) {
	var wire struct {
		From    *string `json:"from"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return ChatMessage{}, &DecodeError{Frame: payload, Kind: KindMessage, Reason: "malformed chat message", Err: err}
	}
	switch {
	case wire.From == nil:
		return ChatMessage{}, &DecodeError{Frame: payload, Kind: KindMessage, Reason: "chat message missing from"}
	case wire.Message == nil:
		return ChatMessage{}, &DecodeError{Frame: payload, Kind: KindMessage, Reason: "chat message missing message"}
	}
	return ChatMessage{From: *wire.From, Message: *wire.Message}, nil
}
