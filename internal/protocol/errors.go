package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKind is wrapped by errors for envelopes without a messageType.
	ErrMissingKind = errors.New("missing messageType")
	// ErrUnknownKind is wrapped by DecodeStrict for kinds outside the closed set.
	ErrUnknownKind = errors.New("unknown messageType")
)

// DecodeError reports a frame or nested payload that could not be decoded.
type DecodeError struct {
	Frame  string
	Kind   Kind
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Kind != "" {
		msg += " " + string(e.Kind)
	}
	msg += ": " + e.Reason
	if e.Err != nil && e.Err.Error() != e.Reason {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
