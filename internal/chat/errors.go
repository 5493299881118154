package chat

import "fmt"

const maxQuotedFrame = 120

// ProtocolError wraps a frame that could not be applied to the chat state.
type ProtocolError struct {
	Frame string
	Err   error
}

func (e *ProtocolError) Error() string {
	frame := e.Frame
	if len(frame) > maxQuotedFrame {
		frame = frame[:maxQuotedFrame] + "..."
	}
	return fmt.Sprintf("protocol error: %v (frame %q)", e.Err, frame)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
