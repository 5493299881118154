package socketclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send while no connection is established.
	ErrNotConnected = errors.New("not connected")
	// ErrSendBufferFull is returned by Send when the outbound queue is full.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrClosed is returned once the client has been closed.
	ErrClosed = errors.New("client closed")
	// ErrAlreadyConnected is returned by Connect on a live client.
	ErrAlreadyConnected = errors.New("already connected")
)

// Error codes carried by SocketError.
const (
	CodeDialFailed     = "DIAL_FAILED"
	CodeHandshake      = "HANDSHAKE_REJECTED"
	CodeConnectionLost = "CONNECTION_LOST"
)

// SocketError represents a failure of the websocket connection
type SocketError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *SocketError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SocketError) Unwrap() error {
	return e.Err
}

// NewSocketError creates a new SocketError
func NewSocketError(code, message, details string, err error) *SocketError {
	return &SocketError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}
