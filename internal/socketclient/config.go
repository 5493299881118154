package socketclient

import (
	"net/http"
	"time"

	"github.com/codefionn/chatterm/internal/consts"
)

// Config holds client configuration
type Config struct {
	// URL is the relay endpoint, ws:// or wss://
	URL string
	// Header is sent with the opening handshake
	Header http.Header
	// HandshakeTimeout bounds a single dial attempt
	HandshakeTimeout time.Duration
	// WriteTimeout is the deadline for writing one frame
	WriteTimeout time.Duration
	// PongWait is how long the connection may stay silent before it is
	// considered dead
	PongWait time.Duration
	// PingInterval is the interval for sending ping frames. Must be less
	// than PongWait.
	PingInterval time.Duration
	// MaxFrameSize is the largest inbound frame accepted
	MaxFrameSize int64
	// SendBuffer is the number of outbound frames that may be queued
	SendBuffer int
	// ReconnectEnabled enables automatic reconnection
	ReconnectEnabled bool
	// MaxReconnectAttempts is the maximum number of reconnection attempts
	// after a lost connection. Zero means no limit.
	MaxReconnectAttempts int
	// ReconnectDelay is the initial delay between reconnection attempts
	ReconnectDelay time.Duration
	// ReconnectMaxDelay is the maximum delay between reconnection attempts
	ReconnectMaxDelay time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		URL:                  "ws://127.0.0.1:8080",
		HandshakeTimeout:     consts.Timeout10Seconds,
		WriteTimeout:         consts.Timeout10Seconds,
		PongWait:             consts.Timeout60Seconds,
		PingInterval:         (consts.Timeout60Seconds * 9) / 10,
		MaxFrameSize:         consts.MaxFrameSize,
		SendBuffer:           consts.DefaultSendBuffer,
		ReconnectEnabled:     true,
		MaxReconnectAttempts: consts.DefaultMaxReconnectAttempts,
		ReconnectDelay:       1 * time.Second,
		ReconnectMaxDelay:    consts.Timeout30Seconds,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = def.MaxFrameSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.ReconnectMaxDelay < c.ReconnectDelay {
		c.ReconnectMaxDelay = c.ReconnectDelay
	}
	return c
}
