package consts

import "time"

// Buffer sizes for various operations
const (
	// BufferSize1KB is 1 kilobyte
	BufferSize1KB = 1024
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
	// BufferSize256KB is 256 kilobytes
	BufferSize256KB = 256 * 1024
)

// Frame limits
const (
	// MaxFrameSize is the largest inbound websocket frame the client accepts
	MaxFrameSize = BufferSize64KB
	// DefaultSendBuffer is the number of outbound frames that may be queued
	// before Send starts failing
	DefaultSendBuffer = 64
)

// Timeouts for socket operations
const (
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
)

// Retry and attempt limits
const (
	// DefaultMaxReconnectAttempts bounds the reconnect loop of the socket client
	DefaultMaxReconnectAttempts = 10
)
