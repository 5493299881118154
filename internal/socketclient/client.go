package socketclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/codefionn/chatterm/internal/logger"
)

// ConnectionState represents the current state of the socket connection
type ConnectionState int

const (
	// StateDisconnected indicates the client is not connected
	StateDisconnected ConnectionState = iota
	// StateConnecting indicates the client is attempting to connect
	StateConnecting
	// StateConnected indicates the websocket handshake completed
	StateConnected
	// StateReconnecting indicates the client is attempting to reconnect
	StateReconnecting
	// StateClosed indicates the client has been closed
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Publisher receives inbound frames. The event bus implements it.
type Publisher interface {
	Publish(frame string) bool
}

// connection is one websocket and the queue feeding its write pump.
type connection struct {
	ws   *websocket.Conn
	send chan string
	// quit asks the write pump to send a close frame
	quit chan struct{}
	// done is closed when the read pump exits
	done chan struct{}
}

// Client represents a websocket client
type Client struct {
	config    Config
	publisher Publisher
	log       *slog.Logger
	dialer    *websocket.Dialer

	// Connection
	conn   *connection
	connMu sync.RWMutex
	state  atomic.Int32 // ConnectionState

	// Callbacks
	stateChangedCallback func(ConnectionState, error)
	reconnectingCallback func(attempt int, maxAttempts int)
	reconnectedCallback  func()

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a websocket client that publishes inbound frames to
// publisher. A nil log writes to the global logger.
func NewClient(config *Config, publisher Publisher, log *slog.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.URL == "" {
		return nil, errors.New("relay URL is required")
	}
	if !strings.HasPrefix(config.URL, "ws://") && !strings.HasPrefix(config.URL, "wss://") {
		return nil, fmt.Errorf("relay URL %q: scheme must be ws or wss", config.URL)
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if log == nil {
		log = logger.NewSlogLogger(logger.Global().WithPrefix("socket"))
	}

	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		config:    cfg,
		publisher: publisher,
		log:       log,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		ctx:    ctx,
		cancel: cancel,
	}
	client.state.Store(int32(StateDisconnected))
	return client, nil
}

// Connect dials the relay and starts the message pumps.
func (c *Client) Connect(ctx context.Context) error {
	switch c.getState() {
	case StateClosed:
		return ErrClosed
	case StateDisconnected:
	default:
		return ErrAlreadyConnected
	}
	return c.dial(ctx, StateConnecting)
}

// dial performs one connection attempt. phase is the state reported while
// the attempt is running.
func (c *Client) dial(ctx context.Context, phase ConnectionState) error {
	c.setState(phase, nil)

	ctx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
	defer cancel()

	ws, resp, err := c.dialer.DialContext(ctx, c.config.URL, c.config.Header)
	if err != nil {
		var sockErr *SocketError
		if resp != nil {
			_ = resp.Body.Close()
			sockErr = NewSocketError(CodeHandshake, "relay rejected handshake", resp.Status, err)
		} else {
			sockErr = NewSocketError(CodeDialFailed, "failed to connect to "+c.config.URL, "", err)
		}
		if phase == StateConnecting {
			c.setState(StateDisconnected, sockErr)
		}
		return sockErr
	}

	conn := &connection{
		ws:   ws,
		send: make(chan string, c.config.SendBuffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	c.connMu.Lock()
	if c.ctx.Err() != nil {
		c.connMu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateConnected, nil)
	c.log.Info("connected", "url", c.config.URL)

	c.wg.Add(2)
	go c.readPump(conn)
	go c.writePump(conn)
	return nil
}

// Send queues frame for the write pump. It never blocks.
func (c *Client) Send(frame string) error {
	if c.getState() == StateClosed {
		return ErrClosed
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil || c.getState() != StateConnected {
		return ErrNotConnected
	}

	select {
	case conn.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close sends a close frame, stops both pumps and any reconnection attempt.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosed, nil)
		c.cancel()

		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()

		if conn != nil {
			close(conn.quit)
		}
		c.wg.Wait()
		c.log.Debug("client closed")
	})
	return nil
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.getState() == StateConnected
}

// GetState returns the current connection state
func (c *Client) GetState() ConnectionState {
	return c.getState()
}

// SetStateChangedCallback sets the callback for connection state changes.
// The error is non-nil when a state change was caused by a failure.
func (c *Client) SetStateChangedCallback(fn func(ConnectionState, error)) {
	c.stateChangedCallback = fn
}

// SetReconnectingCallback sets the callback for reconnection attempts
func (c *Client) SetReconnectingCallback(fn func(attempt int, maxAttempts int)) {
	c.reconnectingCallback = fn
}

// SetReconnectedCallback sets the callback run after a lost connection has
// been re-established.
func (c *Client) SetReconnectedCallback(fn func()) {
	c.reconnectedCallback = fn
}

// getState returns the current connection state
func (c *Client) getState() ConnectionState {
	return ConnectionState(c.state.Load())
}

// setState sets the connection state and notifies callback. A closed client
// never leaves StateClosed.
func (c *Client) setState(state ConnectionState, err error) {
	for {
		old := ConnectionState(c.state.Load())
		if old == StateClosed && state != StateClosed {
			return
		}
		if !c.state.CompareAndSwap(int32(old), int32(state)) {
			continue
		}
		if c.stateChangedCallback != nil && (old != state || err != nil) {
			c.stateChangedCallback(state, err)
		}
		return
	}
}

// readPump publishes inbound frames until the connection fails
func (c *Client) readPump(conn *connection) {
	defer c.wg.Done()
	defer close(conn.done)

	conn.ws.SetReadLimit(c.config.MaxFrameSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		msgType, data, err := conn.ws.ReadMessage()
		if err != nil {
			_ = conn.ws.Close()
			c.handleConnectionError(conn, err)
			return
		}
		if msgType != websocket.TextMessage {
			c.log.Debug("ignoring non-text frame", "type", msgType, "bytes", len(data))
			continue
		}
		if !c.publisher.Publish(string(data)) {
			c.log.Debug("frame dropped, no subscriber", "bytes", len(data))
		}
	}
}

// writePump writes queued frames and pings to the connection
func (c *Client) writePump(conn *connection) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				c.log.Warn("write failed", "error", err)
				_ = conn.ws.Close()
				return
			}

		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.ws.Close()
				return
			}

		case <-conn.quit:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
			_ = conn.ws.WriteMessage(websocket.CloseMessage, msg)
			_ = conn.ws.Close()
			return

		case <-conn.done:
			return
		}
	}
}

// handleConnectionError runs on the read pump when the connection ends.
func (c *Client) handleConnectionError(conn *connection, err error) {
	if c.ctx.Err() != nil {
		return
	}

	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.log.Info("relay closed the connection", "code", closeErr.Code, "reason", closeErr.Text)
	} else {
		c.log.Warn("connection lost", "error", err)
	}
	c.setState(StateDisconnected, NewSocketError(CodeConnectionLost, "connection lost", "", err))

	if c.config.ReconnectEnabled {
		// the read pump still holds a wg slot, so Add is safe against Close
		c.wg.Add(1)
		go c.reconnectLoop()
	}
}

// reconnectLoop retries the dial with exponential backoff until it succeeds,
// the attempts are exhausted or the client is closed.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.ReconnectDelay
	exp.MaxInterval = c.config.ReconnectMaxDelay
	exp.MaxElapsedTime = 0

	var policy backoff.BackOff = exp
	if c.config.MaxReconnectAttempts > 0 {
		policy = backoff.WithMaxRetries(exp, uint64(c.config.MaxReconnectAttempts-1))
	}

	attempt := 0
	operation := func() error {
		if c.ctx.Err() != nil {
			return backoff.Permanent(ErrClosed)
		}
		attempt++
		if c.reconnectingCallback != nil {
			c.reconnectingCallback(attempt, c.config.MaxReconnectAttempts)
		}
		return c.dial(c.ctx, StateReconnecting)
	}
	notify := func(err error, next time.Duration) {
		c.log.Warn("reconnect failed", "attempt", attempt, "retry_in", next, "error", err)
	}

	// Give the relay a moment before the first attempt
	select {
	case <-c.ctx.Done():
		return
	case <-time.After(c.config.ReconnectDelay):
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, c.ctx), notify); err != nil {
		if c.ctx.Err() == nil {
			c.log.Error("giving up reconnecting", "attempts", attempt, "error", err)
			c.setState(StateDisconnected, err)
		}
		return
	}

	c.log.Info("reconnected", "attempts", attempt)
	if c.reconnectedCallback != nil {
		c.reconnectedCallback()
	}
}
