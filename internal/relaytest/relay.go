package relaytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/chatterm/internal/consts"
	"github.com/codefionn/chatterm/internal/logger"
)

// Relay is an http.Handler serving the chat relay on "/"
type Relay struct {
	hub      *Hub
	router   *httprouter.Router
	upgrader websocket.Upgrader

	// reject, when non-zero, is the status returned instead of upgrading
	reject atomic.Int32

	mu       sync.Mutex
	received []string
}

// New creates a relay and starts its hub
func New() *Relay {
	r := &Relay{
		hub:    NewHub(),
		router: httprouter.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  consts.BufferSize1KB,
			WriteBufferSize: consts.BufferSize1KB,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
	r.router.GET("/", r.handleWebSocket)
	r.router.GET("/health", r.handleHealth)

	go r.hub.Run()
	return r
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Close disconnects every peer and stops the hub
func (r *Relay) Close() {
	r.hub.Stop()
}

// Hub exposes the relay's peer set
func (r *Relay) Hub() *Hub {
	return r.hub
}

// Inject broadcasts a raw frame to every peer, bypassing the codec
func (r *Relay) Inject(frame string) {
	r.hub.Broadcast(frame)
}

// Received returns every frame the relay has read, in arrival order
func (r *Relay) Received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.received...)
}

// DropConnections closes every peer's network connection without a close
// handshake, as a crashing relay would.
func (r *Relay) DropConnections() {
	r.hub.mu.RLock()
	defer r.hub.mu.RUnlock()
	for p := range r.hub.peers {
		_ = p.conn.NetConn().Close()
	}
}

// RejectHandshakes makes subsequent upgrades fail with status. Zero restores
// normal operation.
func (r *Relay) RejectHandshakes(status int) {
	r.reject.Store(int32(status))
}

func (r *Relay) record(frame string) {
	r.mu.Lock()
	r.received = append(r.received, frame)
	r.mu.Unlock()
}

func (r *Relay) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleWebSocket upgrades the request and attaches a peer to the hub
func (r *Relay) handleWebSocket(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	if status := int(r.reject.Load()); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Error("relay: upgrade failed: %v", err)
		return
	}

	p := &peer{
		relay: r,
		conn:  conn,
		send:  make(chan string, 256),
	}

	select {
	case r.hub.register <- p:
	case <-r.hub.quit:
		conn.Close()
		return
	}

	go p.writePump()
	go p.readPump()
}

// Server is a Relay listening on a loopback httptest server
type Server struct {
	*Relay
	http *httptest.Server
}

// NewServer starts a relay on a random loopback port
func NewServer() *Server {
	relay := New()
	return &Server{
		Relay: relay,
		http:  httptest.NewServer(relay),
	}
}

// URL returns the ws:// address of the relay
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

// Close stops the relay and the listener
func (s *Server) Close() {
	s.Relay.Close()
	s.http.CloseClientConnections()
	s.http.Close()
}
