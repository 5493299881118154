// Package relaytest runs an in-process chat relay speaking the envelope
// protocol, for tests of the socket channel and the chat views.
//
// The relay mirrors the production relay: a "register" envelope names the
// connection and triggers a "users" broadcast of every registered name, a
// "message" envelope is wrapped into {"from","message"} and fanned out to
// every connection, the sender included.
package relaytest

import (
	"sync"

	"github.com/codefionn/chatterm/internal/logger"
	"github.com/codefionn/chatterm/internal/protocol"
)

// Hub maintains the set of active peers and broadcasts frames
type Hub struct {
	peers      map[*peer]bool
	order      []*peer
	broadcast  chan string
	register   chan *peer
	unregister chan *peer
	mu         sync.RWMutex
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		peers:      make(map[*peer]bool),
		broadcast:  make(chan string, 256),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	logger.Debug("relay hub started")
	defer logger.Debug("relay hub stopped")

	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			h.peers[p] = true
			h.order = append(h.order, p)
			h.mu.Unlock()

		case p := <-h.unregister:
			h.mu.Lock()
			wasNamed := h.remove(p)
			h.mu.Unlock()
			if wasNamed {
				h.fanOut(h.usersFrame())
			}

		case frame := <-h.broadcast:
			h.fanOut(frame)

		case <-h.quit:
			h.mu.Lock()
			for p := range h.peers {
				h.remove(p)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast queues frame for every peer
func (h *Hub) Broadcast(frame string) {
	select {
	case h.broadcast <- frame:
	case <-h.quit:
	}
}

// PeerCount returns the number of connected peers
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Names returns the registered names in connection order
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.namesLocked()
}

func (h *Hub) setName(p *peer, name string) {
	h.mu.Lock()
	p.name = name
	h.mu.Unlock()
}

func (h *Hub) nameOf(p *peer) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return p.name
}

func (h *Hub) usersFrame() string {
	h.mu.RLock()
	names := h.namesLocked()
	h.mu.RUnlock()

	frame, err := protocol.Encode(protocol.NewUsers(names))
	if err != nil {
		logger.Error("relay: encode users: %v", err)
		return ""
	}
	return frame
}

func (h *Hub) namesLocked() []string {
	names := make([]string, 0, len(h.order))
	for _, p := range h.order {
		if p.name != "" {
			names = append(names, p.name)
		}
	}
	return names
}

func (h *Hub) fanOut(frame string) {
	if frame == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range append([]*peer(nil), h.order...) {
		select {
		case p.send <- frame:
		default:
			// Slow peer, drop it
			h.remove(p)
		}
	}
}

// remove must be called with mu held. It reports whether the peer had
// registered a name.
func (h *Hub) remove(p *peer) bool {
	if _, ok := h.peers[p]; !ok {
		return false
	}
	delete(h.peers, p)
	for i, q := range h.order {
		if q == p {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	close(p.send)
	return p.name != ""
}
