// Package eventbus fans inbound socket frames out to the chat view.
//
// A Bus has at most one live subscriber: the mounted chat view. Frames are
// delivered synchronously on the publishing goroutine, in the order Publish is
// called. Frames published while nobody is subscribed are dropped.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/codefionn/chatterm/internal/logger"
)

// Handler receives one frame.
type Handler func(frame string)

// Stats are cumulative counters of a Bus.
type Stats struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
}

// Bus delivers published frames to the current subscription.
type Bus struct {
	mu  sync.RWMutex
	sub *Subscription

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus     *Bus
	handler Handler

	// deliver serializes deliveries with Unsubscribe
	deliver sync.Mutex
	active  atomic.Bool
}

// Subscribe installs handler as the only subscriber. A previous subscription
// is cancelled first and never sees another frame.
func (b *Bus) Subscribe(handler Handler) *Subscription {
	sub := &Subscription{bus: b, handler: handler}
	sub.active.Store(true)

	b.mu.Lock()
	prev := b.sub
	b.sub = sub
	b.mu.Unlock()

	if prev != nil {
		logger.Debug("eventbus: subscription superseded")
		prev.deactivate()
	}
	return sub
}

// Publish hands frame to the live subscriber and reports whether it was
// delivered.
func (b *Bus) Publish(frame string) bool {
	b.published.Add(1)

	b.mu.RLock()
	sub := b.sub
	b.mu.RUnlock()

	if sub == nil || !sub.deliverFrame(frame) {
		b.dropped.Add(1)
		return false
	}
	b.delivered.Add(1)
	return true
}

// Subscribed reports whether a subscription is live.
func (b *Bus) Subscribed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sub != nil
}

// Stats returns a snapshot of the counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Unsubscribe cancels the subscription. It is idempotent. Once it returns the
// handler is not running and will not be called again, so it must not be
// called from inside the handler itself.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.bus.mu.Lock()
	if s.bus.sub == s {
		s.bus.sub = nil
	}
	s.bus.mu.Unlock()

	s.deactivate()
}

// Active reports whether the subscription still receives frames.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

func (s *Subscription) deactivate() {
	s.active.Store(false)
	// wait out an in-flight delivery
	s.deliver.Lock()
	s.deliver.Unlock()
}

func (s *Subscription) deliverFrame(frame string) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if !s.active.Load() {
		return false
	}
	s.handler(frame)
	return true
}
