package eventbus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutSubscriberDrops(t *testing.T) {
	bus := New()

	assert.False(t, bus.Publish("frame"))
	assert.Equal(t, Stats{Published: 1, Dropped: 1}, bus.Stats())
	assert.False(t, bus.Subscribed())
}

func TestDeliveryOrder(t *testing.T) {
	bus := New()
	var got []string
	sub := bus.Subscribe(func(frame string) { got = append(got, frame) })
	defer sub.Unsubscribe()

	want := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		frame := fmt.Sprintf("frame-%d", i)
		want = append(want, frame)
		require.True(t, bus.Publish(frame))
	}

	assert.Equal(t, want, got)
	assert.Equal(t, Stats{Published: 100, Delivered: 100}, bus.Stats())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	count := 0
	sub := bus.Subscribe(func(string) { count++ })

	bus.Publish("a")
	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.False(t, bus.Publish("b"))
	assert.Equal(t, 1, count)
	assert.False(t, sub.Active())
	assert.False(t, bus.Subscribed())
}

func TestSubscribeSupersedesPrevious(t *testing.T) {
	bus := New()
	var first, second []string
	sub1 := bus.Subscribe(func(f string) { first = append(first, f) })
	bus.Publish("one")

	sub2 := bus.Subscribe(func(f string) { second = append(second, f) })
	bus.Publish("two")

	assert.Equal(t, []string{"one"}, first)
	assert.Equal(t, []string{"two"}, second)
	assert.False(t, sub1.Active())

	// cancelling the stale handle must not detach the live one
	sub1.Unsubscribe()
	assert.True(t, bus.Publish("three"))
	assert.Equal(t, []string{"two", "three"}, second)
	sub2.Unsubscribe()
}

func TestUnsubscribeWaitsForInFlightDelivery(t *testing.T) {
	bus := New()
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	finished := false

	sub := bus.Subscribe(func(string) {
		close(entered)
		<-release
		mu.Lock()
		finished = true
		mu.Unlock()
	})

	go bus.Publish("slow")
	<-entered

	done := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Unsubscribe returned while the handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Unsubscribe did not return")
	}

	mu.Lock()
	assert.True(t, finished)
	mu.Unlock()
	assert.False(t, bus.Publish("late"))
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	bus := New()
	var mu sync.Mutex
	delivered := 0
	sub := bus.Subscribe(func(string) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				bus.Publish("x")
			}
		}()
	}
	sub.Unsubscribe()

	mu.Lock()
	afterUnsubscribe := delivered
	mu.Unlock()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, afterUnsubscribe, delivered)

	stats := bus.Stats()
	assert.Equal(t, uint64(800), stats.Published)
	assert.Equal(t, stats.Published, stats.Delivered+stats.Dropped)
	assert.Equal(t, uint64(delivered), stats.Delivered)
}
