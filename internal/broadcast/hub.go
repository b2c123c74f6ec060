// Package broadcast fans frames out to subscribers with lag-drop
// semantics: a slow subscriber loses the oldest undelivered frames rather
// than stalling the producer, the same bounded-channel-with-drop approach
// the teacher's Room uses for per-session outbound queues.
package broadcast

import "sync"

// defaultBuffer is the per-subscriber channel depth. Once full, Publish
// drops the oldest buffered frame to make room for the newest one —
// freshness dominates completeness for a telemetry feed.
const defaultBuffer = 8

// Hub is a bounded multi-producer multi-consumer broadcaster of []byte
// frames.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	ch chan []byte
}

// New builds an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a new receiver and returns the channel frames will
// arrive on. The channel is closed when Close is called.
func (h *Hub) Subscribe() <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{ch: make(chan []byte, defaultBuffer)}
	if h.closed {
		close(sub.ch)
		return sub.ch
	}
	h.subs[sub] = struct{}{}
	return sub.ch
}

// Unsubscribe removes a receiver obtained from Subscribe and closes its
// channel. It is safe to call more than once for the same channel.
func (h *Hub) Unsubscribe(ch <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if (<-chan []byte)(sub.ch) == ch {
			delete(h.subs, sub)
			close(sub.ch)
			return
		}
	}
}

// Publish delivers frame to every current subscriber. If a subscriber's
// queue is full, the oldest queued frame is dropped to make room; Publish
// never blocks on a slow consumer. Publish on a Hub with no subscribers is
// a no-op (the frame is simply dropped).
func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for sub := range h.subs {
		select {
		case sub.ch <- frame:
		default:
			// Queue full: drop the oldest frame, then retry once. A
			// second full queue (another producer raced us) means we give
			// up on this cycle rather than loop forever.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- frame:
			default:
			}
		}
	}
}

// SubscriberCount reports how many subscribers are currently registered.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel and marks the Hub closed; further
// Subscribe calls return an already-closed channel and Publish becomes a
// no-op. Close is idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
	}
	h.subs = make(map[*subscriber]struct{})
}
