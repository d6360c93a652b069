package notification

import (
	"context"
	"sync"
	"time"

	"github.com/frahmantamala/hr-portal/internal/core/events"
)

const (
	DefaultRecentSize = 50
	subscriberBuffer  = 16
	hubSubscriberName = "notification.hub"
)

// Hub keeps the last envelopes of one session and fans them out to browser
// connections. Slow subscribers lose messages instead of blocking the bus.
type Hub struct {
	mu     sync.RWMutex
	recent []Envelope
	next   int
	full   bool
	subs   map[int]chan Envelope
	seq    int
	closed bool
}

func NewHub(size int) *Hub {
	if size <= 0 {
		size = DefaultRecentSize
	}
	return &Hub{
		recent: make([]Envelope, size),
		subs:   make(map[int]chan Envelope),
	}
}

// Attach feeds the hub from notifications published on bus.
func (h *Hub) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeNotificationReceived, hubSubscriberName, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(*events.NotificationReceivedEvent)
		if !ok {
			return nil
		}
		h.Push(Envelope{Type: evt.MessageType, Data: evt.Body, ReceivedAt: evt.OccurredAt()})
		return nil
	})
}

func (h *Hub) Push(env Envelope) {
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.recent[h.next] = env
	h.next = (h.next + 1) % len(h.recent)
	if h.next == 0 {
		h.full = true
	}

	for _, ch := range h.subs {
		select {
		case ch <- env:
		default:
		}
	}
}

// Recent returns up to limit envelopes, newest first. limit <= 0 returns all of them.
func (h *Hub) Recent(limit int) []Envelope {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.recent)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Envelope, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.next - 1 - i + len(h.recent)) % len(h.recent)
		out = append(out, h.recent[idx])
	}
	return out
}

// Subscribe returns a channel of new envelopes and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Envelope, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Envelope, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.seq
	h.seq++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Close disconnects every subscriber. Pushes after Close are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
