package service

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// subscriberBuffer is the number of events a subscriber may fall behind
// before it is disconnected.
const subscriberBuffer = 128

// EventHub fans committed events out to in-process subscribers such as
// websocket connections.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int64]chan domain.Event
	seq    atomic.Int64
	logger *slog.Logger
}

// NewEventHub creates an EventHub with no subscribers.
func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		subs:   make(map[int64]chan domain.Event),
		logger: logger,
	}
}

// Subscribe registers a subscriber. The returned channel is closed on
// Unsubscribe or when the subscriber lags too far behind.
func (h *EventHub) Subscribe() (int64, <-chan domain.Event) {
	id := h.seq.Add(1)
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return id, ch
}

func (h *EventHub) Unsubscribe(id int64) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Broadcast never blocks: a subscriber whose buffer is full is dropped.
func (h *EventHub) Broadcast(ev domain.Event) {
	var lagging []int64

	h.mu.RLock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			lagging = append(lagging, id)
		}
	}
	h.mu.RUnlock()

	if len(lagging) == 0 {
		return
	}
	h.mu.Lock()
	for _, id := range lagging {
		if ch, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
			h.logger.Warn("disconnected lagging event subscriber", "subscriber_id", id)
		}
	}
	h.mu.Unlock()
}

// Subscribers returns the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
