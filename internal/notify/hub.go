package notify

import (
	"claimed-world/utils"
	"context"
	"sync"
)

// AllItems subscribes to events of every item
const AllItems = ""

// DefaultBuffer is the per-subscriber queue length
const DefaultBuffer = 64

// Subscription receives the events of one item, or of all items
type Subscription struct {
	ID       string
	ItemCode string
	ch       chan Event
}

// Events is closed when the subscription ends, including when the hub drops a slow subscriber
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub fans events out to in-process subscribers such as websocket connections
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{} // key: item code, AllItems for everything
	buffer int
	closed bool
}

// NewHub creates a hub. A buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe registers a subscriber for itemCode
func (h *Hub) Subscribe(itemCode string) *Subscription {
	sub := &Subscription{ID: utils.GenerateID(), ItemCode: itemCode, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	set, ok := h.subs[itemCode]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[itemCode] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

func (h *Hub) remove(sub *Subscription) {
	set, ok := h.subs[sub.ItemCode]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.ItemCode)
	}
	close(sub.ch)
}

// Publish delivers ev without blocking. A subscriber whose queue is full is dropped so one slow
// client cannot hold back the others.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, key := range []string{ev.ItemCode, AllItems} {
		for sub := range h.subs[key] {
			select {
			case sub.ch <- ev:
			default:
				utils.Warn("Dropping slow subscriber", map[string]any{
					"subscriber_id": sub.ID,
					"item_id":       sub.ItemCode,
				})
				h.remove(sub)
			}
		}
		if ev.ItemCode == AllItems {
			break
		}
	}
	return nil
}

// SubscriberCount returns the number of subscribers watching itemCode
func (h *Hub) SubscriberCount(itemCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[itemCode])
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for sub := range set {
			h.remove(sub)
		}
	}
	h.closed = true
}
