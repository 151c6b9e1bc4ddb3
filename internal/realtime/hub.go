// Package realtime fans journey change events out to live subscribers.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the hub.
const (
	EventFavoritesChanged = "favorites.changed"
)

// Event is a change notice for one user.
type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

// Subscription receives the events of one user until Close is called.
type Subscription struct {
	C <-chan Event

	hub    *Hub
	userID string
	ch     chan Event
	once   sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub 按用户分发事件。订阅者的缓冲写满后新事件直接丢弃，不阻塞发布方。
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Uint64
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 8
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, h.buffer)
	s := &Subscription{C: ch, hub: h, userID: userID, ch: ch}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.userID)
		}
	}
	close(s.ch)
}

// Publish delivers ev to every subscriber of ev.UserID without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[ev.UserID] {
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// FavoritesChanged publishes EventFavoritesChanged for userID.
func (h *Hub) FavoritesChanged(userID string) {
	h.Publish(Event{Type: EventFavoritesChanged, UserID: userID})
}

// Dropped counts events discarded because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Subscribers returns how many live subscriptions userID has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
