package rooms

import (
	"sync"
	"sync/atomic"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

const defaultSubscriberBuffer = 64

type HubMetrics interface {
	SubscriberAttached()
	SubscriberDetached(dropped bool)
}

// Hub fans accepted messages out to live subscribers of a room. Publish never blocks:
// a subscriber whose buffer is full is detached, its channel closed and Dropped set,
// and it has to catch up through history.
type Hub struct {
	mu      sync.Mutex
	rooms   map[int64]map[*Subscription]struct{}
	buffer  int
	metrics HubMetrics
}

type Subscription struct {
	hub     *Hub
	roomID  int64
	userID  int64
	ch      chan model.Message
	dropped atomic.Bool
	stop    func() bool
}

func NewHub(buffer int, metrics HubMetrics) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		rooms:   make(map[int64]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: metrics,
	}
}

func (h *Hub) Attach(roomID, userID int64) *Subscription {
	sub := &Subscription{
		hub:    h,
		roomID: roomID,
		userID: userID,
		ch:     make(chan model.Message, h.buffer),
	}

	h.mu.Lock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscriberAttached()
	}
	return sub
}

func (h *Hub) Publish(msg model.Message) {
	var dropped int

	h.mu.Lock()
	for sub := range h.rooms[msg.RoomID] {
		select {
		case sub.ch <- msg:
		default:
			sub.dropped.Store(true)
			h.removeLocked(sub)
			dropped++
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		for range dropped {
			h.metrics.SubscriberDetached(true)
		}
	}
}

func (h *Hub) SubscriberCount(roomID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

func (h *Hub) detach(sub *Subscription) {
	h.mu.Lock()
	removed := h.removeLocked(sub)
	h.mu.Unlock()

	if removed && h.metrics != nil {
		h.metrics.SubscriberDetached(false)
	}
}

// removeLocked closes the channel only when the subscription is still registered, so every
// channel is closed exactly once.
func (h *Hub) removeLocked(sub *Subscription) bool {
	subs, ok := h.rooms[sub.roomID]
	if !ok {
		return false
	}
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.roomID)
	}
	close(sub.ch)
	return true
}

// Messages is closed when the subscription ends, by Close, context cancellation or drop.
func (s *Subscription) Messages() <-chan model.Message {
	return s.ch
}

func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

func (s *Subscription) RoomID() int64 {
	return s.roomID
}

func (s *Subscription) Close() {
	if s.stop != nil {
		s.stop()
	}
	s.hub.detach(s)
}
