// Package events fans out entity change notifications to realtime subscribers.
package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Type is the kind of change an event describes
type Type string

const (
	TypeCreated  Type = "created"
	TypeUpdated  Type = "updated"
	TypeDeleted  Type = "deleted"
	TypeAction   Type = "action"
	TypeFinished Type = "finished"
)

// Event is one change notification
type Event struct {
	Type       Type        `json:"type"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Publisher is implemented by anything that accepts events
type Publisher interface {
	Publish(evt Event)
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(Event) {}

const defaultBuffer = 64

// Subscription receives events until it is closed or dropped by the hub
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	hub  *Hub
	once sync.Once
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub delivers published events to every subscriber. A subscriber whose
// buffer is full is dropped instead of blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	now    func() time.Time
}

// NewHub creates a hub with the default subscriber buffer
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: defaultBuffer,
		now:    time.Now,
	}
}

// Subscribe registers a new subscriber
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish sends evt to every subscriber without blocking
func (h *Hub) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = h.now().UTC()
	}

	var slow []*Subscription
	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		logrus.Warn("Dropping slow event subscriber")
		h.remove(sub)
	}
}

func (h *Hub) remove(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		close(sub.ch)
	})
}
