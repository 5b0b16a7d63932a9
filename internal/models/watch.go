package models

import "sync"

// EventType represents the kind of media change event
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// MediaEvent is delivered to watchers when an owner's library changes
type MediaEvent struct {
	Type  EventType `json:"type"`
	Media *Media    `json:"media"`
}

// watchHub fans media change events out to subscribers. Slow subscribers
// have events dropped rather than blocking writers.
type watchHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber
	closed bool
}

type subscriber struct {
	ownerID string
	ch      chan MediaEvent
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[uint64]*subscriber)}
}

func (h *watchHub) subscribe(ownerID string) (uint64, <-chan MediaEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	sub := &subscriber{
		ownerID: ownerID,
		ch:      make(chan MediaEvent, 16),
	}
	if h.closed {
		close(sub.ch)
	} else {
		h.subs[id] = sub
	}
	return id, sub.ch
}

func (h *watchHub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *watchHub) publish(event MediaEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.ownerID != event.Media.OwnerID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber buffer full, drop the event
		}
	}
}

func (h *watchHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
