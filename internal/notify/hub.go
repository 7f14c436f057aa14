package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub is the in-process event bus behind the live duel websocket feed.
// Subscribers register per duel; slow subscribers have their oldest buffered
// event dropped rather than blocking publication.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Subscribe returns a buffered event channel for one duel and a cancel
// function the caller must invoke to avoid leaks.
func (h *Hub) Subscribe(duelID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	if h.subs[duelID] == nil {
		h.subs[duelID] = make(map[chan Event]struct{})
	}
	h.subs[duelID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[duelID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, duelID)
			}
		}
	}
	return ch, cancel
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.DuelID] {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return nil
}
