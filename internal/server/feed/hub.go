// Package feed is the change-feed hub. Case mutations broadcast the
// owner's full snapshot to every subscriber of that owner's scope; the
// HTTP layer turns the channel into an SSE stream.
package feed

import (
	"sync"

	"github.com/dverbovs/casekeeper/internal/models"
)

const clientBuffer = 16

// Snapshot is one whole-collection push for an owner scope.
type Snapshot struct {
	Cases []models.Case `json:"cases"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[string]map[chan Snapshot]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[chan Snapshot]struct{})}
}

// Subscribe registers a listener for ownerID's scope. The returned cancel
// removes the listener and closes its channel.
func (h *Hub) Subscribe(ownerID string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, clientBuffer)

	h.mu.Lock()
	set, ok := h.clients[ownerID]
	if !ok {
		set = make(map[chan Snapshot]struct{})
		h.clients[ownerID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.clients[ownerID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.clients, ownerID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast pushes the owner's current snapshot to every subscriber. A
// subscriber whose buffer is full misses this push; the next mutation or
// a client-side refresh catches it up.
func (h *Hub) Broadcast(ownerID string, cases []models.Case) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients[ownerID] {
		select {
		case ch <- Snapshot{Cases: cases}:
		default:
		}
	}
}

// Subscribers reports the number of active listeners for an owner scope.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[ownerID])
}
