// Package viewer serves the reconciled conversation to a local browser:
// a JSON API, attachment downloads, a websocket push channel and a proxy
// for the backend's prompt designer API.
package viewer

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatpanel/internal/models"
)

// Frame is one unit pushed to connected browsers.
type Frame struct {
	Type     string           `json:"type"` // conversation | notice
	ThreadID string           `json:"threadId,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
	Waiting  bool             `json:"waiting"`
	Notice   string           `json:"notice,omitempty"`
}

// Hub fans conversation updates out to connected browser tabs. Each tab
// gets an independent push connection fed from the same in-memory store.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]chan Frame
	log   zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[string]chan Frame),
		log:   log,
	}
}

// Register adds a viewer connection and returns its id and push channel.
func (h *Hub) Register() (string, chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Frame, 16)
	h.conns[id] = ch
	h.log.Debug().Str("connId", id).Int("viewers", len(h.conns)).Msg("viewer connected")
	return id, ch
}

// Unregister removes a viewer connection and closes its channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.conns[id]; ok {
		close(ch)
		delete(h.conns, id)
		h.log.Debug().Str("connId", id).Int("viewers", len(h.conns)).Msg("viewer disconnected")
	}
}

// Broadcast pushes a frame to every connected viewer. Slow consumers are
// skipped rather than blocking the reconciler.
func (h *Hub) Broadcast(f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.conns {
		select {
		case ch <- f:
		default:
			h.log.Warn().Str("connId", id).Msg("viewer too slow, dropping frame")
		}
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
