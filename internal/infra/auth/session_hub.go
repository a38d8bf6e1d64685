package auth

import (
	"sync"

	"threads/internal/domain/entity"
	"threads/internal/domain/service"
)

// SessionHub holds the current session of an auth provider and fans every
// change out to registered listeners, in registration order. Listeners must
// not call Set.
type SessionHub struct {
	mu        sync.Mutex
	current   *entity.Session
	listeners map[uint64]service.SessionListener
	order     []uint64
	nextID    uint64

	notifyMu sync.Mutex
}

// NewSessionHub returns an empty, signed out hub.
func NewSessionHub() *SessionHub {
	return &SessionHub{listeners: make(map[uint64]service.SessionListener)}
}

// Current returns a copy of the live session, or nil.
func (h *SessionHub) Current() *entity.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.current.Clone()
}

// Set replaces the live session and notifies listeners. Notifications of
// consecutive calls never interleave.
func (h *SessionHub) Set(session *entity.Session) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	h.current = session.Clone()
	listeners := make([]service.SessionListener, 0, len(h.order))
	for _, id := range h.order {
		listeners = append(listeners, h.listeners[id])
	}
	h.mu.Unlock()

	for _, listener := range listeners {
		listener(session.Clone())
	}
}

// Subscribe registers listener and returns its cancel function. Cancel is idempotent.
func (h *SessionHub) Subscribe(listener service.SessionListener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = listener
	h.order = append(h.order, id)

	var once sync.Once

	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)

					break
				}
			}
		})
	}
}
