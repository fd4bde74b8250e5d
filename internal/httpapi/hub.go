package httpapi

import (
	"sync"

	"github.com/mindhaven/livesession/internal/session"
)

// stateEnvelope is what subscribers receive on every session mutation.
// Deleted marks the final message for a torn-down session.
type stateEnvelope struct {
	Session *session.Session `json:"session,omitempty"`
	Deleted bool             `json:"deleted,omitempty"`
}

type subscriber struct {
	ch chan stateEnvelope
}

// stateHub fans refreshed session state out to websocket subscribers.
// Sends never block: a subscriber that cannot keep up loses
// intermediate snapshots, which the reconciler absorbs by design.
type stateHub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newStateHub() *stateHub {
	return &stateHub{subs: make(map[string]map[*subscriber]struct{})}
}

// subscribe registers a subscriber for one session and returns it with
// its cleanup func.
func (h *stateHub) subscribe(sessionID string) (*subscriber, func()) {
	sub := &subscriber{ch: make(chan stateEnvelope, 16)}
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	return sub, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if m, ok := h.subs[sessionID]; ok {
			if _, present := m[sub]; present {
				delete(m, sub)
				close(sub.ch)
			}
			if len(m) == 0 {
				delete(h.subs, sessionID)
			}
		}
	}
}

// publish delivers an envelope to every subscriber of the session,
// dropping it for subscribers whose buffers are full.
func (h *stateHub) publish(sessionID string, env stateEnvelope) (delivered, dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.ch <- env:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// closeSession sends the final deleted envelope and drops every
// subscriber of the session.
func (h *stateHub) closeSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.ch <- stateEnvelope{Deleted: true}:
		default:
		}
		close(sub.ch)
	}
	delete(h.subs, sessionID)
}

// subscriberCount reports open subscriptions across all sessions.
func (h *stateHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.subs {
		n += len(m)
	}
	return n
}
