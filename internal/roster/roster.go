// Package roster tracks the live set of call participants and their
// derived display order.
package roster

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/call"
	"github.com/mindhaven/livesession/internal/observability"
)

// Synchronizer consumes call events and maintains the participant map
// plus a sort order keyed by recent active-speaker activity. It owns
// participant state for the lifetime of the call; Reset discards
// everything on teardown.
type Synchronizer struct {
	mu           sync.RWMutex
	participants map[string]call.Participant
	// speakerOrder holds ids most-recently-active first. Only
	// active-speaker events mutate it; leavers are pruned, not re-sorted.
	speakerOrder []string
	// joinOrder is the stable default order before any speaker event.
	joinOrder []string

	reporter observability.Reporter
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewSynchronizer(reporter observability.Reporter, metrics *observability.Metrics, log zerolog.Logger) *Synchronizer {
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	return &Synchronizer{
		participants: make(map[string]call.Participant),
		reporter:     reporter,
		metrics:      metrics,
		log:          log,
	}
}

// HandleEvent applies one call event. Unknown event types are ignored.
func (s *Synchronizer) HandleEvent(ev call.Event) {
	if s.metrics != nil {
		s.metrics.RosterEvents.WithLabelValues(string(ev.Type)).Inc()
	}

	switch ev.Type {
	case call.EventParticipantJoined, call.EventParticipantUpdated:
		s.upsert(ev.Participant)
	case call.EventParticipantLeft:
		s.remove(ev.Participant.UserID)
	case call.EventActiveSpeakerChange:
		s.promote(ev.ActiveSpeakerID)
	case call.EventError:
		// Observability only; the roster stays as it is.
		s.reporter.CaptureException(ev.Err)
	}
}

// upsert replaces the entry wholesale: the subsystem always sends a
// full participant snapshot, so last write wins.
func (s *Synchronizer) upsert(p call.Participant) {
	if p.UserID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.participants[p.UserID]; !known {
		s.joinOrder = append(s.joinOrder, p.UserID)
		s.log.Debug().Str("user_id", p.UserID).Msg("participant joined")
	}
	s.participants[p.UserID] = p
}

func (s *Synchronizer) remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.participants[userID]; !known {
		return
	}
	delete(s.participants, userID)
	s.joinOrder = prune(s.joinOrder, userID)
	s.speakerOrder = prune(s.speakerOrder, userID)
	s.log.Debug().Str("user_id", userID).Msg("participant left")
}

// promote moves userID to the front of the speaker order, preserving
// the relative order of everyone else.
func (s *Synchronizer) promote(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order := make([]string, 0, len(s.speakerOrder)+1)
	order = append(order, userID)
	for _, id := range s.speakerOrder {
		if id != userID {
			order = append(order, id)
		}
	}
	s.speakerOrder = order
}

// Participants returns a snapshot copy of the participant map.
func (s *Synchronizer) Participants() map[string]call.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]call.Participant, len(s.participants))
	for id, p := range s.participants {
		out[id] = p
	}
	return out
}

// SortOrder returns participant ids, most-recently-active speaker
// first, then everyone else in join order.
func (s *Synchronizer) SortOrder() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.participants))
	out := make([]string, 0, len(s.participants))
	for _, id := range s.speakerOrder {
		if _, known := s.participants[id]; known && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range s.joinOrder {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Reset discards all participant state. It runs on every call teardown.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = make(map[string]call.Participant)
	s.speakerOrder = nil
	s.joinOrder = nil
}

func prune(ids []string, drop string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
