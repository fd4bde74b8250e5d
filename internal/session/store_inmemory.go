package session

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a simple in-process session store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

func (s *InMemoryStore) Add(_ context.Context, sess Session) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = clone(&sess)
	return clone(&sess), nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(sess), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, clone(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, u Update) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if u.Started != nil {
		sess.Started = *u.Started
	}
	if u.Ended != nil {
		sess.Ended = *u.Ended
	}
	return clone(sess), nil
}

func (s *InMemoryStore) UpdateExerciseState(_ context.Context, id string, u StateUpdate) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if u.Index != nil {
		sess.ExerciseState.Index = *u.Index
	}
	if u.Playing != nil {
		sess.ExerciseState.Playing = *u.Playing
	}
	if u.Timestamp != nil {
		sess.ExerciseState.Timestamp = *u.Timestamp
	}
	return clone(sess), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

func clone(s *Session) *Session {
	c := *s
	return &c
}
