package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/links"
	"github.com/mindhaven/livesession/internal/rooms"
)

// Service is the session authority. Only the facilitator recorded on a
// session may mutate it; every other caller is rejected before any
// write happens.
type Service struct {
	store      Store
	rooms      rooms.Provider
	links      *links.Builder
	roomExpiry time.Duration
	log        zerolog.Logger
}

func NewService(store Store, provider rooms.Provider, linkBuilder *links.Builder, roomExpiry time.Duration, log zerolog.Logger) *Service {
	if roomExpiry <= 0 {
		roomExpiry = 2 * time.Hour
	}
	return &Service{
		store:      store,
		rooms:      provider,
		links:      linkBuilder,
		roomExpiry: roomExpiry,
		log:        log,
	}
}

// CreateSession provisions a call room and persists the session record.
// The room id becomes the session id.
//
// Provisioning and persistence are two independent steps. A crash (or a
// store failure) between them leaves an orphaned room that expires on
// its own; no compensating delete is attempted.
func (s *Service) CreateSession(ctx context.Context, facilitatorID string, req CreateRequest) (*Session, error) {
	if strings.TrimSpace(facilitatorID) == "" {
		return nil, fmt.Errorf("%w: missing facilitator id", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.ContentID) == "" {
		return nil, fmt.Errorf("%w: missing content id", ErrInvalidRequest)
	}
	if req.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: missing start time", ErrInvalidRequest)
	}
	if req.Type == "" {
		req.Type = TypePublic
	}

	room, err := s.rooms.CreateRoom(ctx, req.StartTime.Add(s.roomExpiry))
	if err != nil {
		return nil, err
	}

	sess := Session{
		ID:          room.ID,
		ContentID:   req.ContentID,
		Language:    req.Language,
		Type:        req.Type,
		Facilitator: facilitatorID,
		StartTime:   req.StartTime,
		Link:        s.links.SessionLink(room.ID, req.ContentID, req.StartTime, req.Language),
		URL:         room.URL,
		RoomName:    room.Name,
		ExerciseState: ExerciseState{
			Index:     0,
			Playing:   false,
			Timestamp: time.Now().UTC(),
		},
	}

	created, err := s.store.Add(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.log.Info().
		Str("session_id", created.ID).
		Str("facilitator", facilitatorID).
		Str("content_id", req.ContentID).
		Msg("session created")
	return created, nil
}

// GetSession returns one session by id.
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// ListSessions returns all sessions ordered by start time.
func (s *Service) ListSessions(ctx context.Context) ([]*Session, error) {
	return s.store.List(ctx)
}

// UpdateSession applies a partial started/ended mutation. The
// facilitator check runs first, so an unknown session surfaces as
// unauthorized here; UpdateExerciseState deliberately orders the two
// checks the other way around.
func (s *Service) UpdateSession(ctx context.Context, userID, id string, u Update) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	if sess == nil || userID != sess.Facilitator {
		return nil, ErrUnauthorized
	}
	if u.IsEmpty() {
		return nil, ErrEmptyUpdate
	}

	updated, err := s.store.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", id).Msg("session updated")
	return updated, nil
}

// UpdateExerciseState applies a partial exercise state mutation.
// Existence is checked before authorization: a missing session cannot
// have a facilitator. A nil timestamp is server-assigned so consumers
// always see when the state was last written.
func (s *Service) UpdateExerciseState(ctx context.Context, userID, id string, u StateUpdate) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != sess.Facilitator {
		return nil, ErrUnauthorized
	}
	if u.IsEmpty() {
		return nil, ErrEmptyUpdate
	}
	if u.Timestamp == nil {
		now := time.Now().UTC()
		u.Timestamp = &now
	}

	updated, err := s.store.UpdateExerciseState(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("session_id", id).
		Int("index", updated.ExerciseState.Index).
		Bool("playing", updated.ExerciseState.Playing).
		Msg("exercise state updated")
	return updated, nil
}

// RemoveSession tears a session down. Removing an absent session is a
// no-op so retries after partial failures stay safe. The room is
// deleted before the record: a crash in between leaves a stale record
// pointing at a dead room, which a retry can still clean up.
func (s *Service) RemoveSession(ctx context.Context, userID, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if userID != sess.Facilitator {
		return ErrUnauthorized
	}

	if err := s.rooms.DeleteRoom(ctx, sess.RoomName); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}

	s.log.Info().Str("session_id", id).Msg("session removed")
	return nil
}
