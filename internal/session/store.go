package session

import "context"

// Store persists session records. Partial updates merge: only non-nil
// fields of an update change the stored record.
type Store interface {
	Add(ctx context.Context, s Session) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Update(ctx context.Context, id string, u Update) (*Session, error)
	UpdateExerciseState(ctx context.Context, id string, u StateUpdate) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
