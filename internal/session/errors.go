package session

import "errors"

var (
	// ErrSessionNotFound means the session id is unknown to the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnauthorized means the actor is not the session facilitator.
	ErrUnauthorized = errors.New("user unauthorized")
	// ErrEmptyUpdate means a partial update carried no fields at all.
	ErrEmptyUpdate = errors.New("update contains no fields")
	// ErrInvalidRequest means a create request is missing required fields.
	ErrInvalidRequest = errors.New("invalid session request")
)
