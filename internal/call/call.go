// Package call defines the boundary to the video-calling subsystem: the
// capability set a call object exposes, the events it emits, and a mock
// implementation for tests and local development.
package call

import (
	"context"
	"fmt"
)

// MeetingState mirrors the call object's lifecycle as reported by the
// video-calling subsystem.
type MeetingState string

const (
	MeetingStateNew     MeetingState = "new"
	MeetingStateJoining MeetingState = "joining-meeting"
	MeetingStateJoined  MeetingState = "joined-meeting"
	MeetingStateLeft    MeetingState = "left-meeting"
	MeetingStateError   MeetingState = "error"
)

// EventType enumerates the call events consumed by the roster.
type EventType string

const (
	EventParticipantJoined   EventType = "participant-joined"
	EventParticipantUpdated  EventType = "participant-updated"
	EventParticipantLeft     EventType = "participant-left"
	EventActiveSpeakerChange EventType = "active-speaker-change"
	EventError               EventType = "error"
)

// EventTypes lists every event type a consumer must register for.
var EventTypes = []EventType{
	EventParticipantJoined,
	EventParticipantUpdated,
	EventParticipantLeft,
	EventActiveSpeakerChange,
	EventError,
}

// TrackState describes one local or remote media track.
type TrackState struct {
	Enabled              bool
	BlockedByPermissions bool
}

// Participant is the subsystem's full snapshot of one call member.
// It lives only for the duration of the call and is never persisted.
type Participant struct {
	UserID   string
	UserName string
	Local    bool
	Audio    TrackState
	Video    TrackState
	UserData any
}

// Event is one call event. Which fields are set depends on Type.
type Event struct {
	Type            EventType
	Participant     Participant
	ActiveSpeakerID string
	Err             error
}

// Handler consumes call events.
type Handler func(Event)

// JoinOptions configures a join request.
type JoinOptions struct {
	// SubscribeToTracksAutomatically false keeps bandwidth down until the
	// presentation layer opts in.
	SubscribeToTracksAutomatically bool
	UserData                       any
}

// Call is the capability set consumed from the video-calling subsystem.
// One Call is exclusively owned by one Facade and destroyed exactly once.
type Call interface {
	PreAuth(ctx context.Context, roomURL string) error
	StartCamera(ctx context.Context, roomURL string) error
	Join(ctx context.Context, opts JoinOptions) error
	Leave(ctx context.Context) error
	Destroy() error

	SetLocalAudio(enabled bool)
	SetLocalVideo(enabled bool)
	SetUserName(ctx context.Context, name string) error
	SetUserData(ctx context.Context, data any) error
	SetSubscribeToTracksAutomatically(enabled bool)

	MeetingState() MeetingState
	Participants() map[string]Participant

	// On registers a handler and returns its deregistration func.
	// Registration happens-before any event delivery.
	On(t EventType, h Handler) (off func())
}

// TransportError wraps a failure from the video-calling subsystem. It
// is surfaced to the caller but never fatal to the client process.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("call %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
