// Package client composes the call object, the roster synchronizer and
// call lifecycle into the facade the presentation layer talks to.
package client

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/call"
	"github.com/mindhaven/livesession/internal/observability"
	"github.com/mindhaven/livesession/internal/roster"
)

// State is the facade's position in the call lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StatePreAuthorizing State = "pre-authorizing"
	StateReady          State = "ready"
	StateJoining        State = "joining"
	StateInCall         State = "in-call"
	StateLeaving        State = "leaving"
)

// Facade owns the call object exclusively. Event handlers are bound at
// construction, before any join can deliver events, and are released
// together with the roster state and the call object on every exit
// path. After teardown the facade is inert: every operation is a no-op.
type Facade struct {
	mu       sync.Mutex
	call     call.Call
	roster   *roster.Synchronizer
	reporter observability.Reporter
	log      zerolog.Logger

	state State
	offs  []func()
	done  bool
}

func NewFacade(c call.Call, ros *roster.Synchronizer, reporter observability.Reporter, log zerolog.Logger) *Facade {
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	f := &Facade{
		call:     c,
		roster:   ros,
		reporter: reporter,
		log:      log,
		state:    StateIdle,
	}
	for _, t := range call.EventTypes {
		f.offs = append(f.offs, c.On(t, ros.HandleEvent))
	}
	return f
}

// State returns the facade's current lifecycle state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Roster exposes the synchronizer read-only; nobody else gets the call
// handle.
func (f *Facade) Roster() *roster.Synchronizer {
	return f.roster
}

// PreJoinMeeting pre-authorizes against the room and starts the local
// camera preview. It only acts on a fresh call; once in a meeting it is
// a no-op. On failure the state returns to idle and the error surfaces
// to the caller.
func (f *Facade) PreJoinMeeting(ctx context.Context, roomURL string) error {
	f.mu.Lock()
	if f.done || f.call.MeetingState() != call.MeetingStateNew {
		f.mu.Unlock()
		return nil
	}
	f.state = StatePreAuthorizing
	f.mu.Unlock()

	if err := f.call.PreAuth(ctx, roomURL); err != nil {
		return f.failPreJoin("pre-auth", err)
	}
	if err := f.call.StartCamera(ctx, roomURL); err != nil {
		return f.failPreJoin("start-camera", err)
	}

	f.mu.Lock()
	f.state = StateReady
	f.mu.Unlock()
	f.log.Debug().Str("room_url", roomURL).Msg("pre-join complete")
	return nil
}

func (f *Facade) failPreJoin(op string, err error) error {
	f.mu.Lock()
	f.state = StateIdle
	f.mu.Unlock()
	terr := &call.TransportError{Op: op, Err: err}
	f.reporter.CaptureException(terr)
	return terr
}

// JoinMeeting joins the room. Joining while already in a meeting is a
// no-op. Track subscription starts disabled; the presentation layer
// opts in via SetSubscribeToAllTracks once it is ready to render.
func (f *Facade) JoinMeeting(ctx context.Context, userData any) error {
	f.mu.Lock()
	if f.done || f.call.MeetingState() == call.MeetingStateJoined {
		f.mu.Unlock()
		return nil
	}
	prev := f.state
	f.state = StateJoining
	f.mu.Unlock()

	err := f.call.Join(ctx, call.JoinOptions{
		SubscribeToTracksAutomatically: false,
		UserData:                       userData,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = prev
		terr := &call.TransportError{Op: "join", Err: err}
		f.reporter.CaptureException(terr)
		return terr
	}
	f.state = StateInCall
	f.log.Debug().Msg("joined meeting")
	return nil
}

// LeaveMeeting leaves the room and tears the call down. Cleanup —
// deregister handlers, reset roster state, destroy the call object —
// runs unconditionally, even when the leave itself fails network-side,
// so the client never holds stale participant state.
func (f *Facade) LeaveMeeting(ctx context.Context) error {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return nil
	}
	f.state = StateLeaving
	f.mu.Unlock()

	leaveErr := f.call.Leave(ctx)

	f.mu.Lock()
	for _, off := range f.offs {
		off()
	}
	f.offs = nil
	f.roster.Reset()
	if err := f.call.Destroy(); err != nil {
		f.reporter.CaptureException(err)
	}
	f.done = true
	f.state = StateIdle
	f.mu.Unlock()

	if leaveErr != nil {
		terr := &call.TransportError{Op: "leave", Err: leaveErr}
		f.reporter.CaptureException(terr)
		return terr
	}
	f.log.Debug().Msg("left meeting")
	return nil
}

// ToggleAudio enables or disables the local microphone.
func (f *Facade) ToggleAudio(enabled bool) {
	if f.torndown() {
		return
	}
	f.call.SetLocalAudio(enabled)
}

// ToggleVideo enables or disables the local camera.
func (f *Facade) ToggleVideo(enabled bool) {
	if f.torndown() {
		return
	}
	f.call.SetLocalVideo(enabled)
}

// SetUserName publishes the local display name.
func (f *Facade) SetUserName(ctx context.Context, name string) error {
	if f.torndown() {
		return nil
	}
	if err := f.call.SetUserName(ctx, name); err != nil {
		terr := &call.TransportError{Op: "set-user-name", Err: err}
		f.reporter.CaptureException(terr)
		return terr
	}
	return nil
}

// SetUserData publishes opaque metadata on the local participant.
func (f *Facade) SetUserData(ctx context.Context, data any) error {
	if f.torndown() {
		return nil
	}
	if err := f.call.SetUserData(ctx, data); err != nil {
		terr := &call.TransportError{Op: "set-user-data", Err: err}
		f.reporter.CaptureException(terr)
		return terr
	}
	return nil
}

// SetSubscribeToAllTracks opts in to automatic track subscription.
func (f *Facade) SetSubscribeToAllTracks() {
	if f.torndown() {
		return
	}
	f.call.SetSubscribeToTracksAutomatically(true)
}

// HasAppPermissions is true only if neither the local audio nor the
// local video track is blocked by an OS-level permission denial.
func (f *Facade) HasAppPermissions() bool {
	if f.torndown() {
		return false
	}
	for _, p := range f.call.Participants() {
		if p.Local {
			return !p.Audio.BlockedByPermissions && !p.Video.BlockedByPermissions
		}
	}
	return true
}

// MeetingState reads through to the call object.
func (f *Facade) MeetingState() call.MeetingState {
	if f.torndown() {
		return call.MeetingStateLeft
	}
	return f.call.MeetingState()
}

// Participants reads through to the call object's current snapshot.
func (f *Facade) Participants() map[string]call.Participant {
	if f.torndown() {
		return nil
	}
	return f.call.Participants()
}

func (f *Facade) torndown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}
