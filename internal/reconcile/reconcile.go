// Package reconcile decides how a participant's local media player must
// react to an exercise state snapshot so that everyone in a session
// converges on the same playback position.
package reconcile

import (
	"time"

	"github.com/mindhaven/livesession/internal/session"
)

// ActionKind enumerates player corrections.
type ActionKind string

const (
	// ActionNone leaves local playback alone.
	ActionNone ActionKind = "none"
	// ActionSeekTo seeks to Offset from the start of the media.
	ActionSeekTo ActionKind = "seek_to"
	// ActionRestart seeks back to the beginning.
	ActionRestart ActionKind = "restart"
)

// Action is the correction a player should apply.
type Action struct {
	Kind   ActionKind
	Offset time.Duration
}

// endMargin keeps a clamped seek just short of the media end so the
// player does not overshoot into a loop or a completion event.
const endMargin = time.Second

type memory struct {
	playing   bool
	timestamp time.Time
}

// Reconciler maps exercise state transitions to player corrections for
// one media block. It remembers only the last observed playing flag and
// timestamp; that memory is updated as the final step of each
// successful reconciliation.
//
// Timestamps are untrusted and may arrive out of order. A snapshot that
// is newer but otherwise identical is an explicit restart; a snapshot
// that is older but playing is a stale view of a running exercise and
// gets drift-compensated instead of replayed.
type Reconciler struct {
	prev memory
}

// New creates a reconciler whose memory starts at now. A late joiner
// therefore sees the session's current state as stale and catches up on
// the first reconciliation.
func New() *Reconciler {
	return NewAt(time.Now().UTC())
}

// NewAt is New with an explicit initial instant.
func NewAt(now time.Time) *Reconciler {
	return &Reconciler{prev: memory{playing: false, timestamp: now}}
}

// Reconcile computes the correction for the given snapshot. It must be
// re-invoked whenever the block becomes active, the media length
// becomes known, or a new snapshot arrives; until the block is active
// and the length known it reports no action and leaves the memory cell
// untouched.
func (r *Reconciler) Reconcile(current session.ExerciseState, now time.Time, mediaLength time.Duration, active bool) Action {
	if !active || mediaLength <= 0 {
		return Action{Kind: ActionNone}
	}

	action := Action{Kind: ActionNone}
	switch {
	case current.Timestamp.After(r.prev.timestamp) && current.Playing == r.prev.playing:
		// Same state re-stamped newer: the facilitator asked for a replay.
		action = Action{Kind: ActionRestart}
	case current.Timestamp.Before(r.prev.timestamp) && current.Playing:
		elapsed := now.Sub(current.Timestamp)
		if elapsed < mediaLength {
			action = Action{Kind: ActionSeekTo, Offset: elapsed}
		} else {
			action = Action{Kind: ActionSeekTo, Offset: mediaLength - endMargin}
		}
	}

	r.prev = memory{playing: current.Playing, timestamp: current.Timestamp}
	return action
}

// ShouldPlay mirrors the snapshot's playing flag for an active block.
// Pause and resume are not time-compensated, only position is.
func ShouldPlay(current session.ExerciseState, active bool) bool {
	return active && current.Playing
}
