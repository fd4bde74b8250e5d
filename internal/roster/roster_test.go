package roster

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/call"
)

type captureReporter struct {
	errs []error
}

func (r *captureReporter) CaptureException(err error) {
	r.errs = append(r.errs, err)
}

func newTestSynchronizer() (*Synchronizer, *captureReporter) {
	rep := &captureReporter{}
	return NewSynchronizer(rep, nil, zerolog.Nop()), rep
}

func joined(userID string) call.Event {
	return call.Event{Type: call.EventParticipantJoined, Participant: call.Participant{UserID: userID}}
}

func left(userID string) call.Event {
	return call.Event{Type: call.EventParticipantLeft, Participant: call.Participant{UserID: userID}}
}

func speaker(userID string) call.Event {
	return call.Event{Type: call.EventActiveSpeakerChange, ActiveSpeakerID: userID}
}

func TestJoinedThenLeftYieldsEmptyRoster(t *testing.T) {
	s, _ := newTestSynchronizer()

	s.HandleEvent(joined("u1"))
	if len(s.Participants()) != 1 {
		t.Fatalf("participants = %d, want 1", len(s.Participants()))
	}

	s.HandleEvent(left("u1"))
	if len(s.Participants()) != 0 {
		t.Fatalf("participants = %d, want 0", len(s.Participants()))
	}
	if len(s.SortOrder()) != 0 {
		t.Fatalf("sort order = %v, want empty", s.SortOrder())
	}
}

func TestLeftForUnknownParticipantIsNoop(t *testing.T) {
	s, _ := newTestSynchronizer()
	s.HandleEvent(left("ghost"))
	if len(s.Participants()) != 0 {
		t.Fatalf("participants = %d, want 0", len(s.Participants()))
	}
}

func TestUpdatedReplacesEntryWholesale(t *testing.T) {
	s, _ := newTestSynchronizer()

	s.HandleEvent(joined("u1"))
	s.HandleEvent(call.Event{
		Type: call.EventParticipantUpdated,
		Participant: call.Participant{
			UserID: "u1",
			Audio:  call.TrackState{Enabled: true},
		},
	})

	got := s.Participants()["u1"]
	if !got.Audio.Enabled {
		t.Fatalf("updated snapshot not applied: %+v", got)
	}
}

func TestSortOrderDefaultsToJoinOrder(t *testing.T) {
	s, _ := newTestSynchronizer()
	s.HandleEvent(joined("u1"))
	s.HandleEvent(joined("u2"))
	s.HandleEvent(joined("u3"))

	want := []string{"u1", "u2", "u3"}
	if got := s.SortOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SortOrder() = %v, want %v", got, want)
	}
}

func TestActiveSpeakerMovesToFrontPreservingRest(t *testing.T) {
	s, _ := newTestSynchronizer()
	s.HandleEvent(joined("u1"))
	s.HandleEvent(joined("u2"))
	s.HandleEvent(joined("u3"))

	s.HandleEvent(speaker("u2"))
	want := []string{"u2", "u1", "u3"}
	if got := s.SortOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SortOrder() = %v, want %v", got, want)
	}

	s.HandleEvent(speaker("u3"))
	want = []string{"u3", "u2", "u1"}
	if got := s.SortOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SortOrder() = %v, want %v", got, want)
	}
}

func TestLeaverIsPrunedNotResorted(t *testing.T) {
	s, _ := newTestSynchronizer()
	s.HandleEvent(joined("u1"))
	s.HandleEvent(joined("u2"))
	s.HandleEvent(joined("u3"))
	s.HandleEvent(speaker("u2"))
	s.HandleEvent(speaker("u1"))

	s.HandleEvent(left("u2"))
	want := []string{"u1", "u3"}
	if got := s.SortOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SortOrder() = %v, want %v", got, want)
	}
}

func TestErrorEventOnlyReports(t *testing.T) {
	s, rep := newTestSynchronizer()
	s.HandleEvent(joined("u1"))

	boom := errors.New("ice failure")
	s.HandleEvent(call.Event{Type: call.EventError, Err: boom})

	if len(rep.errs) != 1 || !errors.Is(rep.errs[0], boom) {
		t.Fatalf("reported errors = %v, want [%v]", rep.errs, boom)
	}
	if len(s.Participants()) != 1 {
		t.Fatalf("error event mutated roster state")
	}
}

func TestResetDiscardsEverything(t *testing.T) {
	s, _ := newTestSynchronizer()
	s.HandleEvent(joined("u1"))
	s.HandleEvent(speaker("u1"))

	s.Reset()
	if len(s.Participants()) != 0 || len(s.SortOrder()) != 0 {
		t.Fatalf("Reset() left state behind: %v %v", s.Participants(), s.SortOrder())
	}
}
