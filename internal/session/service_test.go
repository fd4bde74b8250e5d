package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/links"
	"github.com/mindhaven/livesession/internal/rooms"
)

func newTestService(t *testing.T) (*Service, *InMemoryStore, *rooms.Mock) {
	t.Helper()
	store := NewInMemoryStore()
	provider := rooms.NewMock()
	builder, err := links.NewBuilder("https://app.local/join")
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	svc := NewService(store, provider, builder, 2*time.Hour, zerolog.Nop())
	return svc, store, provider
}

func createTestSession(t *testing.T, svc *Service, facilitator string) *Session {
	t.Helper()
	sess, err := svc.CreateSession(context.Background(), facilitator, CreateRequest{
		ContentID: "breathing-101",
		Type:      TypePublic,
		StartTime: time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC),
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return sess
}

func TestCreateSessionUsesRoomIDAsSessionID(t *testing.T) {
	svc, _, provider := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	if len(provider.Created) != 1 {
		t.Fatalf("rooms created = %d, want 1", len(provider.Created))
	}
	if sess.ID != provider.Created[0].ID {
		t.Fatalf("session id = %q, want room id %q", sess.ID, provider.Created[0].ID)
	}
	if sess.URL != provider.Created[0].URL {
		t.Fatalf("session url = %q, want room url %q", sess.URL, provider.Created[0].URL)
	}
	if sess.Link == "" {
		t.Fatalf("session link should not be empty")
	}
	if sess.ExerciseState.Index != 0 || sess.ExerciseState.Playing {
		t.Fatalf("unexpected initial exercise state: %+v", sess.ExerciseState)
	}
}

func TestCreateSessionRoomFailureWritesNothing(t *testing.T) {
	svc, store, provider := newTestService(t)
	provider.CreateErr = errors.New("room api down")

	_, err := svc.CreateSession(context.Background(), "facilitator-1", CreateRequest{
		ContentID: "breathing-101",
		StartTime: time.Now().UTC(),
	})
	var provErr *rooms.ProvisioningError
	if !errors.As(err, &provErr) {
		t.Fatalf("CreateSession() error = %v, want *rooms.ProvisioningError", err)
	}

	list, _ := store.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("store has %d sessions after failed provisioning, want 0", len(list))
	}
}

func TestCreateSessionValidatesRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, "", CreateRequest{ContentID: "c", StartTime: time.Now()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing facilitator error = %v, want ErrInvalidRequest", err)
	}
	if _, err := svc.CreateSession(ctx, "u1", CreateRequest{StartTime: time.Now()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing content error = %v, want ErrInvalidRequest", err)
	}
	if _, err := svc.CreateSession(ctx, "u1", CreateRequest{ContentID: "c"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing start time error = %v, want ErrInvalidRequest", err)
	}
}

func TestUpdateExerciseStateRejectsNonFacilitator(t *testing.T) {
	svc, store, _ := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")
	before, _ := store.Get(context.Background(), sess.ID)

	idx := 1
	_, err := svc.UpdateExerciseState(context.Background(), "intruder", sess.ID, StateUpdate{Index: &idx})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("UpdateExerciseState() error = %v, want ErrUnauthorized", err)
	}

	after, _ := store.Get(context.Background(), sess.ID)
	if *after != *before {
		t.Fatalf("stored state changed on unauthorized update:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestUpdateExerciseStateNotFoundBeforeUnauthorized(t *testing.T) {
	svc, _, _ := newTestService(t)

	idx := 1
	_, err := svc.UpdateExerciseState(context.Background(), "whoever", "missing", StateUpdate{Index: &idx})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("UpdateExerciseState() error = %v, want ErrSessionNotFound", err)
	}
}

func TestUpdateExerciseStateMergesAndStampsTimestamp(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	playing := true
	updated, err := svc.UpdateExerciseState(context.Background(), "facilitator-1", sess.ID, StateUpdate{Playing: &playing})
	if err != nil {
		t.Fatalf("UpdateExerciseState() error = %v", err)
	}
	if !updated.ExerciseState.Playing {
		t.Fatalf("Playing = false, want true")
	}
	if updated.ExerciseState.Index != sess.ExerciseState.Index {
		t.Fatalf("Index changed by a playing-only update")
	}
	if !updated.ExerciseState.Timestamp.After(sess.ExerciseState.Timestamp) {
		t.Fatalf("server-assigned timestamp %v not after %v", updated.ExerciseState.Timestamp, sess.ExerciseState.Timestamp)
	}
}

func TestUpdateExerciseStateRejectsEmptyUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	_, err := svc.UpdateExerciseState(context.Background(), "facilitator-1", sess.ID, StateUpdate{})
	if !errors.Is(err, ErrEmptyUpdate) {
		t.Fatalf("UpdateExerciseState() error = %v, want ErrEmptyUpdate", err)
	}
}

func TestUpdateSessionUnauthorizedForMissingSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	started := true
	_, err := svc.UpdateSession(context.Background(), "whoever", "missing", Update{Started: &started})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("UpdateSession() error = %v, want ErrUnauthorized", err)
	}
}

func TestUpdateSessionAppliesPartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	started := true
	updated, err := svc.UpdateSession(context.Background(), "facilitator-1", sess.ID, Update{Started: &started})
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	if !updated.Started || updated.Ended {
		t.Fatalf("got started=%v ended=%v, want started only", updated.Started, updated.Ended)
	}
}

func TestRemoveSessionDeletesRoomAndRecord(t *testing.T) {
	svc, store, provider := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	if err := svc.RemoveSession(context.Background(), "facilitator-1", sess.ID); err != nil {
		t.Fatalf("RemoveSession() error = %v", err)
	}
	if len(provider.Deleted) != 1 || provider.Deleted[0] != sess.RoomName {
		t.Fatalf("deleted rooms = %v, want [%s]", provider.Deleted, sess.RoomName)
	}
	if _, err := store.Get(context.Background(), sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("record still present after removal")
	}
}

func TestRemoveSessionIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	if err := svc.RemoveSession(context.Background(), "facilitator-1", sess.ID); err != nil {
		t.Fatalf("first RemoveSession() error = %v", err)
	}
	if err := svc.RemoveSession(context.Background(), "facilitator-1", sess.ID); err != nil {
		t.Fatalf("second RemoveSession() error = %v", err)
	}
}

func TestRemoveSessionRejectsNonFacilitator(t *testing.T) {
	svc, store, _ := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")

	if err := svc.RemoveSession(context.Background(), "intruder", sess.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("RemoveSession() error = %v, want ErrUnauthorized", err)
	}
	if _, err := store.Get(context.Background(), sess.ID); err != nil {
		t.Fatalf("session disappeared after unauthorized removal")
	}
}

func TestRemoveSessionKeepsRecordWhenRoomDeleteFails(t *testing.T) {
	svc, store, provider := newTestService(t)
	sess := createTestSession(t, svc, "facilitator-1")
	provider.DeleteErr = errors.New("room api down")

	err := svc.RemoveSession(context.Background(), "facilitator-1", sess.ID)
	var provErr *rooms.ProvisioningError
	if !errors.As(err, &provErr) {
		t.Fatalf("RemoveSession() error = %v, want *rooms.ProvisioningError", err)
	}
	if _, err := store.Get(context.Background(), sess.ID); err != nil {
		t.Fatalf("record deleted although the room still exists")
	}
}
