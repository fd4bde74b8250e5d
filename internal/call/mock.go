package call

import (
	"context"
	"errors"
	"sync"
)

// MockCall implements Call in-process. Tests drive it by setting error
// hooks and emitting events.
type MockCall struct {
	mu        sync.Mutex
	state     MeetingState
	destroyed bool
	handlers  map[EventType]map[int]Handler
	nextID    int

	participants map[string]Participant

	PreAuthErr     error
	StartCameraErr error
	JoinErr        error
	LeaveErr       error

	PreAuthedURL  string
	CameraURL     string
	JoinedOptions *JoinOptions
	UserName      string
	UserData      any
	LocalAudio    bool
	LocalVideo    bool
	AutoSubscribe bool
	DestroyCount  int
}

func NewMockCall() *MockCall {
	return &MockCall{
		state:        MeetingStateNew,
		handlers:     make(map[EventType]map[int]Handler),
		participants: make(map[string]Participant),
	}
}

func (m *MockCall) PreAuth(_ context.Context, roomURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PreAuthErr != nil {
		return m.PreAuthErr
	}
	m.PreAuthedURL = roomURL
	return nil
}

func (m *MockCall) StartCamera(_ context.Context, roomURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartCameraErr != nil {
		return m.StartCameraErr
	}
	m.CameraURL = roomURL
	return nil
}

func (m *MockCall) Join(_ context.Context, opts JoinOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.JoinErr != nil {
		return m.JoinErr
	}
	m.state = MeetingStateJoined
	m.JoinedOptions = &opts
	return nil
}

func (m *MockCall) Leave(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = MeetingStateLeft
	if m.LeaveErr != nil {
		return m.LeaveErr
	}
	return nil
}

func (m *MockCall) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return errors.New("call already destroyed")
	}
	m.destroyed = true
	m.DestroyCount++
	return nil
}

func (m *MockCall) SetLocalAudio(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LocalAudio = enabled
}

func (m *MockCall) SetLocalVideo(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LocalVideo = enabled
}

func (m *MockCall) SetUserName(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UserName = name
	return nil
}

func (m *MockCall) SetUserData(_ context.Context, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UserData = data
	return nil
}

func (m *MockCall) SetSubscribeToTracksAutomatically(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AutoSubscribe = enabled
}

func (m *MockCall) MeetingState() MeetingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockCall) Participants() map[string]Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Participant, len(m.participants))
	for id, p := range m.participants {
		out[id] = p
	}
	return out
}

func (m *MockCall) On(t EventType, h Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers[t] == nil {
		m.handlers[t] = make(map[int]Handler)
	}
	m.nextID++
	id := m.nextID
	m.handlers[t][id] = h
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[t], id)
	}
}

// SetParticipant seeds the subsystem's participant snapshot.
func (m *MockCall) SetParticipant(key string, p Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[key] = p
}

// Emit delivers an event synchronously to every registered handler.
func (m *MockCall) Emit(ev Event) {
	m.mu.Lock()
	hs := make([]Handler, 0, len(m.handlers[ev.Type]))
	for _, h := range m.handlers[ev.Type] {
		hs = append(hs, h)
	}
	m.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

// HandlerCount reports how many handlers are registered for t.
func (m *MockCall) HandlerCount(t EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[t])
}

// Destroyed reports whether Destroy has run.
func (m *MockCall) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}
