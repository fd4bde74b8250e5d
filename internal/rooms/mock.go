package rooms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mock is an in-process room provider for local/dev and tests.
type Mock struct {
	mu      sync.Mutex
	seq     int
	Created []Room
	Deleted []string

	CreateErr error
	DeleteErr error
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) CreateRoom(_ context.Context, _ time.Time) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return Room{}, &ProvisioningError{Op: "create", Err: m.CreateErr}
	}
	m.seq++
	room := Room{
		ID:   uuid.NewString(),
		Name: fmt.Sprintf("room-%d", m.seq),
	}
	room.URL = "https://rooms.local/" + room.Name
	m.Created = append(m.Created, room)
	return room, nil
}

func (m *Mock) DeleteRoom(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return &ProvisioningError{Op: "delete", Err: m.DeleteErr}
	}
	m.Deleted = append(m.Deleted, name)
	return nil
}
