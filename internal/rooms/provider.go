package rooms

import (
	"context"
	"fmt"
	"time"
)

// Room is one provisioned call room. The room id doubles as the
// session id.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Provider owns call-room lifecycle at the video-calling vendor.
type Provider interface {
	CreateRoom(ctx context.Context, expiry time.Time) (Room, error)
	DeleteRoom(ctx context.Context, name string) error
}

// ProvisioningError wraps a room create/delete failure with the
// operation that failed. The cause is never swallowed.
type ProvisioningError struct {
	Op  string
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("room %s failed: %v", e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
