package session

import "time"

// Type says who can discover a session.
type Type string

const (
	TypePublic  Type = "public"
	TypePrivate Type = "private"
)

// ExerciseState is the shared playback position within a session. It is
// the single point of truth every participant reconciles against.
type ExerciseState struct {
	Index     int       `json:"index"`
	Playing   bool      `json:"playing"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one scheduled, facilitator-led group exercise occasion
// bound to a call room. The session id equals the room id.
type Session struct {
	ID            string        `json:"id"`
	ContentID     string        `json:"contentId"`
	Language      string        `json:"language"`
	Type          Type          `json:"type"`
	Facilitator   string        `json:"facilitator"`
	StartTime     time.Time     `json:"startTime"`
	Started       bool          `json:"started"`
	Ended         bool          `json:"ended"`
	Link          string        `json:"link"`
	URL           string        `json:"url"`
	RoomName      string        `json:"-"`
	ExerciseState ExerciseState `json:"exerciseState"`
}

// CreateRequest defines payload for scheduling a new session.
type CreateRequest struct {
	ContentID string    `json:"contentId"`
	Type      Type      `json:"type"`
	StartTime time.Time `json:"startTime"`
	Language  string    `json:"language"`
}

// Update is a partial session mutation. Nil fields are left untouched.
type Update struct {
	Started *bool `json:"started"`
	Ended   *bool `json:"ended"`
}

func (u Update) IsEmpty() bool {
	return u.Started == nil && u.Ended == nil
}

// StateUpdate is a partial exercise state mutation. Nil fields are left
// untouched, so a request carrying a single field never clobbers the
// others.
type StateUpdate struct {
	Index     *int       `json:"index"`
	Playing   *bool      `json:"playing"`
	Timestamp *time.Time `json:"timestamp"`
}

func (u StateUpdate) IsEmpty() bool {
	return u.Index == nil && u.Playing == nil && u.Timestamp == nil
}
