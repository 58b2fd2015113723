package models

import (
	"time"

	"github.com/google/uuid"
)

// StaleAfter is how old a location sample may be before it is rendered as
// stale. Staleness is derived at read time, never persisted.
const StaleAfter = 30 * time.Minute

// Sample is a user's last reported location. Writes are last-write-wins; no
// ordering is enforced beyond the store applying writes in receipt order.
type Sample struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`
}

// IsStale reports whether the sample's age exceeds StaleAfter. It is a pure
// function of (now, CapturedAt) so it self-corrects without an update.
func (s *Sample) IsStale(now time.Time) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.CapturedAt) > StaleAfter
}

// PresenceEntry is one followee's slice of the aggregated view. Location is
// null until the user first shares a location; SessionType is null when the
// user has no active session.
type PresenceEntry struct {
	UserID      uuid.UUID    `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Location    *Sample      `json:"location"`
	IsStale     bool         `json:"is_stale"`
	SessionType *SessionType `json:"session_type"`
}

// PresenceView is the per-viewer aggregated summary of all followees. It is
// recomputed on every relevant upstream change and never persisted.
type PresenceView struct {
	ViewerID    uuid.UUID       `json:"viewer_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Followees   []PresenceEntry `json:"followees"`
}

// WebSocket message envelope
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
