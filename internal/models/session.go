package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionType string

const (
	SessionIndividual SessionType = "individual"
	SessionQuietGroup SessionType = "quiet-group"
	SessionCollab     SessionType = "collab-group"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionIndividual, SessionQuietGroup, SessionCollab:
		return true
	}
	return false
}

// Session is a time-bounded, possibly multi-user study activity. Members is
// the set of users currently participating; PastMembers is retained for
// history and survives rejoins. A session with no members is always inactive
// with EndTime set, and an ended session never reactivates.
type Session struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Type        SessionType `json:"session_type"`
	Description string      `json:"description"`
	SpaceID     *uuid.UUID  `json:"space_id,omitempty"`
	Members     []uuid.UUID `json:"members"`
	PastMembers []uuid.UUID `json:"past_members"`
	IsActive    bool        `json:"is_active"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     *time.Time  `json:"end_time"`
}

func (s *Session) HasMember(userID uuid.UUID) bool {
	for _, id := range s.Members {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Session) HasPastMember(userID uuid.UUID) bool {
	for _, id := range s.PastMembers {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember appends userID to Members if not already present.
func (s *Session) AddMember(userID uuid.UUID) {
	if !s.HasMember(userID) {
		s.Members = append(s.Members, userID)
	}
}

// RemoveMember takes userID out of Members and records it in PastMembers
// without duplicating. Returns whether the user was a member.
func (s *Session) RemoveMember(userID uuid.UUID) bool {
	for i, id := range s.Members {
		if id == userID {
			s.Members = append(s.Members[:i], s.Members[i+1:]...)
			if !s.HasPastMember(userID) {
				s.PastMembers = append(s.PastMembers, userID)
			}
			return true
		}
	}
	return false
}

// Elapsed reports whole seconds since the session started, zero for a nil or
// inactive session.
func (s *Session) Elapsed(now time.Time) int {
	if s == nil || !s.IsActive {
		return 0
	}
	secs := int(now.Sub(s.StartTime).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// Clone returns a deep copy, used by stores that hand state to a mutation
// callback and must compare against the pre-image afterwards.
func (s *Session) Clone() *Session {
	c := *s
	c.Members = append([]uuid.UUID(nil), s.Members...)
	c.PastMembers = append([]uuid.UUID(nil), s.PastMembers...)
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.SpaceID != nil {
		id := *s.SpaceID
		c.SpaceID = &id
	}
	return &c
}
