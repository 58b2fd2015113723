package models

import (
	"time"

	"github.com/google/uuid"
)

// StudyLogJob is queued on redis when a user leaves or ends a session; the
// worker pool turns it into a StudyLogEntry row.
type StudyLogJob struct {
	UserID      uuid.UUID   `json:"user_id"`
	SessionID   uuid.UUID   `json:"session_id"`
	SessionType SessionType `json:"session_type"`
	StartedAt   time.Time   `json:"started_at"`
	EndedAt     time.Time   `json:"ended_at"`
	RetryCount  int         `json:"retry_count"`
}

// StudyLogEntry is one completed stretch of participation in a session.
type StudyLogEntry struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	SessionID       uuid.UUID   `json:"session_id"`
	SessionType     SessionType `json:"session_type"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         time.Time   `json:"ended_at"`
	DurationSeconds int         `json:"duration_seconds"`
}
