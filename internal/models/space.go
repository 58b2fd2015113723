package models

import (
	"time"

	"github.com/google/uuid"
)

type StudySpace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Features    []string  `json:"features"`
	NumRatings  int       `json:"num_ratings"`
	RatingTotal int       `json:"-"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// AverageRating is derived; zero when the space has no reviews yet.
func (s *StudySpace) AverageRating() float64 {
	if s.NumRatings == 0 {
		return 0
	}
	return float64(s.RatingTotal) / float64(s.NumRatings)
}

type SpaceReview struct {
	ID        uuid.UUID `json:"id"`
	SpaceID   uuid.UUID `json:"space_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
