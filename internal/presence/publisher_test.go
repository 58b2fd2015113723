package presence

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"studymap-backend/internal/models"
)

func TestPublishRejectsBadInput(t *testing.T) {
	// Validation happens before any store access.
	p := NewPublisher(nil, nil)
	now := time.Now()

	err := p.Publish(context.Background(), uuid.Nil, 1, 2, now)
	assert.ErrorIs(t, err, models.ErrInvalidActor)

	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"NaN latitude", math.NaN(), 0},
		{"NaN longitude", 0, math.NaN()},
		{"Inf latitude", math.Inf(1), 0},
		{"negative Inf longitude", 0, math.Inf(-1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Publish(context.Background(), uuid.New(), tc.lat, tc.lon, now)
			assert.ErrorIs(t, err, models.ErrInvalidCoordinates)
		})
	}
}

func TestPresenceKey(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "presence:"+id.String(), presenceKey(id))
}
