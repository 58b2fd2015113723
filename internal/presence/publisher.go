package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studymap-backend/internal/events"
	"studymap-backend/internal/models"
)

// Publisher stores each user's latest location sample and announces the write
// on the user's presence channel. It is a pure "store latest sample"
// primitive: writes overwrite unconditionally (last-write-wins) and emission
// cadence is the caller's policy.
type Publisher struct {
	redis *redis.Client
	bus   *events.Bus
}

func NewPublisher(redisClient *redis.Client, bus *events.Bus) *Publisher {
	return &Publisher{redis: redisClient, bus: bus}
}

func presenceKey(userID uuid.UUID) string { return "presence:" + userID.String() }

// Publish persists the sample as the user's current location. Coordinates
// must be finite; out-of-range values are stored as-is, this is a reporting
// component, not a validating one.
func (p *Publisher) Publish(ctx context.Context, userID uuid.UUID, lat, lon float64, capturedAt time.Time) error {
	if userID == uuid.Nil {
		return models.ErrInvalidActor
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return models.ErrInvalidCoordinates
	}

	sample := models.Sample{Latitude: lat, Longitude: lon, CapturedAt: capturedAt}
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	if err := p.redis.Set(ctx, presenceKey(userID), payload, 0).Err(); err != nil {
		return fmt.Errorf("store sample for %s: %w", userID, err)
	}

	p.bus.PresenceChanged(ctx, userID)
	return nil
}

// Last returns the user's most recent sample, or nil when the user has never
// shared a location.
func (p *Publisher) Last(ctx context.Context, userID uuid.UUID) (*models.Sample, error) {
	payload, err := p.redis.Get(ctx, presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sample := &models.Sample{}
	if err := json.Unmarshal(payload, sample); err != nil {
		return nil, fmt.Errorf("decode sample for %s: %w", userID, err)
	}
	return sample, nil
}
