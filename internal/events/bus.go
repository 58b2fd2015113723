package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studymap-backend/internal/models"
)

const StudyLogQueue = "queue:study-log"

// Channel names, one per user so subscribers pay only for the users they
// watch.

func PresenceChannel(userID uuid.UUID) string { return "presence.updates." + userID.String() }
func SessionChannel(userID uuid.UUID) string  { return "session.updates." + userID.String() }
func FollowChannel(userID uuid.UUID) string   { return "follow.updates." + userID.String() }

// Bus is the change-notification fabric between the session store, the
// presence publisher and the presence aggregator, built on redis pub/sub plus
// a redis list for study-log jobs. Publishes are best-effort: a dropped
// notification delays a view refresh, it never loses store state.
type Bus struct {
	queue  *redis.Client
	pubsub *redis.Client
}

func NewBus(queueClient, pubsubClient *redis.Client) *Bus {
	return &Bus{queue: queueClient, pubsub: pubsubClient}
}

// SessionChanged notifies each affected user's session channel. Implements
// session.Notifier.
func (b *Bus) SessionChanged(ctx context.Context, userIDs ...uuid.UUID) {
	for _, id := range userIDs {
		if err := b.pubsub.Publish(ctx, SessionChannel(id), "changed").Err(); err != nil {
			log.Printf("events: publish session change for %s: %v", id, err)
		}
	}
}

func (b *Bus) PresenceChanged(ctx context.Context, userID uuid.UUID) {
	if err := b.pubsub.Publish(ctx, PresenceChannel(userID), "changed").Err(); err != nil {
		log.Printf("events: publish presence change for %s: %v", userID, err)
	}
}

func (b *Bus) FollowsChanged(ctx context.Context, viewerID uuid.UUID) {
	if err := b.pubsub.Publish(ctx, FollowChannel(viewerID), "changed").Err(); err != nil {
		log.Printf("events: publish follow change for %s: %v", viewerID, err)
	}
}

// EnqueueStudyLog pushes a study-log job for the worker pool. Implements the
// queue half of session.Notifier.
func (b *Bus) EnqueueStudyLog(ctx context.Context, job models.StudyLogJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		log.Printf("events: marshal study-log job: %v", err)
		return
	}
	if err := b.queue.RPush(ctx, StudyLogQueue, payload).Err(); err != nil {
		log.Printf("events: enqueue study-log job for %s: %v", job.UserID, err)
	}
}

// Subscribe listens on the given channels until cancel is called (or ctx is
// done) and forwards the name of each channel that fires. The returned
// channel is closed on teardown.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) (<-chan string, func(), error) {
	sub := b.pubsub.Subscribe(ctx, channels...)
	// Force the subscription onto the wire so setup errors surface here
	// instead of as a silent dead channel.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan string, 8)

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Channel:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	stop := func() {
		cancel()
		sub.Close()
	}
	return out, stop, nil
}
