package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studymap-backend/internal/events"
	"studymap-backend/internal/models"
	"studymap-backend/internal/repository"
)

const (
	maxJobRetries = 3
	// A single stretch is capped at 12 hours; anything longer is a client
	// clock problem, not a study marathon.
	maxDurationSeconds = 43200
)

// Pool drains the study-log queue: every job is one user's finished stretch
// of participation in a session, turned into a study_log row.
type Pool struct {
	redis       *redis.Client
	logRepo     *repository.StudyLogRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, logRepo *repository.StudyLogRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		logRepo:     logRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, events.StudyLogQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.StudyLogJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse study-log job: %v", id, err)
			continue
		}

		if err := p.process(ctx, &job); err != nil {
			log.Printf("Worker %d: study-log job for %s failed: %v", id, job.UserID, err)
			p.requeue(ctx, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, job *models.StudyLogJob) error {
	entry := &models.StudyLogEntry{
		UserID:          job.UserID,
		SessionID:       job.SessionID,
		SessionType:     job.SessionType,
		StartedAt:       job.StartedAt,
		EndedAt:         job.EndedAt,
		DurationSeconds: computeDuration(job.StartedAt, job.EndedAt),
	}
	return p.logRepo.Insert(ctx, entry)
}

func (p *Pool) requeue(ctx context.Context, job models.StudyLogJob) {
	job.RetryCount++
	if job.RetryCount >= maxJobRetries {
		log.Printf("Dropping study-log job for %s after %d attempts", job.UserID, job.RetryCount)
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return
	}
	p.redis.RPush(ctx, events.StudyLogQueue, payload)
}

// computeDuration clamps to [0, maxDurationSeconds].
func computeDuration(start, end time.Time) int {
	secs := int(end.Sub(start).Seconds())
	if secs < 0 {
		return 0
	}
	if secs > maxDurationSeconds {
		return maxDurationSeconds
	}
	return secs
}
