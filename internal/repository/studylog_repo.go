package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studymap-backend/internal/models"
)

type StudyLogRepo struct {
	pool *pgxpool.Pool
}

func NewStudyLogRepo(pool *pgxpool.Pool) *StudyLogRepo {
	return &StudyLogRepo{pool: pool}
}

func (r *StudyLogRepo) Insert(ctx context.Context, entry *models.StudyLogEntry) error {
	entry.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_log (id, user_id, session_id, session_type, started_at, ended_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.UserID, entry.SessionID, entry.SessionType,
		entry.StartedAt, entry.EndedAt, entry.DurationSeconds)
	return err
}

func (r *StudyLogRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.StudyLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, session_id, session_type, started_at, ended_at, duration_seconds
		FROM study_log WHERE user_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.StudyLogEntry
	for rows.Next() {
		var e models.StudyLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.SessionType,
			&e.StartedAt, &e.EndedAt, &e.DurationSeconds); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
