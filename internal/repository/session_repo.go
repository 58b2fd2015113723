package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studymap-backend/internal/models"
)

// SessionRepo persists sessions in Postgres. Membership lives in the
// session_members table: left_at IS NULL marks a current member, has_left
// marks anyone who ever left (past members survive a rejoin). All membership
// transitions row-lock the session so concurrent joins and leaves against the
// same session are serialized.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, sess *models.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, owner_id, session_type, description, space_id, is_active, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sess.ID, sess.OwnerID, sess.Type, sess.Description, sess.SpaceID, sess.IsActive, sess.StartTime)
	if err != nil {
		return mapPgError(err)
	}

	for _, member := range sess.Members {
		_, err = tx.Exec(ctx, `
			INSERT INTO session_members (session_id, user_id, joined_at)
			VALUES ($1, $2, $3)
		`, sess.ID, member, sess.StartTime)
		if err != nil {
			return mapPgError(err)
		}
	}

	return mapPgError(tx.Commit(ctx))
}

func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.load(ctx, r.pool, id, false)
}

// ActiveForUser scans active sessions for current membership. The exclusivity
// invariant guarantees at most one row; nil is returned when there is none.
func (r *SessionRepo) ActiveForUser(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT s.id
		FROM sessions s
		JOIN session_members m ON m.session_id = s.id
		WHERE m.user_id = $1 AND m.left_at IS NULL AND s.is_active
		LIMIT 1
	`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return r.Get(ctx, id)
}

// Transition applies fn to the session under a row lock and persists the
// resulting membership and activity state in the same transaction. No
// intermediate state (for example empty members while still active) is ever
// observable by another reader.
func (r *SessionRepo) Transition(ctx context.Context, id uuid.UUID, fn func(*models.Session) error) (*models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer tx.Rollback(ctx)

	sess, err := r.load(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	before := sess.Clone()

	if err := fn(sess); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, userID := range diffMembers(before.Members, sess.Members) {
		_, err = tx.Exec(ctx, `
			UPDATE session_members SET left_at = $3, has_left = TRUE
			WHERE session_id = $1 AND user_id = $2 AND left_at IS NULL
		`, id, userID, now)
		if err != nil {
			return nil, mapPgError(err)
		}
	}
	for _, userID := range diffMembers(sess.Members, before.Members) {
		_, err = tx.Exec(ctx, `
			INSERT INTO session_members (session_id, user_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (session_id, user_id) DO UPDATE SET left_at = NULL
		`, id, userID, now)
		if err != nil {
			return nil, mapPgError(err)
		}
	}

	if before.IsActive != sess.IsActive {
		_, err = tx.Exec(ctx, `
			UPDATE sessions SET is_active = $2, end_time = $3 WHERE id = $1
		`, id, sess.IsActive, sess.EndTime)
		if err != nil {
			return nil, mapPgError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}
	return sess, nil
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *SessionRepo) load(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*models.Session, error) {
	query := `
		SELECT id, owner_id, session_type, description, space_id, is_active, start_time, end_time
		FROM sessions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	sess := &models.Session{}
	err := q.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.OwnerID, &sess.Type, &sess.Description, &sess.SpaceID,
		&sess.IsActive, &sess.StartTime, &sess.EndTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}

	rows, err := q.Query(ctx, `
		SELECT user_id, left_at IS NULL, has_left
		FROM session_members WHERE session_id = $1 ORDER BY joined_at
	`, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID  uuid.UUID
			current bool
			hasLeft bool
		)
		if err := rows.Scan(&userID, &current, &hasLeft); err != nil {
			return nil, mapPgError(err)
		}
		if current {
			sess.Members = append(sess.Members, userID)
		}
		if hasLeft {
			sess.PastMembers = append(sess.PastMembers, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return sess, nil
}

// diffMembers returns the ids present in a but not in b.
func diffMembers(a, b []uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range a {
		found := false
		for _, other := range b {
			if id == other {
				found = true
				break
			}
		}
		if !found {
			out = append(out, id)
		}
	}
	return out
}

// mapPgError converts serialization failures and deadlocks into the domain's
// retryable contention error; everything else passes through.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", models.ErrStoreContention, pgErr.Message)
		case "23505": // unique_violation
			// Two devices racing a join can trip the one-active-session
			// partial index; that is a retryable race, not a server fault.
			if pgErr.ConstraintName == "session_members_one_active" {
				return fmt.Errorf("%w: %s", models.ErrStoreContention, pgErr.Message)
			}
		}
	}
	return err
}
