package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studymap-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	user.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.DisplayName,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, display_name, avatar_url, points, created_at, last_login_at
		FROM users WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.AvatarURL, &user.Points, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, display_name, avatar_url, points, created_at, last_login_at
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.AvatarURL, &user.Points, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET display_name = $1, email = $2, avatar_url = $3 WHERE id = $4",
		user.DisplayName, user.Email, user.AvatarURL, user.ID,
	)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) AddPoints(ctx context.Context, userID uuid.UUID, points int) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET points = points + $1 WHERE id = $2", points, userID)
	return err
}

// ListOthers returns every user except the caller, for the follow screen.
func (r *UserRepo) ListOthers(ctx context.Context, userID uuid.UUID) ([]models.FollowedUser, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, display_name FROM users WHERE id != $1 ORDER BY display_name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.FollowedUser
	for rows.Next() {
		var u models.FollowedUser
		if err := rows.Scan(&u.ID, &u.DisplayName); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Follow graph. The presence aggregator only ever consumes Followees; the
// write side is plain CRUD.

func (r *UserRepo) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, followerID, followeeID)
	return err
}

func (r *UserRepo) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2",
		followerID, followeeID)
	return err
}

func (r *UserRepo) Followees(ctx context.Context, userID uuid.UUID) ([]models.FollowedUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.display_name
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY u.display_name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var followees []models.FollowedUser
	for rows.Next() {
		var f models.FollowedUser
		if err := rows.Scan(&f.ID, &f.DisplayName); err != nil {
			return nil, err
		}
		followees = append(followees, f)
	}
	return followees, rows.Err()
}
