package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studymap-backend/internal/models"
)

type SpaceRepo struct {
	pool *pgxpool.Pool
}

func NewSpaceRepo(pool *pgxpool.Pool) *SpaceRepo {
	return &SpaceRepo{pool: pool}
}

func (r *SpaceRepo) Create(ctx context.Context, space *models.StudySpace) error {
	space.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO study_spaces (id, name, description, latitude, longitude, features, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, space.ID, space.Name, space.Description, space.Latitude, space.Longitude,
		space.Features, space.CreatedBy,
	).Scan(&space.CreatedAt)
}

func (r *SpaceRepo) Get(ctx context.Context, id uuid.UUID) (*models.StudySpace, error) {
	space := &models.StudySpace{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, latitude, longitude, features, num_ratings, rating_total, created_by, created_at
		FROM study_spaces WHERE id = $1
	`, id).Scan(
		&space.ID, &space.Name, &space.Description, &space.Latitude, &space.Longitude,
		&space.Features, &space.NumRatings, &space.RatingTotal, &space.CreatedBy, &space.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return space, nil
}

func (r *SpaceRepo) List(ctx context.Context) ([]models.StudySpace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, latitude, longitude, features, num_ratings, rating_total, created_by, created_at
		FROM study_spaces ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSpaces(rows)
}

func (r *SpaceRepo) Save(ctx context.Context, userID, spaceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO saved_spaces (user_id, space_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, spaceID)
	return err
}

func (r *SpaceRepo) Unsave(ctx context.Context, userID, spaceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"DELETE FROM saved_spaces WHERE user_id = $1 AND space_id = $2", userID, spaceID)
	return err
}

func (r *SpaceRepo) ListSaved(ctx context.Context, userID uuid.UUID) ([]models.StudySpace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.name, s.description, s.latitude, s.longitude, s.features, s.num_ratings, s.rating_total, s.created_by, s.created_at
		FROM saved_spaces v
		JOIN study_spaces s ON s.id = v.space_id
		WHERE v.user_id = $1
		ORDER BY s.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSpaces(rows)
}

// AddReview inserts the review and bumps the space's rating counters in one
// transaction so the average never reflects a half-applied review.
func (r *SpaceRepo) AddReview(ctx context.Context, review *models.SpaceReview) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	review.ID = uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO space_reviews (id, space_id, user_id, rating, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, review.ID, review.SpaceID, review.UserID, review.Rating, review.Text).Scan(&review.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE study_spaces
		SET num_ratings = num_ratings + 1, rating_total = rating_total + $2
		WHERE id = $1
	`, review.SpaceID, review.Rating)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *SpaceRepo) ListReviews(ctx context.Context, spaceID uuid.UUID) ([]models.SpaceReview, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, space_id, user_id, rating, text, created_at
		FROM space_reviews WHERE space_id = $1 ORDER BY created_at DESC
	`, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []models.SpaceReview
	for rows.Next() {
		var rv models.SpaceReview
		if err := rows.Scan(&rv.ID, &rv.SpaceID, &rv.UserID, &rv.Rating, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func scanSpaces(rows pgx.Rows) ([]models.StudySpace, error) {
	var spaces []models.StudySpace
	for rows.Next() {
		var s models.StudySpace
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &s.Latitude, &s.Longitude,
			&s.Features, &s.NumRatings, &s.RatingTotal, &s.CreatedBy, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}
