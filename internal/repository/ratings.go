package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/care-map/internal/domain"
)

// foreignKeyViolation is the SQLSTATE raised when institution_id has no match.
const foreignKeyViolation = "23503"

// RatingsRepository provides helpers for institution ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// Create appends a rating. A missing institution surfaces as ErrNotFound.
func (r *RatingsRepository) Create(ctx context.Context, institutionID string, value int) (domain.Rating, error) {
	const query = `
        INSERT INTO ratings (institution_id, rating)
        VALUES ($1, $2)
        RETURNING id, institution_id, rating, created_at
    `

	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, institutionID, value).Scan(
		&rating.ID,
		&rating.InstitutionID,
		&rating.Value,
		&rating.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("create rating: %w", err)
	}
	return rating, nil
}

// ListByInstitution returns an institution's ratings in creation order.
func (r *RatingsRepository) ListByInstitution(ctx context.Context, institutionID string) ([]domain.Rating, error) {
	const query = `
        SELECT id, institution_id, rating, created_at
        FROM ratings
        WHERE institution_id = $1
        ORDER BY id
    `
	rows, err := r.pool.Query(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(&rating.ID, &rating.InstitutionID, &rating.Value, &rating.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}
