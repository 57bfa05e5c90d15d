package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/care-map/internal/domain"
)

// InstitutionsRepository provides persistence helpers for institutions.
type InstitutionsRepository struct {
	pool *pgxpool.Pool
}

// Create inserts an institution. Existing ids are left untouched and
// reported with inserted=false.
func (r *InstitutionsRepository) Create(ctx context.Context, id, name string) (bool, error) {
	const query = `
        INSERT INTO institutions (id, name)
        VALUES ($1, $2)
        ON CONFLICT (id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, query, id, name)
	if err != nil {
		return false, fmt.Errorf("create institution: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get retrieves an institution by id.
func (r *InstitutionsRepository) Get(ctx context.Context, id string) (domain.Institution, error) {
	const query = `
        SELECT id, name, created_at
        FROM institutions
        WHERE id = $1
    `
	var inst domain.Institution
	err := r.pool.QueryRow(ctx, query, id).Scan(&inst.ID, &inst.Name, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Institution{}, ErrNotFound
		}
		return domain.Institution{}, fmt.Errorf("get institution: %w", err)
	}
	return inst, nil
}

// Delete removes an institution together with its ratings.
func (r *InstitutionsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count reports the number of institutions.
func (r *InstitutionsRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM institutions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count institutions: %w", err)
	}
	return n, nil
}

// ListWithRatings loads every institution in insertion order with its
// ratings in creation order, using a single query so the result is one
// consistent read.
func (r *InstitutionsRepository) ListWithRatings(ctx context.Context) ([]domain.InstitutionRatings, error) {
	const query = `
        SELECT i.id, i.name, i.created_at, r.id, r.rating, r.created_at
        FROM institutions i
        LEFT JOIN ratings r ON r.institution_id = i.id
        ORDER BY i.seq, r.id
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	result := make([]domain.InstitutionRatings, 0)
	for rows.Next() {
		var (
			inst          domain.Institution
			ratingID      *int64
			ratingValue   *int32
			ratingCreated *time.Time
		)
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.CreatedAt, &ratingID, &ratingValue, &ratingCreated); err != nil {
			return nil, fmt.Errorf("scan institution row: %w", err)
		}

		if n := len(result); n == 0 || result[n-1].Institution.ID != inst.ID {
			result = append(result, domain.InstitutionRatings{
				Institution: inst,
				Ratings:     make([]domain.Rating, 0),
			})
		}
		if ratingID == nil {
			continue
		}
		last := &result[len(result)-1]
		last.Ratings = append(last.Ratings, domain.Rating{
			ID:            *ratingID,
			InstitutionID: inst.ID,
			Value:         int(*ratingValue),
			CreatedAt:     *ratingCreated,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate institutions: %w", err)
	}
	return result, nil
}
