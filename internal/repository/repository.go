package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/care-map/internal/domain"
	"github.com/Clark-Hu/care-map/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = domain.ErrNotFound

// Repository aggregates the Postgres-backed repositories and satisfies the
// coordinator's store contract.
type Repository struct {
	Institutions *InstitutionsRepository
	Ratings      *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Institutions: &InstitutionsRepository{pool: pool},
		Ratings:      &RatingsRepository{pool: pool},
	}
}

// FindInstitution returns the institution with the given id or ErrNotFound.
func (r *Repository) FindInstitution(ctx context.Context, id string) (domain.Institution, error) {
	return r.Institutions.Get(ctx, id)
}

// AddRating persists a rating for an existing institution.
func (r *Repository) AddRating(ctx context.Context, institutionID string, value int) (domain.Rating, error) {
	return r.Ratings.Create(ctx, institutionID, value)
}

// ListInstitutionsWithRatings returns every institution with its ratings.
func (r *Repository) ListInstitutionsWithRatings(ctx context.Context) ([]domain.InstitutionRatings, error) {
	return r.Institutions.ListWithRatings(ctx)
}

// CreateInstitution inserts an institution, reporting whether it was new.
func (r *Repository) CreateInstitution(ctx context.Context, id, name string) (bool, error) {
	return r.Institutions.Create(ctx, id, name)
}

// CountInstitutions reports how many institutions exist.
func (r *Repository) CountInstitutions(ctx context.Context) (int, error) {
	return r.Institutions.Count(ctx)
}
