package repository

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/Clark-Hu/care-map/internal/domain"
)

// Memory is an in-process store with the same contract and ordering as the
// Postgres repository. It is not durable.
type Memory struct {
	mu           sync.RWMutex
	clock        clockwork.Clock
	institutions []domain.Institution
	index        map[string]int
	ratings      map[string][]domain.Rating
	nextRatingID int64
}

// NewMemory returns an empty in-memory store. A nil clock uses wall time.
func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:   clock,
		index:   make(map[string]int),
		ratings: make(map[string][]domain.Rating),
	}
}

// CreateInstitution appends an institution; existing ids are left untouched.
func (m *Memory) CreateInstitution(_ context.Context, id, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; ok {
		return false, nil
	}
	m.index[id] = len(m.institutions)
	m.institutions = append(m.institutions, domain.Institution{
		ID:        id,
		Name:      name,
		CreatedAt: m.clock.Now().UTC(),
	})
	return true, nil
}

// CountInstitutions reports how many institutions exist.
func (m *Memory) CountInstitutions(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.institutions), nil
}

// DeleteInstitution removes an institution and its ratings.
func (m *Memory) DeleteInstitution(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.index[id]
	if !ok {
		return ErrNotFound
	}
	m.institutions = append(m.institutions[:pos], m.institutions[pos+1:]...)
	delete(m.index, id)
	delete(m.ratings, id)
	for i := pos; i < len(m.institutions); i++ {
		m.index[m.institutions[i].ID] = i
	}
	return nil
}

// FindInstitution returns the institution with the given id or ErrNotFound.
func (m *Memory) FindInstitution(_ context.Context, id string) (domain.Institution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.index[id]
	if !ok {
		return domain.Institution{}, ErrNotFound
	}
	return m.institutions[pos], nil
}

// AddRating appends a rating for an existing institution.
func (m *Memory) AddRating(_ context.Context, institutionID string, value int) (domain.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[institutionID]; !ok {
		return domain.Rating{}, ErrNotFound
	}
	m.nextRatingID++
	rating := domain.Rating{
		ID:            m.nextRatingID,
		InstitutionID: institutionID,
		Value:         value,
		CreatedAt:     m.clock.Now().UTC(),
	}
	m.ratings[institutionID] = append(m.ratings[institutionID], rating)
	return rating, nil
}

// ListInstitutionsWithRatings returns copies so callers never alias store state.
func (m *Memory) ListInstitutionsWithRatings(context.Context) ([]domain.InstitutionRatings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.InstitutionRatings, 0, len(m.institutions))
	for _, inst := range m.institutions {
		src := m.ratings[inst.ID]
		ratings := make([]domain.Rating, len(src))
		copy(ratings, src)
		result = append(result, domain.InstitutionRatings{Institution: inst, Ratings: ratings})
	}
	return result, nil
}

// HealthCheck always succeeds for the in-memory store.
func (m *Memory) HealthCheck(context.Context) error {
	return nil
}
