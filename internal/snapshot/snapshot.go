// Package snapshot projects store state into the client-facing view pushed
// to live subscribers and served on demand.
package snapshot

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/care-map/internal/domain"
)

// Institution is one entry of a Snapshot.
type Institution struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Ratings []int  `json:"ratings"`
}

// Snapshot is the ordered view of every institution and its rating values.
type Snapshot []Institution

// Source is the read side of the store needed to build a Snapshot.
type Source interface {
	ListInstitutionsWithRatings(ctx context.Context) ([]domain.InstitutionRatings, error)
}

// Build reads the store and projects it. Nothing is cached; every call
// reflects the store at the instant of the read.
func Build(ctx context.Context, src Source) (Snapshot, error) {
	list, err := src.ListInstitutionsWithRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	return FromInstitutions(list), nil
}

// FromInstitutions projects already-loaded rows. Ratings whose
// InstitutionID does not match their owner are skipped.
func FromInstitutions(list []domain.InstitutionRatings) Snapshot {
	snap := make(Snapshot, 0, len(list))
	for _, item := range list {
		values := make([]int, 0, len(item.Ratings))
		for _, r := range item.Ratings {
			if r.InstitutionID != item.Institution.ID {
				continue
			}
			values = append(values, r.Value)
		}
		snap = append(snap, Institution{
			ID:      item.Institution.ID,
			Name:    item.Institution.Name,
			Ratings: values,
		})
	}
	return snap
}
