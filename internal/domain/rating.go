package domain

import "time"

// Rating is a single immutable score submitted for an institution.
type Rating struct {
	ID            int64
	InstitutionID string
	Value         int
	CreatedAt     time.Time
}
