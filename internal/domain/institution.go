package domain

import "time"

// Institution is a rated care institution. Institutions are created by the
// seed step and never mutated by the write path.
type Institution struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// InstitutionRatings pairs an institution with its ratings in creation order.
type InstitutionRatings struct {
	Institution Institution
	Ratings     []Rating
}
