// Package coordinator ties rating writes to live snapshot delivery.
//
// Writes and subscriptions are serialized: each committed rating is followed
// by exactly one data_update broadcast before the next write or subscription
// proceeds, and a new subscriber's initial_data reflects every write
// broadcast before it.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Clark-Hu/care-map/internal/domain"
	"github.com/Clark-Hu/care-map/internal/live"
	"github.com/Clark-Hu/care-map/internal/metrics"
	"github.com/Clark-Hu/care-map/internal/snapshot"
)

// Store is the persistence contract the coordinator relies on.
type Store interface {
	FindInstitution(ctx context.Context, id string) (domain.Institution, error)
	AddRating(ctx context.Context, institutionID string, value int) (domain.Rating, error)
	ListInstitutionsWithRatings(ctx context.Context) ([]domain.InstitutionRatings, error)
}

// Coordinator owns the registry for one server lifetime.
type Coordinator struct {
	mu       sync.Mutex
	store    Store
	registry *live.Registry
	logger   *slog.Logger
}

// New constructs a Coordinator with a fresh registry.
func New(st Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:    st,
		registry: live.NewRegistry(logger),
		logger:   logger,
	}
}

// SubmitRating validates, persists and broadcasts a rating. A missing
// institution returns an error wrapping domain.ErrNotFound and nothing is
// broadcast. Other errors are persistence failures.
func (c *Coordinator) SubmitRating(ctx context.Context, institutionID string, value int) (domain.Rating, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.FindInstitution(ctx, institutionID); err != nil {
		return domain.Rating{}, c.writeFailed(institutionID, err)
	}

	rating, err := c.store.AddRating(ctx, institutionID, value)
	if err != nil {
		return domain.Rating{}, c.writeFailed(institutionID, err)
	}
	metrics.RatingsSubmitted.WithLabelValues("ok").Inc()

	// The write is committed; the broadcast must not depend on the caller staying around.
	snap, err := snapshot.Build(context.WithoutCancel(ctx), c.store)
	if err != nil {
		c.logger.Error("coordinator: snapshot after commit failed, skipping broadcast",
			"institution_id", institutionID, "rating_id", rating.ID, "error", err)
		return rating, nil
	}
	c.broadcast(snap)
	return rating, nil
}

// Snapshot returns the current view without subscribing.
func (c *Coordinator) Snapshot(ctx context.Context) (snapshot.Snapshot, error) {
	return snapshot.Build(ctx, c.store)
}

// Subscribe registers sub and pushes it one initial_data message.
func (c *Coordinator) Subscribe(ctx context.Context, sub live.Subscriber) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := snapshot.Build(ctx, c.store)
	if err != nil {
		sub.Close()
		return err
	}
	payload, err := live.Encode(live.TypeInitialData, snap)
	if err != nil {
		sub.Close()
		metrics.EncodeFailures.Inc()
		return err
	}
	return c.registry.Add(sub, payload)
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (c *Coordinator) Unsubscribe(id uuid.UUID) {
	c.registry.Remove(id)
}

// Subscribers reports the number of registered subscribers.
func (c *Coordinator) Subscribers() int {
	return c.registry.Len()
}

// Close disconnects every subscriber. Later subscriptions fail.
func (c *Coordinator) Close() {
	c.registry.Close()
}

func (c *Coordinator) broadcast(snap snapshot.Snapshot) {
	payload, err := live.Encode(live.TypeDataUpdate, snap)
	if err != nil {
		// Not a channel failure: nobody is evicted.
		metrics.EncodeFailures.Inc()
		c.logger.Error("coordinator: encode update failed", "error", err)
		return
	}
	res := c.registry.Broadcast(payload)
	c.logger.Debug("coordinator: broadcast update", "delivered", res.Delivered, "evicted", res.Evicted)
}

func (c *Coordinator) writeFailed(institutionID string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		metrics.RatingsSubmitted.WithLabelValues("not_found").Inc()
		return fmt.Errorf("institution %q: %w", institutionID, domain.ErrNotFound)
	}
	metrics.RatingsSubmitted.WithLabelValues("error").Inc()
	return fmt.Errorf("submit rating: %w", err)
}
