package live

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/care-map/internal/metrics"
)

var (
	// ErrSubscriberClosed is returned by Send once a subscriber is closed.
	ErrSubscriberClosed = errors.New("live: subscriber closed")
	// ErrSubscriberSlow is returned by Send when the outbound queue is full.
	ErrSubscriberSlow = errors.New("live: subscriber send queue full")
	// ErrRegistryClosed is returned by Add after Close.
	ErrRegistryClosed = errors.New("live: registry closed")
)

// Subscriber is a push channel to one remote viewer.
// Send must not block; any error is treated as a disconnect.
type Subscriber interface {
	ID() uuid.UUID
	Send(payload []byte) error
	Close()
}

// BroadcastResult summarizes one fan-out pass.
type BroadcastResult struct {
	Delivered int
	Evicted   int
}

// Registry tracks the live subscribers for one server lifetime.
type Registry struct {
	// sendMu orders the initial send in Add against Broadcast passes.
	sendMu sync.Mutex

	mu     sync.RWMutex
	subs   map[uuid.UUID]Subscriber
	closed bool

	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		subs:   make(map[uuid.UUID]Subscriber),
		logger: logger,
	}
}

// Add registers sub and pushes initial to it. If the initial send fails the
// subscriber is closed and not registered.
func (r *Registry) Add(sub Subscriber, initial []byte) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.Close()
		return ErrRegistryClosed
	}
	if err := sub.Send(initial); err != nil {
		r.mu.Unlock()
		sub.Close()
		return fmt.Errorf("send initial snapshot: %w", err)
	}
	r.subs[sub.ID()] = sub
	total := len(r.subs)
	r.mu.Unlock()

	metrics.LiveSubscribers.Inc()
	r.logger.Debug("live: subscriber added", "subscriber_id", sub.ID().String(), "total", total)
	return nil
}

// Remove unregisters and closes the subscriber with the given id. It is safe
// to call repeatedly or for ids never added; it reports whether this call
// performed the removal.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	total := len(r.subs)
	r.mu.Unlock()

	if !ok {
		return false
	}
	sub.Close()
	metrics.LiveSubscribers.Dec()
	r.logger.Debug("live: subscriber removed", "subscriber_id", id.String(), "remaining", total)
	return true
}

// Broadcast enqueues payload on every registered subscriber. Subscribers
// whose send fails are evicted after the pass; failures never propagate.
func (r *Registry) Broadcast(payload []byte) BroadcastResult {
	start := time.Now()
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	members := r.members()

	var (
		result BroadcastResult
		failed []Subscriber
	)
	for _, sub := range members {
		if err := sub.Send(payload); err != nil {
			failed = append(failed, sub)
			if errors.Is(err, ErrSubscriberSlow) {
				r.logger.Warn("live: evicting slow subscriber", "subscriber_id", sub.ID().String())
			} else {
				r.logger.Debug("live: evicting subscriber", "subscriber_id", sub.ID().String(), "error", err)
			}
			continue
		}
		result.Delivered++
	}

	for _, sub := range failed {
		if r.Remove(sub.ID()) {
			result.Evicted++
		}
	}

	metrics.Broadcasts.Inc()
	metrics.Deliveries.WithLabelValues("ok").Add(float64(result.Delivered))
	metrics.Deliveries.WithLabelValues("evicted").Add(float64(result.Evicted))
	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	return result
}

// Len reports the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Close closes every subscriber and rejects further Adds.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := r.subs
	r.subs = make(map[uuid.UUID]Subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	metrics.LiveSubscribers.Sub(float64(len(subs)))
	r.logger.Info("live: registry closed", "subscribers", len(subs))
}

func (r *Registry) members() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}
