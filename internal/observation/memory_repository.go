package observation

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[cellKey]*Observation
}

type cellKey struct {
	gaugeID string
	at      int64 // unix nanos
}

// NewInMemoryRepository creates a new in-memory observation repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[cellKey]*Observation)}
}

// ListWindow retrieves all observations within [start, end).
func (r *InMemoryRepository) ListWindow(_ context.Context, start, end time.Time) ([]*Observation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var obs []*Observation
	for _, o := range r.rows {
		if o.ObservedAt.Before(start) || !o.ObservedAt.Before(end) {
			continue
		}
		c := *o
		obs = append(obs, &c)
	}
	return obs, nil
}

// UpsertBatch stores observations; imputed rows never replace observed ones.
func (r *InMemoryRepository) UpsertBatch(_ context.Context, obs []*Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range obs {
		key := cellKey{gaugeID: o.GaugeID, at: o.ObservedAt.UnixNano()}
		if existing, ok := r.rows[key]; ok && !existing.Imputed && o.Imputed {
			continue
		}
		c := *o
		r.rows[key] = &c
	}
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
