package gauge

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu     sync.RWMutex
	gauges map[string]*Gauge
}

// NewInMemoryRepository creates a new in-memory gauge repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{gauges: make(map[string]*Gauge)}
}

// Get retrieves a gauge by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Gauge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gauges[id]
	if !ok {
		return nil, ErrGaugeNotFound
	}
	return copyGauge(g), nil
}

// List retrieves all registered gauges.
func (r *InMemoryRepository) List(_ context.Context) ([]*Gauge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gauges := make([]*Gauge, 0, len(r.gauges))
	for _, g := range r.gauges {
		gauges = append(gauges, copyGauge(g))
	}
	return gauges, nil
}

// Upsert creates or updates a gauge by ID.
func (r *InMemoryRepository) Upsert(_ context.Context, g *Gauge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := copyGauge(g)
	if existing, ok := r.gauges[g.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.gauges[g.ID] = stored
	return nil
}

func copyGauge(g *Gauge) *Gauge {
	c := *g
	return &c
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
