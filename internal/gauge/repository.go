package gauge

import "context"

// Repository defines storage operations for gauge metadata.
type Repository interface {
	// Get retrieves a gauge by ID.
	Get(ctx context.Context, id string) (*Gauge, error)

	// List retrieves all registered gauges.
	List(ctx context.Context) ([]*Gauge, error)

	// Upsert creates or updates a gauge by ID.
	Upsert(ctx context.Context, g *Gauge) error
}
