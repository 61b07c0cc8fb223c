package observation

import (
	"context"
	"time"
)

// Repository defines storage operations for observations.
type Repository interface {
	// ListWindow retrieves all observations with start <= observed_at < end.
	ListWindow(ctx context.Context, start, end time.Time) ([]*Observation, error)

	// UpsertBatch stores observations keyed by (gauge, time). An imputed row
	// never replaces an observed one; an observed row always replaces an
	// imputed one.
	UpsertBatch(ctx context.Context, obs []*Observation) error
}
