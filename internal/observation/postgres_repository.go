package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL observation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListWindow retrieves all observations within [start, end).
func (r *PostgresRepository) ListWindow(ctx context.Context, start, end time.Time) ([]*Observation, error) {
	query := `
		SELECT gauge_id, observed_at, millimeters, imputed, source
		FROM observations
		WHERE observed_at >= $1 AND observed_at < $2
		ORDER BY gauge_id, observed_at
	`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []*Observation
	for rows.Next() {
		var o Observation
		err := rows.Scan(
			&o.GaugeID,
			&o.ObservedAt,
			&o.Millimeters,
			&o.Imputed,
			&o.Source,
		)
		if err != nil {
			return nil, err
		}
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return obs, nil
}

// UpsertBatch stores observations in a single round trip. The conflict
// clause lets observed rows win over imputed ones: an existing observed row
// is only replaced by another observed row.
func (r *PostgresRepository) UpsertBatch(ctx context.Context, obs []*Observation) error {
	if len(obs) == 0 {
		return nil
	}

	query := `
		INSERT INTO observations (gauge_id, observed_at, millimeters, imputed, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (gauge_id, observed_at) DO UPDATE SET
			millimeters = EXCLUDED.millimeters,
			imputed = EXCLUDED.imputed,
			source = EXCLUDED.source
		WHERE observations.imputed OR NOT EXCLUDED.imputed
	`

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(query, o.GaugeID, o.ObservedAt, o.Millimeters, o.Imputed, o.Source)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range obs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert observation batch: %w", err)
		}
	}

	return results.Close()
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
