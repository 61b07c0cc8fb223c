package gauge

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL gauge repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a gauge by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Gauge, error) {
	query := `
		SELECT id, name, lat, lon, elevation, created_at, updated_at
		FROM gauges
		WHERE id = $1
	`

	var g Gauge
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Lat,
		&g.Lon,
		&g.Elevation,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGaugeNotFound
		}
		return nil, err
	}

	return &g, nil
}

// List retrieves all registered gauges ordered by ID.
func (r *PostgresRepository) List(ctx context.Context) ([]*Gauge, error) {
	query := `
		SELECT id, name, lat, lon, elevation, created_at, updated_at
		FROM gauges
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gauges []*Gauge
	for rows.Next() {
		var g Gauge
		err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Lat,
			&g.Lon,
			&g.Elevation,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		gauges = append(gauges, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gauges, nil
}

// Upsert creates or updates a gauge by ID.
func (r *PostgresRepository) Upsert(ctx context.Context, g *Gauge) error {
	query := `
		INSERT INTO gauges (id, name, lat, lon, elevation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			elevation = EXCLUDED.elevation,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := r.pool.Exec(ctx, query,
		g.ID,
		g.Name,
		g.Lat,
		g.Lon,
		g.Elevation,
		g.CreatedAt,
		g.UpdatedAt,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
