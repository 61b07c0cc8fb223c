package observation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/raingauge/raingauge/internal/gauge"
	"github.com/raingauge/raingauge/internal/imputation"
)

// ServiceConfig holds configuration for the observation service.
type ServiceConfig struct {
	// Repository is the observation store.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service loads observation windows as matrices and persists run estimates.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new observation service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
}

// Store persists a batch of observations.
func (s *Service) Store(ctx context.Context, obs []*Observation) error {
	return s.repo.UpsertBatch(ctx, obs)
}

// LoadMatrix loads the window from storage and pivots it into a matrix
// aligned to the network. Imputed rows from earlier runs are loaded as
// missing cells so each run re-estimates from real readings only. Rows for
// gauges no longer in the network are skipped with a warning instead of
// failing the run.
func (s *Service) LoadMatrix(ctx context.Context, network *gauge.Network, w Window) (*imputation.Matrix, error) {
	rows, err := s.repo.ListWindow(ctx, w.Start, w.End())
	if err != nil {
		return nil, err
	}

	observed := rows[:0]
	stale := 0
	for _, o := range rows {
		if o.Imputed {
			continue
		}
		if _, ok := network.Index(o.GaugeID); !ok {
			stale++
			s.logger.Warn().
				Str("gauge_id", o.GaugeID).
				Time("observed_at", o.ObservedAt).
				Msg("skipping observation for gauge outside the network")
			continue
		}
		observed = append(observed, o)
	}
	if stale > 0 {
		s.logger.Warn().
			Int("rows", stale).
			Msg("stale observations excluded from window")
	}

	m, err := ToMatrix(observed, network, w)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("rows", len(observed)).
		Int("gauges", network.Size()).
		Int("slots", w.Steps).
		Int("missing_cells", m.MissingCells()).
		Msg("observation window loaded")

	return m, nil
}

// SaveEstimates melts the imputation result back into long rows and stores
// them, skipping everything that was observed. Returns the number of rows
// written.
func (s *Service) SaveEstimates(ctx context.Context, network *gauge.Network, w Window, original, imputed *imputation.Matrix) (int, error) {
	rows := EstimatedRows(original, imputed, network, w)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.repo.UpsertBatch(ctx, rows); err != nil {
		return 0, err
	}

	s.logger.Info().
		Int("estimates", len(rows)).
		Msg("imputed observations stored")

	return len(rows), nil
}
