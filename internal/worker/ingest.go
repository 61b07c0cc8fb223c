package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/raingauge/raingauge/internal/feed"
	"github.com/raingauge/raingauge/internal/gauge"
	"github.com/raingauge/raingauge/internal/observation"
)

// IngestJob pulls stations and readings from the upstream feed and stores
// them as gauges and observed rows.
type IngestJob struct {
	logger       zerolog.Logger
	provider     feed.Provider
	providerName string
	gauges       *gauge.Service
	observations *observation.Service
}

// IngestJobConfig holds dependencies for creating an IngestJob.
type IngestJobConfig struct {
	Logger       zerolog.Logger
	Provider     feed.Provider
	ProviderName string
	Gauges       *gauge.Service
	Observations *observation.Service
}

// NewIngestJob creates a new feed ingest job processor.
func NewIngestJob(cfg IngestJobConfig) *IngestJob {
	name := cfg.ProviderName
	if name == "" {
		name = "feed"
	}

	return &IngestJob{
		logger:       cfg.Logger,
		provider:     cfg.Provider,
		providerName: name,
		gauges:       cfg.Gauges,
		observations: cfg.Observations,
	}
}

// IngestResult contains the outcome of one ingest run.
type IngestResult struct {
	Day         time.Time
	Stations    int
	Readings    int
	SkippedGaps int
	Duration    time.Duration
}

// SyncStations upserts the feed's station list as gauges.
func (j *IngestJob) SyncStations(ctx context.Context) (int, error) {
	stations, err := j.provider.FetchStations(ctx)
	if err != nil {
		return 0, err
	}

	for _, st := range stations {
		g := &gauge.Gauge{
			ID:        st.Code,
			Name:      st.Name,
			Lat:       st.Lat,
			Lon:       st.Lon,
			Elevation: st.Elevation,
		}
		if err := j.gauges.Upsert(ctx, g); err != nil {
			return 0, err
		}
	}

	j.logger.Info().Int("stations", len(stations)).Msg("station list synced")
	return len(stations), nil
}

// Run ingests one day of readings. Readings with a nil value are gaps in the
// feed and are not stored; the imputation run fills them.
func (j *IngestJob) Run(ctx context.Context, day time.Time) (*IngestResult, error) {
	start := time.Now()
	logger := j.logger.With().Str("provider", j.providerName).Time("day", day).Logger()

	stations, err := j.SyncStations(ctx)
	if err != nil {
		return nil, err
	}

	readings, err := j.provider.FetchReadings(ctx, day)
	if err != nil {
		return nil, err
	}

	obs := make([]*observation.Observation, 0, len(readings))
	skipped := 0
	for _, r := range readings {
		if r.Millimeters == nil {
			skipped++
			continue
		}
		obs = append(obs, &observation.Observation{
			GaugeID:     r.StationCode,
			ObservedAt:  r.MeasuredAt,
			Millimeters: *r.Millimeters,
			Imputed:     false,
			Source:      j.providerName,
		})
	}

	if len(obs) > 0 {
		if err := j.observations.Store(ctx, obs); err != nil {
			return nil, err
		}
	}

	result := &IngestResult{
		Day:         day,
		Stations:    stations,
		Readings:    len(obs),
		SkippedGaps: skipped,
		Duration:    time.Since(start),
	}

	logger.Info().
		Int("readings", result.Readings).
		Int("gaps", result.SkippedGaps).
		Dur("duration", result.Duration).
		Msg("feed ingest completed")

	return result, nil
}
