package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raingauge/raingauge/internal/feed"
	"github.com/raingauge/raingauge/internal/gauge"
	"github.com/raingauge/raingauge/internal/imputation"
	"github.com/raingauge/raingauge/internal/observation"
	"github.com/raingauge/raingauge/internal/worker"
)

var testDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testServices(t *testing.T) (*gauge.Service, *observation.Service, *observation.InMemoryRepository) {
	t.Helper()

	gaugeRepo := gauge.NewInMemoryRepository()
	for _, g := range []*gauge.Gauge{
		{ID: "260", Name: "De Bilt", Lat: 52.10, Lon: 5.18},
		{ID: "240", Name: "Schiphol", Lat: 52.32, Lon: 4.79},
		{ID: "344", Name: "Rotterdam", Lat: 51.96, Lon: 4.45},
		{ID: "370", Name: "Eindhoven", Lat: 51.45, Lon: 5.41},
	} {
		require.NoError(t, gaugeRepo.Upsert(context.Background(), g))
	}

	obsRepo := observation.NewInMemoryRepository()

	gauges := gauge.NewService(gauge.ServiceConfig{
		Repository: gaugeRepo,
		Logger:     zerolog.Nop(),
	})
	observations := observation.NewService(observation.ServiceConfig{
		Repository: obsRepo,
		Logger:     zerolog.Nop(),
	})

	return gauges, observations, obsRepo
}

func storeReading(t *testing.T, obs *observation.Service, gaugeID string, day time.Time, mm float64) {
	t.Helper()
	require.NoError(t, obs.Store(context.Background(), []*observation.Observation{
		{GaugeID: gaugeID, ObservedAt: day, Millimeters: mm, Source: "test"},
	}))
}

func TestImputeJob_FillsGaps(t *testing.T) {
	gauges, observations, repo := testServices(t)
	w := observation.DailyWindow(testDay, 2)

	// Day 0: Schiphol has no reading. Day 1: complete.
	storeReading(t, observations, "260", w.SlotTime(0), 4.0)
	storeReading(t, observations, "344", w.SlotTime(0), 6.0)
	storeReading(t, observations, "370", w.SlotTime(0), 2.0)
	for _, id := range []string{"260", "240", "344", "370"} {
		storeReading(t, observations, id, w.SlotTime(1), 1.0)
	}

	job := worker.NewImputeJob(worker.ImputeJobConfig{
		Config:       worker.DefaultRunConfig(),
		Logger:       zerolog.Nop(),
		Gauges:       gauges,
		Observations: observations,
	})

	result, err := job.RunWindow(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Gauges)
	assert.Equal(t, 1, result.FilledCells)
	assert.Equal(t, 0, result.StillMissing)
	assert.Equal(t, 1, result.RowsWritten)
	assert.NotEmpty(t, result.RunID)

	rows, err := repo.ListWindow(context.Background(), w.Start, w.End())
	require.NoError(t, err)
	require.Len(t, rows, 8)

	var estimate *observation.Observation
	for _, o := range rows {
		if o.Imputed {
			require.Nil(t, estimate, "expected exactly one imputed row")
			estimate = o
		}
	}
	require.NotNil(t, estimate)
	assert.Equal(t, "240", estimate.GaugeID)
	assert.Equal(t, observation.SourceKNN, estimate.Source)
	assert.True(t, estimate.ObservedAt.Equal(w.SlotTime(0)))

	// The estimate is a weighted mean of the three neighbors, so it must
	// lie within their range.
	assert.GreaterOrEqual(t, estimate.Millimeters, 2.0)
	assert.LessOrEqual(t, estimate.Millimeters, 6.0)
}

func TestImputeJob_CompleteWindowWritesNothing(t *testing.T) {
	gauges, observations, _ := testServices(t)
	w := observation.DailyWindow(testDay, 1)

	for _, id := range []string{"260", "240", "344", "370"} {
		storeReading(t, observations, id, w.SlotTime(0), 3.5)
	}

	job := worker.NewImputeJob(worker.ImputeJobConfig{
		Logger:       zerolog.Nop(),
		Gauges:       gauges,
		Observations: observations,
	})

	result, err := job.RunWindow(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, 0, result.FilledCells)
	assert.Equal(t, 0, result.RowsWritten)
	assert.Empty(t, result.Diagnostics)
}

func TestImputeJob_RerunRevisesEstimates(t *testing.T) {
	gauges, observations, repo := testServices(t)
	w := observation.DailyWindow(testDay, 1)

	storeReading(t, observations, "260", w.SlotTime(0), 4.0)
	storeReading(t, observations, "344", w.SlotTime(0), 6.0)
	storeReading(t, observations, "370", w.SlotTime(0), 2.0)

	job := worker.NewImputeJob(worker.ImputeJobConfig{
		Logger:       zerolog.Nop(),
		Gauges:       gauges,
		Observations: observations,
	})

	first, err := job.RunWindow(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, 1, first.RowsWritten)

	// A late real reading arrives for the imputed cell. UpsertBatch lets
	// observed rows replace imputed ones.
	storeReading(t, observations, "240", w.SlotTime(0), 9.9)

	second, err := job.RunWindow(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilledCells)

	rows, err := repo.ListWindow(context.Background(), w.Start, w.End())
	require.NoError(t, err)
	for _, o := range rows {
		if o.GaugeID == "240" {
			assert.False(t, o.Imputed)
			assert.Equal(t, 9.9, o.Millimeters)
		}
	}
}

func TestImputeJob_DegradedNeighborDiagnostics(t *testing.T) {
	gauges, observations, _ := testServices(t)
	w := observation.DailyWindow(testDay, 1)

	// Only one gauge reported, so the three gaps each see a single
	// neighbor against the default k of 5.
	storeReading(t, observations, "260", w.SlotTime(0), 4.0)

	job := worker.NewImputeJob(worker.ImputeJobConfig{
		Logger:       zerolog.Nop(),
		Gauges:       gauges,
		Observations: observations,
	})

	result, err := job.RunWindow(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilledCells)
	require.NotEmpty(t, result.Diagnostics)
	for _, d := range result.Diagnostics {
		assert.Equal(t, imputation.DiagnosticDegradedNeighborCount, d.Kind)
		assert.Equal(t, 1, d.EffectiveK)
	}
}

func TestImputeJob_MetricsAccumulate(t *testing.T) {
	gauges, observations, _ := testServices(t)
	w := observation.DailyWindow(testDay, 1)

	storeReading(t, observations, "260", w.SlotTime(0), 4.0)
	storeReading(t, observations, "344", w.SlotTime(0), 6.0)

	job := worker.NewImputeJob(worker.ImputeJobConfig{
		Logger:       zerolog.Nop(),
		Gauges:       gauges,
		Observations: observations,
	})

	_, err := job.RunWindow(context.Background(), w)
	require.NoError(t, err)
	_, err = job.RunWindow(context.Background(), w)
	require.NoError(t, err)

	m := job.Metrics()
	assert.Equal(t, int64(2), m.TotalRuns)
	assert.Equal(t, int64(0), m.FailedRuns)
	assert.False(t, m.LastRunAt.IsZero())

	snapshot := job.MetricsSnapshot()
	assert.Equal(t, int64(2), snapshot["total_runs"])
}

func TestImputeJob_EmptyNetworkFails(t *testing.T) {
	gauges := gauge.NewService(gauge.ServiceConfig{
		Repository: gauge.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	observations := observation.NewService(observation.ServiceConfig{
		Repository: observation.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})

	job := worker.NewImputeJob(worker.ImputeJobConfig{
		Logger:       zerolog.Nop(),
		Gauges:       gauges,
		Observations: observations,
	})

	_, err := job.RunWindow(context.Background(), observation.DailyWindow(testDay, 1))
	require.ErrorIs(t, err, gauge.ErrEmptyNetwork)

	m := job.Metrics()
	assert.Equal(t, int64(1), m.FailedRuns)
}

type stubFeed struct {
	stations []*feed.Station
	readings []*feed.Reading
	err      error
}

func (s *stubFeed) FetchStations(context.Context) ([]*feed.Station, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stations, nil
}

func (s *stubFeed) FetchReadings(context.Context, time.Time) ([]*feed.Reading, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.readings, nil
}

func TestIngestJob_StoresReadingsAndSkipsGaps(t *testing.T) {
	gauges, observations, repo := testServices(t)

	mm := func(v float64) *float64 { return &v }
	provider := &stubFeed{
		stations: []*feed.Station{
			{Code: "310", Name: "Vlissingen", Lat: 51.44, Lon: 3.60},
		},
		readings: []*feed.Reading{
			{StationCode: "310", MeasuredAt: testDay, Millimeters: mm(12.5)},
			{StationCode: "260", MeasuredAt: testDay, Millimeters: nil},
		},
	}

	job := worker.NewIngestJob(worker.IngestJobConfig{
		Logger:       zerolog.Nop(),
		Provider:     provider,
		ProviderName: "knmi",
		Gauges:       gauges,
		Observations: observations,
	})

	result, err := job.Run(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stations)
	assert.Equal(t, 1, result.Readings)
	assert.Equal(t, 1, result.SkippedGaps)

	g, err := gauges.Get(context.Background(), "310")
	require.NoError(t, err)
	assert.Equal(t, "Vlissingen", g.Name)

	rows, err := repo.ListWindow(context.Background(), testDay, testDay.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "310", rows[0].GaugeID)
	assert.Equal(t, 12.5, rows[0].Millimeters)
	assert.Equal(t, "knmi", rows[0].Source)
	assert.False(t, rows[0].Imputed)
}

func TestIngestJob_FeedErrorPropagates(t *testing.T) {
	gauges, observations, _ := testServices(t)

	job := worker.NewIngestJob(worker.IngestJobConfig{
		Logger:       zerolog.Nop(),
		Provider:     &stubFeed{err: feed.ErrFeedUnavailable},
		Gauges:       gauges,
		Observations: observations,
	})

	_, err := job.Run(context.Background(), testDay)
	require.ErrorIs(t, err, feed.ErrFeedUnavailable)
}
