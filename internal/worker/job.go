package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raingauge/raingauge/internal/gauge"
	"github.com/raingauge/raingauge/internal/imputation"
	"github.com/raingauge/raingauge/internal/observation"
)

// ImputeJob runs full-window imputation over the gauge network.
type ImputeJob struct {
	config       RunConfig
	logger       zerolog.Logger
	gauges       *gauge.Service
	observations *observation.Service

	metrics *JobMetrics
}

// ImputeJobConfig holds dependencies for creating an ImputeJob.
type ImputeJobConfig struct {
	Config       RunConfig
	Logger       zerolog.Logger
	Gauges       *gauge.Service
	Observations *observation.Service
}

// NewImputeJob creates a new imputation job processor.
func NewImputeJob(cfg ImputeJobConfig) *ImputeJob {
	config := cfg.Config
	defaults := DefaultRunConfig()
	if config.WindowDays == 0 {
		config.WindowDays = defaults.WindowDays
	}
	if config.K == 0 {
		config.K = defaults.K
	}
	if config.Concurrency == 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	return &ImputeJob{
		config:       config,
		logger:       cfg.Logger,
		gauges:       cfg.Gauges,
		observations: cfg.Observations,
		metrics:      &JobMetrics{},
	}
}

// RunResult contains the outcome of one imputation run.
type RunResult struct {
	RunID        string
	Window       observation.Window
	Gauges       int
	FilledCells  int
	StillMissing int
	Diagnostics  []imputation.Diagnostic
	RowsWritten  int
	Duration     time.Duration
}

// Run executes one imputation run over the configured trailing window.
func (j *ImputeJob) Run(ctx context.Context) (*RunResult, error) {
	return j.RunWindow(ctx, j.trailingWindow(time.Now()))
}

// RunWindow executes one imputation run over an explicit window.
func (j *ImputeJob) RunWindow(ctx context.Context, w observation.Window) (*RunResult, error) {
	runID := "run_" + uuid.New().String()[:8]
	logger := j.logger.With().Str("run_id", runID).Logger()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	logger.Info().
		Time("window_start", w.Start).
		Time("window_end", w.End()).
		Int("k", j.config.K).
		Bool("weighted", j.config.Weighted).
		Msg("starting imputation run")

	network, err := j.gauges.Network(ctx)
	if err != nil {
		j.metrics.recordFailure()
		return nil, err
	}

	original, err := j.observations.LoadMatrix(ctx, network, w)
	if err != nil {
		j.metrics.recordFailure()
		return nil, err
	}

	imputer := imputation.NewImputer(imputation.ImputerConfig{
		K:            j.config.K,
		Weighted:     j.config.Weighted,
		ZeroDistance: j.config.ZeroDistance,
		Concurrency:  j.config.Concurrency,
		Logger:       logger,
	})

	result, err := imputer.Impute(ctx, original, network.DistanceMatrix())
	if err != nil {
		j.metrics.recordFailure()
		return nil, err
	}

	written, err := j.observations.SaveEstimates(ctx, network, w, original, result.Matrix)
	if err != nil {
		j.metrics.recordFailure()
		return nil, err
	}

	runResult := &RunResult{
		RunID:        runID,
		Window:       w,
		Gauges:       network.Size(),
		FilledCells:  result.FilledCells,
		StillMissing: result.StillMissing,
		Diagnostics:  result.Diagnostics,
		RowsWritten:  written,
		Duration:     time.Since(start),
	}
	j.metrics.recordRun(runResult)

	logger.Info().
		Int("gauges", runResult.Gauges).
		Int("filled_cells", runResult.FilledCells).
		Int("still_missing", runResult.StillMissing).
		Int("diagnostics", len(runResult.Diagnostics)).
		Int("rows_written", runResult.RowsWritten).
		Dur("duration", runResult.Duration).
		Msg("imputation run completed")

	return runResult, nil
}

func (j *ImputeJob) trailingWindow(now time.Time) observation.Window {
	start := now.UTC().AddDate(0, 0, -j.config.WindowDays)
	return observation.DailyWindow(start, j.config.WindowDays)
}

// JobMetrics tracks worker job statistics.
type JobMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	FailedRuns      int64
	CellsFilled     int64
	RowsWritten     int64
	LastRunAt       time.Time
	LastRunDuration time.Duration
}

func (m *JobMetrics) recordRun(r *RunResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRuns++
	m.CellsFilled += int64(r.FilledCells)
	m.RowsWritten += int64(r.RowsWritten)
	m.LastRunAt = time.Now()
	m.LastRunDuration = r.Duration
}

func (m *JobMetrics) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRuns++
	m.FailedRuns++
}

// Metrics returns a copy of the current metrics.
func (j *ImputeJob) Metrics() JobMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return JobMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		FailedRuns:      j.metrics.FailedRuns,
		CellsFilled:     j.metrics.CellsFilled,
		RowsWritten:     j.metrics.RowsWritten,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ImputeJob) MetricsSnapshot() map[string]interface{} {
	m := j.Metrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"failed_runs":       m.FailedRuns,
		"cells_filled":      m.CellsFilled,
		"rows_written":      m.RowsWritten,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
	}
}
