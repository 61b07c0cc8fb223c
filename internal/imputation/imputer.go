package imputation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ImputerConfig holds configuration for a full-matrix imputation run.
type ImputerConfig struct {
	// K is the number of nearest valid neighbors to aggregate. Default: 5.
	K int

	// Weighted selects inverse-distance weighting instead of the
	// arithmetic mean.
	Weighted bool

	// Power is the inverse-distance exponent. Default: 1.0.
	Power float64

	// ZeroDistance is the policy for zero or negative neighbor distances
	// in weighted mode. Default: ZeroDistanceReject.
	ZeroDistance ZeroDistancePolicy

	// Concurrency is the number of columns processed in parallel.
	// Default: 4.
	Concurrency int

	// Logger for run progress and diagnostics.
	Logger zerolog.Logger
}

// Imputer applies the k-NN estimator to every cell of a gauge×time matrix.
type Imputer struct {
	config    ImputerConfig
	estimator *Estimator
}

// NewImputer creates an Imputer, filling zero-value config fields with
// defaults.
func NewImputer(cfg ImputerConfig) *Imputer {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if cfg.Power <= 0 {
		cfg.Power = 1.0
	}
	if cfg.ZeroDistance == "" {
		cfg.ZeroDistance = ZeroDistanceReject
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Imputer{
		config: cfg,
		estimator: NewEstimator(EstimatorConfig{
			K:            cfg.K,
			Weighted:     cfg.Weighted,
			Power:        cfg.Power,
			ZeroDistance: cfg.ZeroDistance,
			Logger:       cfg.Logger,
		}),
	}
}

// Result holds the outcome of a full-matrix imputation run.
type Result struct {
	// Matrix is the imputed matrix, same shape as the input. Observed
	// cells carry their original value; missing cells carry the estimate,
	// or stay missing when no estimate was possible.
	Matrix *Matrix

	// Diagnostics accumulates every degraded-cell condition of the run.
	Diagnostics []Diagnostic

	// FilledCells counts originally-missing cells that received an
	// estimate. StillMissing counts those that did not.
	FilledCells  int
	StillMissing int

	Duration time.Duration
}

// Impute runs the estimator over every missing cell of m. Columns are
// mutually independent time slices sharing the distance matrix; they are
// processed by a bounded pool of workers, each writing a disjoint output
// column, so the result is identical to sequential processing. Observed
// cells are never overwritten. An entirely-missing column is skipped and
// stays entirely missing.
func (im *Imputer) Impute(ctx context.Context, m *Matrix, d *DistanceMatrix) (*Result, error) {
	if d.Order() != m.Rows() {
		return nil, fmt.Errorf("%w: %d gauges vs %d rows", ErrShapeMismatch, d.Order(), m.Rows())
	}

	start := time.Now()
	out := m.Clone()

	// Neighbor orderings depend only on the distance matrix, so compute
	// them once and share them across all columns.
	orders := orderAllSites(d)

	im.config.Logger.Debug().
		Int("rows", m.Rows()).
		Int("cols", m.Cols()).
		Int("k", im.config.K).
		Bool("weighted", im.config.Weighted).
		Int("concurrency", im.config.Concurrency).
		Msg("starting imputation run")

	cols := make(chan int, m.Cols())
	results := make(chan columnResult, m.Cols())

	var wg sync.WaitGroup
	for w := 0; w < im.config.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			im.columnWorker(ctx, m, d, orders, cols, results)
		}()
	}

	for j := 0; j < m.Cols(); j++ {
		cols <- j
	}
	close(cols)

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &Result{Matrix: out}
	done := 0
	for cr := range results {
		if cr.err != nil {
			return nil, cr.err
		}
		if cr.values != nil {
			out.SetColumn(cr.col, cr.values)
		}
		result.Diagnostics = append(result.Diagnostics, cr.diags...)
		result.FilledCells += cr.filled
		result.StillMissing += cr.stillMissing
		done++
	}
	if done < m.Cols() {
		// Workers bailed out before draining the column queue.
		return nil, ctx.Err()
	}

	result.Duration = time.Since(start)

	im.config.Logger.Info().
		Int("filled_cells", result.FilledCells).
		Int("still_missing", result.StillMissing).
		Int("diagnostics", len(result.Diagnostics)).
		Dur("duration", result.Duration).
		Msg("imputation run completed")

	return result, nil
}

// columnResult carries one finished column back to the collector. values is
// nil when the column needed no work.
type columnResult struct {
	col          int
	values       []float64
	diags        []Diagnostic
	filled       int
	stillMissing int
	err          error
}

func (im *Imputer) columnWorker(ctx context.Context, m *Matrix, d *DistanceMatrix, orders [][]int, cols <-chan int, results chan<- columnResult) {
	for j := range cols {
		select {
		case <-ctx.Done():
			return
		default:
			results <- im.imputeColumn(j, m, d, orders)
		}
	}
}

// imputeColumn estimates every missing cell of one time slice.
func (im *Imputer) imputeColumn(j int, m *Matrix, d *DistanceMatrix, orders [][]int) columnResult {
	values := m.Column(j)

	missing := 0
	for _, v := range values {
		if IsMissing(v) {
			missing++
		}
	}
	if missing == 0 {
		return columnResult{col: j}
	}
	if missing == len(values) {
		// No gauge reported for this slice; nothing to estimate from.
		return columnResult{col: j, stillMissing: missing}
	}

	cr := columnResult{col: j, values: make([]float64, len(values))}
	copy(cr.values, values)

	for site, v := range values {
		if !IsMissing(v) {
			continue
		}
		estimate, diags, err := im.estimator.Estimate(site, orders[site], values, d)
		if err != nil {
			cr.err = err
			return cr
		}
		for i := range diags {
			diags[i].Column = j
		}
		cr.diags = append(cr.diags, diags...)
		if IsMissing(estimate) {
			cr.stillMissing++
			continue
		}
		cr.values[site] = estimate
		cr.filled++
	}
	return cr
}
