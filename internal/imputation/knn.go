package imputation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// ZeroDistancePolicy selects how inverse-distance weighting treats a
// neighbor at zero (or negative) distance, which would otherwise produce an
// infinite weight.
type ZeroDistancePolicy string

const (
	// ZeroDistanceReject fails only the affected cell: it becomes missing
	// and a ZERO_DISTANCE diagnostic is recorded.
	ZeroDistanceReject ZeroDistancePolicy = "REJECT"

	// ZeroDistanceClamp clamps the distance to a small floor so co-located
	// gauges dominate the estimate without producing an infinite weight.
	ZeroDistanceClamp ZeroDistancePolicy = "CLAMP"

	// ZeroDistanceStrict aborts the whole run with ErrZeroDistance.
	ZeroDistanceStrict ZeroDistancePolicy = "STRICT"
)

// clampFloor is the minimum distance used under ZeroDistanceClamp.
const clampFloor = 1e-6

// EstimatorConfig holds configuration for the k-NN estimator.
type EstimatorConfig struct {
	// K is the number of nearest valid neighbors to aggregate. Default: 5.
	K int

	// Weighted selects inverse-distance weighting instead of the
	// arithmetic mean.
	Weighted bool

	// Power is the inverse-distance exponent: weight = 1/d^Power.
	// Default: 1.0, plain reciprocal distance.
	Power float64

	// ZeroDistance is the policy for zero or negative neighbor distances
	// in weighted mode. Default: ZeroDistanceReject.
	ZeroDistance ZeroDistancePolicy

	// Logger for warn-level diagnostics.
	Logger zerolog.Logger
}

// Estimator computes a single-cell k-NN estimate from an ordered neighbor
// list and a measurement vector.
type Estimator struct {
	config EstimatorConfig
}

// NewEstimator creates an Estimator, filling zero-value config fields with
// defaults.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if cfg.Power <= 0 {
		cfg.Power = 1.0
	}
	if cfg.ZeroDistance == "" {
		cfg.ZeroDistance = ZeroDistanceReject
	}
	return &Estimator{config: cfg}
}

// K returns the configured neighbor count.
func (e *Estimator) K() int { return e.config.K }

// candidate is a surviving neighbor paired with its distance from the
// target gauge.
type candidate struct {
	site     int
	value    float64
	distance float64
}

// Estimate produces the k-NN estimate for one gauge from its neighbor
// ordering and a measurement vector aligned to the same index space.
//
// Neighbors whose measurement is missing are skipped. In weighted mode a
// neighbor with a missing distance cannot carry a weight and is skipped as
// well. If fewer than K valid neighbors remain, the effective k is reduced
// and a DEGRADED_NEIGHBOR_COUNT diagnostic is recorded; with no valid
// neighbors the cell stays missing. The returned error is non-nil only
// under ZeroDistanceStrict.
func (e *Estimator) Estimate(site int, ordered []int, values []float64, d *DistanceMatrix) (float64, []Diagnostic, error) {
	var cands []candidate
	for _, nb := range ordered {
		if nb == site || IsMissing(values[nb]) {
			continue
		}
		dist := d.At(nb, site)
		if e.config.Weighted && IsMissing(dist) {
			continue
		}
		cands = append(cands, candidate{site: nb, value: values[nb], distance: dist})
		if len(cands) == e.config.K {
			break
		}
	}

	var diags []Diagnostic

	if len(cands) == 0 {
		diags = append(diags, Diagnostic{
			Kind:       DiagnosticNoValidNeighbors,
			Site:       site,
			Column:     -1,
			RequestedK: e.config.K,
		})
		e.config.Logger.Warn().
			Int("site", site).
			Int("requested_k", e.config.K).
			Msg("no valid neighbors, cell stays missing")
		return Missing(), diags, nil
	}

	if len(cands) < e.config.K {
		diags = append(diags, Diagnostic{
			Kind:       DiagnosticDegradedNeighborCount,
			Site:       site,
			Column:     -1,
			RequestedK: e.config.K,
			EffectiveK: len(cands),
		})
		e.config.Logger.Warn().
			Int("site", site).
			Int("requested_k", e.config.K).
			Int("effective_k", len(cands)).
			Msg("fewer valid neighbors than requested, reducing k")
	}

	if !e.config.Weighted {
		sum := 0.0
		for _, c := range cands {
			sum += c.value
		}
		return sum / float64(len(cands)), diags, nil
	}

	estimate, diag, err := e.weightedMean(site, cands)
	if err != nil {
		return Missing(), diags, err
	}
	if diag != nil {
		diags = append(diags, *diag)
		return Missing(), diags, nil
	}
	return estimate, diags, nil
}

// weightedMean aggregates candidates with inverse-distance weights,
// applying the zero-distance policy.
func (e *Estimator) weightedMean(site int, cands []candidate) (float64, *Diagnostic, error) {
	var sum, totalWeight float64
	for _, c := range cands {
		dist := c.distance
		if dist <= 0 {
			switch e.config.ZeroDistance {
			case ZeroDistanceStrict:
				return 0, nil, fmt.Errorf("%w: gauges %d and %d at distance %g",
					ErrZeroDistance, site, c.site, dist)
			case ZeroDistanceClamp:
				if dist < 0 {
					// A negative distance is a malformed matrix, not a
					// co-located gauge pair. Never clamp it away.
					return 0, e.zeroDistanceDiag(site, c), nil
				}
				dist = clampFloor
			default:
				return 0, e.zeroDistanceDiag(site, c), nil
			}
		}
		w := 1.0 / dist
		if e.config.Power != 1 {
			w = 1.0 / math.Pow(dist, e.config.Power)
		}
		sum += c.value * w
		totalWeight += w
	}
	return sum / totalWeight, nil, nil
}

func (e *Estimator) zeroDistanceDiag(site int, c candidate) *Diagnostic {
	e.config.Logger.Warn().
		Int("site", site).
		Int("neighbor", c.site).
		Float64("distance", c.distance).
		Msg("zero or negative neighbor distance, rejecting cell")
	return &Diagnostic{
		Kind:     DiagnosticZeroDistance,
		Site:     site,
		Column:   -1,
		Neighbor: c.site,
		Distance: c.distance,
	}
}
