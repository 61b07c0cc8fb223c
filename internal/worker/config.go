// Package worker provides background job processing for RainGauge: feed
// ingestion and scheduled imputation runs.
package worker

import (
	"os"
	"strconv"
	"time"

	"github.com/raingauge/raingauge/internal/imputation"
)

// RunConfig holds configuration for an imputation run.
type RunConfig struct {
	// WindowDays is the number of whole days to impute, ending today.
	// Default: 30
	WindowDays int

	// K is the number of nearest valid neighbors to aggregate.
	// Default: 5
	K int

	// Weighted selects inverse-distance weighting instead of the
	// arithmetic mean.
	Weighted bool

	// ZeroDistance is the policy for co-located gauges in weighted mode.
	// Default: imputation.ZeroDistanceReject
	ZeroDistance imputation.ZeroDistancePolicy

	// Concurrency is the number of matrix columns imputed in parallel.
	// Default: 4
	Concurrency int

	// Timeout bounds a single run end to end.
	// Default: 5 minutes
	Timeout time.Duration
}

// DefaultRunConfig returns the default run configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		WindowDays:   30,
		K:            5,
		Weighted:     true,
		ZeroDistance: imputation.ZeroDistanceReject,
		Concurrency:  4,
		Timeout:      5 * time.Minute,
	}
}

// RunConfigFromEnv creates a RunConfig from environment variables, falling
// back to defaults for unset or unparsable values.
func RunConfigFromEnv() RunConfig {
	cfg := DefaultRunConfig()

	if v, err := strconv.Atoi(os.Getenv("IMPUTE_WINDOW_DAYS")); err == nil && v > 0 {
		cfg.WindowDays = v
	}
	if v, err := strconv.Atoi(os.Getenv("IMPUTE_K")); err == nil && v > 0 {
		cfg.K = v
	}
	if v := os.Getenv("IMPUTE_WEIGHTED"); v != "" {
		cfg.Weighted = v == "true"
	}
	switch imputation.ZeroDistancePolicy(os.Getenv("IMPUTE_ZERO_DISTANCE")) {
	case imputation.ZeroDistanceClamp:
		cfg.ZeroDistance = imputation.ZeroDistanceClamp
	case imputation.ZeroDistanceStrict:
		cfg.ZeroDistance = imputation.ZeroDistanceStrict
	case imputation.ZeroDistanceReject:
		cfg.ZeroDistance = imputation.ZeroDistanceReject
	}
	if v, err := strconv.Atoi(os.Getenv("IMPUTE_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if v, err := time.ParseDuration(os.Getenv("IMPUTE_TIMEOUT")); err == nil && v > 0 {
		cfg.Timeout = v
	}

	return cfg
}
