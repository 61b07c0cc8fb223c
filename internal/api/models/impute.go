package models

// ImputeMatrixRequest asks for gap filling of an ad-hoc observation matrix.
// Values is row-major, one row per site; nulls mark missing cells. Exactly
// one of Distances (a full pairwise matrix) or Coordinates (one point per
// site, distances derived great-circle) must be set.
type ImputeMatrixRequest struct {
	Values      [][]*float64 `json:"values" validate:"required"`
	Distances   [][]*float64 `json:"distances,omitempty"`
	Coordinates []Point      `json:"coordinates,omitempty"`

	K            int     `json:"k,omitempty"`
	Weighted     bool    `json:"weighted,omitempty"`
	Power        float64 `json:"power,omitempty"`
	ZeroDistance string  `json:"zeroDistance,omitempty" validate:"omitempty,oneof=REJECT CLAMP STRICT"`
}

// ImputeMatrixResponse carries the imputed matrix and per-cell diagnostics.
type ImputeMatrixResponse struct {
	Values       [][]*float64 `json:"values"`
	FilledCells  int          `json:"filledCells"`
	StillMissing int          `json:"stillMissing"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
	DurationMS   int64        `json:"durationMs"`
}

// Diagnostic reports a degraded condition for one estimated cell.
type Diagnostic struct {
	Kind       string  `json:"kind"`
	Site       int     `json:"site"`
	Column     int     `json:"column"`
	RequestedK int     `json:"requestedK,omitempty"`
	EffectiveK int     `json:"effectiveK,omitempty"`
	Neighbor   int     `json:"neighbor,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
}

// TriggerRunRequest starts a stored-window imputation run.
type TriggerRunRequest struct {
	WindowDays int `json:"windowDays,omitempty" validate:"omitempty,gte=1,lte=366"`
}

// RunSummary is the response for a completed imputation run.
type RunSummary struct {
	RunID        string       `json:"runId"`
	WindowStart  Timestamp    `json:"windowStart"`
	WindowEnd    Timestamp    `json:"windowEnd"`
	Gauges       int          `json:"gauges"`
	FilledCells  int          `json:"filledCells"`
	StillMissing int          `json:"stillMissing"`
	RowsWritten  int          `json:"rowsWritten"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
	DurationMS   int64        `json:"durationMs"`
}
