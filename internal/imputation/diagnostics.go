package imputation

// DiagnosticKind classifies a non-fatal condition encountered while
// estimating a single cell.
type DiagnosticKind string

const (
	// DiagnosticDegradedNeighborCount means fewer than the requested k valid
	// neighbors were available; the estimate used a reduced effective k.
	DiagnosticDegradedNeighborCount DiagnosticKind = "DEGRADED_NEIGHBOR_COUNT"

	// DiagnosticNoValidNeighbors means no neighbor had a measurement; the
	// cell stays missing.
	DiagnosticNoValidNeighbors DiagnosticKind = "NO_VALID_NEIGHBORS"

	// DiagnosticZeroDistance means a selected neighbor sat at zero or
	// negative distance under inverse-distance weighting and the cell was
	// rejected rather than given an infinite weight.
	DiagnosticZeroDistance DiagnosticKind = "ZERO_DISTANCE"
)

// Diagnostic records a degraded-but-recovered condition for one cell.
// Column is -1 when the estimate was made against a bare vector rather
// than a matrix column.
type Diagnostic struct {
	Kind       DiagnosticKind
	Site       int
	Column     int
	RequestedK int
	EffectiveK int

	// Neighbor and Distance are set for ZERO_DISTANCE diagnostics.
	Neighbor int
	Distance float64
}
