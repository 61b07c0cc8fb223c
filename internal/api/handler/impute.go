package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/raingauge/raingauge/internal/api/models"
	"github.com/raingauge/raingauge/internal/api/response"
	"github.com/raingauge/raingauge/internal/geodesy"
	"github.com/raingauge/raingauge/internal/imputation"
	"github.com/raingauge/raingauge/internal/observation"
	"github.com/raingauge/raingauge/internal/worker"
)

// maxAdHocSites bounds the size of ad-hoc matrix requests. Larger networks
// should go through the stored-window run instead.
const maxAdHocSites = 500

// RunTrigger starts a stored-window imputation run.
type RunTrigger interface {
	RunWindow(ctx context.Context, w observation.Window) (*worker.RunResult, error)
}

// ImputeHandler handles imputation endpoints.
type ImputeHandler struct {
	runner RunTrigger
	logger zerolog.Logger
}

// NewImputeHandler creates a new ImputeHandler. runner may be nil when the
// API runs without a worker attached; the run trigger then returns 503.
func NewImputeHandler(runner RunTrigger, logger zerolog.Logger) *ImputeHandler {
	return &ImputeHandler{runner: runner, logger: logger}
}

// ImputeMatrix handles POST /v1/impute/matrix - ad-hoc gap filling of a
// caller-supplied observation matrix.
func (h *ImputeHandler) ImputeMatrix(w http.ResponseWriter, r *http.Request) {
	var input models.ImputeMatrixRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	m, fieldErrs := matrixFromRequest(input.Values)
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid observation matrix", fieldErrs)
		return
	}
	if m.Rows() > maxAdHocSites {
		response.BadRequest(w, r, "too many sites for ad-hoc imputation", []models.FieldError{
			{Field: "values", Message: "at most 500 sites per request", Code: "TOO_LARGE"},
		})
		return
	}

	d, fieldErrs := distancesFromRequest(input, m.Rows())
	if fieldErrs != nil {
		response.BadRequest(w, r, "invalid distance input", fieldErrs)
		return
	}

	if input.K < 0 {
		response.BadRequest(w, r, "invalid neighbor count", []models.FieldError{
			{Field: "k", Message: "must be at least 1", Code: "OUT_OF_RANGE"},
		})
		return
	}

	policy, ok := zeroDistancePolicy(input.ZeroDistance)
	if !ok {
		response.BadRequest(w, r, "invalid zero-distance policy", []models.FieldError{
			{Field: "zeroDistance", Message: "must be one of REJECT, CLAMP, STRICT", Code: "INVALID_ENUM"},
		})
		return
	}

	imputer := imputation.NewImputer(imputation.ImputerConfig{
		K:            input.K,
		Weighted:     input.Weighted,
		Power:        input.Power,
		ZeroDistance: policy,
		Logger:       h.logger,
	})

	start := time.Now()
	result, err := imputer.Impute(r.Context(), m, d)
	if err != nil {
		switch {
		case errors.Is(err, imputation.ErrZeroDistance):
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "distances", Message: "co-located sites under STRICT zero-distance policy", Code: "ZERO_DISTANCE"},
			})
		case errors.Is(err, imputation.ErrShapeMismatch):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			h.logger.Error().Err(err).Msg("ad-hoc imputation failed")
			response.InternalError(w, r, "imputation failed")
		}
		return
	}

	resp := models.ImputeMatrixResponse{
		Values:       matrixToResponse(result.Matrix),
		FilledCells:  result.FilledCells,
		StillMissing: result.StillMissing,
		Diagnostics:  diagnosticsToResponse(result.Diagnostics),
		DurationMS:   time.Since(start).Milliseconds(),
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// TriggerRun handles POST /v1/runs - start a stored-window imputation run.
func (h *ImputeHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		response.ServiceUnavailable(w, r, "no worker attached to this instance")
		return
	}

	var input models.TriggerRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	}

	days := input.WindowDays
	if days == 0 {
		days = 30
	}
	if days < 1 || days > 366 {
		response.BadRequest(w, r, "windowDays out of range", []models.FieldError{
			{Field: "windowDays", Message: "must be between 1 and 366", Code: "OUT_OF_RANGE"},
		})
		return
	}

	window := observation.DailyWindow(time.Now().UTC().AddDate(0, 0, -days), days)

	h.logger.Info().
		Str("subject", GetSubject(r.Context())).
		Int("window_days", days).
		Msg("imputation run triggered")

	result, err := h.runner.RunWindow(r.Context(), window)
	if err != nil {
		h.logger.Error().Err(err).Msg("triggered run failed")
		response.InternalError(w, r, "imputation run failed")
		return
	}

	resp := models.RunSummary{
		RunID:        result.RunID,
		WindowStart:  models.Timestamp(result.Window.Start),
		WindowEnd:    models.Timestamp(result.Window.End()),
		Gauges:       result.Gauges,
		FilledCells:  result.FilledCells,
		StillMissing: result.StillMissing,
		RowsWritten:  result.RowsWritten,
		Diagnostics:  diagnosticsToResponse(result.Diagnostics),
		DurationMS:   result.Duration.Milliseconds(),
	}
	response.JSON(w, r, http.StatusOK, resp)
}

func matrixFromRequest(values [][]*float64) (*imputation.Matrix, []models.FieldError) {
	if len(values) == 0 {
		return nil, []models.FieldError{{Field: "values", Message: "required", Code: "REQUIRED"}}
	}

	cols := len(values[0])
	for _, row := range values {
		if len(row) != cols {
			return nil, []models.FieldError{
				{Field: "values", Message: "all rows must have the same length", Code: "RAGGED"},
			}
		}
	}

	m := imputation.NewMatrix(len(values), cols)
	for i, row := range values {
		for j, v := range row {
			if v != nil {
				m.Set(i, j, *v)
			}
		}
	}
	return m, nil
}

func distancesFromRequest(input models.ImputeMatrixRequest, sites int) (*imputation.DistanceMatrix, []models.FieldError) {
	hasDistances := len(input.Distances) > 0
	hasCoordinates := len(input.Coordinates) > 0

	switch {
	case hasDistances == hasCoordinates:
		return nil, []models.FieldError{
			{Field: "distances", Message: "exactly one of distances or coordinates is required"},
			{Field: "coordinates", Message: "exactly one of distances or coordinates is required"},
		}

	case hasCoordinates:
		if len(input.Coordinates) != sites {
			return nil, []models.FieldError{
				{Field: "coordinates", Message: "must have one point per site", Code: "SHAPE_MISMATCH"},
			}
		}
		points := make([]geodesy.Point, len(input.Coordinates))
		for i, p := range input.Coordinates {
			points[i] = geodesy.Point{Lat: p.Lat, Lon: p.Lon}
		}
		return geodesy.BuildDistanceMatrix(points), nil

	default:
		if len(input.Distances) != sites {
			return nil, []models.FieldError{
				{Field: "distances", Message: "must be square with one row per site", Code: "SHAPE_MISMATCH"},
			}
		}
		for _, row := range input.Distances {
			if len(row) != sites {
				return nil, []models.FieldError{
					{Field: "distances", Message: "must be square with one row per site", Code: "SHAPE_MISMATCH"},
				}
			}
		}
		d := imputation.NewDistanceMatrix(sites)
		for i, row := range input.Distances {
			for j, v := range row {
				if i == j || v == nil {
					continue
				}
				if mirror := input.Distances[j][i]; j > i && mirror != nil && *mirror != *v {
					return nil, []models.FieldError{
						{Field: "distances", Message: "must be symmetric", Code: "SHAPE_MISMATCH"},
					}
				}
				d.Set(i, j, *v)
			}
		}
		return d, nil
	}
}

func zeroDistancePolicy(s string) (imputation.ZeroDistancePolicy, bool) {
	switch imputation.ZeroDistancePolicy(s) {
	case "":
		return imputation.ZeroDistanceReject, true
	case imputation.ZeroDistanceReject, imputation.ZeroDistanceClamp, imputation.ZeroDistanceStrict:
		return imputation.ZeroDistancePolicy(s), true
	default:
		return "", false
	}
}

func matrixToResponse(m *imputation.Matrix) [][]*float64 {
	out := make([][]*float64, m.Rows())
	for i := range out {
		row := make([]*float64, m.Cols())
		for j := range row {
			if v := m.At(i, j); !imputation.IsMissing(v) {
				value := v
				row[j] = &value
			}
		}
		out[i] = row
	}
	return out
}

func diagnosticsToResponse(diags []imputation.Diagnostic) []models.Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]models.Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = models.Diagnostic{
			Kind:       string(d.Kind),
			Site:       d.Site,
			Column:     d.Column,
			RequestedK: d.RequestedK,
			EffectiveK: d.EffectiveK,
			Neighbor:   d.Neighbor,
			Distance:   d.Distance,
		}
	}
	return out
}
