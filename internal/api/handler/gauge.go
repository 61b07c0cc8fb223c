package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raingauge/raingauge/internal/api/models"
	"github.com/raingauge/raingauge/internal/api/response"
	"github.com/raingauge/raingauge/internal/gauge"
)

// GaugeHandler handles gauge network endpoints.
type GaugeHandler struct {
	gauges *gauge.Service
}

// NewGaugeHandler creates a new GaugeHandler.
func NewGaugeHandler(gauges *gauge.Service) *GaugeHandler {
	return &GaugeHandler{gauges: gauges}
}

// ListGauges handles GET /v1/gauges - list the gauge network.
func (h *GaugeHandler) ListGauges(w http.ResponseWriter, r *http.Request) {
	network, err := h.gauges.Network(r.Context())
	if err != nil {
		if errors.Is(err, gauge.ErrEmptyNetwork) {
			response.JSON(w, r, http.StatusOK, models.GaugeList{Gauges: []models.Gauge{}})
			return
		}
		response.InternalError(w, r, "failed to load gauge network")
		return
	}

	out := make([]models.Gauge, 0, network.Size())
	for _, g := range network.Gauges() {
		out = append(out, gaugeToResponse(g))
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, models.GaugeList{Gauges: out, Count: len(out)})
}

// GetGauge handles GET /v1/gauges/{gaugeId}.
func (h *GaugeHandler) GetGauge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gaugeId")

	g, err := h.gauges.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gauge.ErrGaugeNotFound) {
			response.NotFound(w, r, "gauge not found")
			return
		}
		response.InternalError(w, r, "failed to load gauge")
		return
	}

	response.JSON(w, r, http.StatusOK, gaugeToResponse(g))
}

// UpsertGauge handles PUT /v1/gauges/{gaugeId} - create or update a gauge.
func (h *GaugeHandler) UpsertGauge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gaugeId")

	var input models.UpsertGaugeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.ID == "" {
		input.ID = id
	}
	if input.ID != id {
		response.BadRequest(w, r, "body id does not match path", []models.FieldError{
			{Field: "id", Message: "must match the gauge id in the path", Code: "MISMATCH"},
		})
		return
	}

	if fieldErrs := validateGauge(input); fieldErrs != nil {
		response.BadRequest(w, r, "invalid gauge", fieldErrs)
		return
	}

	g := &gauge.Gauge{
		ID:        input.ID,
		Name:      input.Name,
		Lat:       input.Lat,
		Lon:       input.Lon,
		Elevation: input.Elevation,
	}
	if err := h.gauges.Upsert(r.Context(), g); err != nil {
		response.InternalError(w, r, "failed to store gauge")
		return
	}

	stored, err := h.gauges.Get(r.Context(), input.ID)
	if err != nil {
		response.InternalError(w, r, "failed to load stored gauge")
		return
	}

	response.JSON(w, r, http.StatusOK, gaugeToResponse(stored))
}

func validateGauge(input models.UpsertGaugeRequest) []models.FieldError {
	var errs []models.FieldError
	if input.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "required", Code: "REQUIRED"})
	}
	if input.Lat < -90 || input.Lat > 90 {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	if input.Lon < -180 || input.Lon > 180 {
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	return errs
}

func gaugeToResponse(g *gauge.Gauge) models.Gauge {
	return models.Gauge{
		ID:        g.ID,
		Name:      g.Name,
		Lat:       g.Lat,
		Lon:       g.Lon,
		Elevation: g.Elevation,
		CreatedAt: models.Timestamp(g.CreatedAt),
		UpdatedAt: models.Timestamp(g.UpdatedAt),
	}
}
