package models

// Gauge represents a rain gauge in API responses.
type Gauge struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Elevation float64   `json:"elevation,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// GaugeList is the response for the gauge listing endpoint.
type GaugeList struct {
	Gauges []Gauge `json:"gauges"`
	Count  int     `json:"count"`
}

// UpsertGaugeRequest creates or updates a gauge.
type UpsertGaugeRequest struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Lat       float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon       float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Elevation float64 `json:"elevation"`
}
