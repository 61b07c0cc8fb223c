// Package feed defines the upstream precipitation feed a worker ingests
// gauge metadata and readings from.
package feed

import (
	"context"
	"errors"
	"time"
)

// Provider errors.
var (
	ErrFeedUnavailable = errors.New("precipitation feed unavailable")
	ErrNoReadings      = errors.New("feed returned no readings")
)

// Station is a gauge as reported by the upstream feed.
type Station struct {
	Code      string
	Name      string
	Lat       float64
	Lon       float64
	Elevation float64
}

// Reading is a single precipitation value from the feed. Millimeters is nil
// when the station reported no value for the interval.
type Reading struct {
	StationCode string
	MeasuredAt  time.Time
	Millimeters *float64
}

// Provider fetches station metadata and readings from an upstream feed.
type Provider interface {
	// FetchStations fetches the feed's station catalogue.
	FetchStations(ctx context.Context) ([]*Station, error)

	// FetchReadings fetches precipitation readings for the given day.
	FetchReadings(ctx context.Context, day time.Time) ([]*Reading, error)
}
