// Package observation stores precipitation measurements and converts between
// the long row form used for storage and the wide gauge×time matrix form the
// imputation core consumes.
package observation

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrEmptyWindow   = errors.New("window contains no time slots")
	ErrUnknownGauge  = errors.New("observation references an unregistered gauge")
	ErrNoObservation = errors.New("no observation for gauge and time")
)

// SourceKNN marks values produced by the imputation run rather than a gauge.
const SourceKNN = "knn"

// Observation is a single precipitation reading in long form.
type Observation struct {
	GaugeID     string
	ObservedAt  time.Time
	Millimeters float64

	// Imputed marks estimated values. Imputed rows may be overwritten by a
	// later run or by a real reading; observed rows never are.
	Imputed bool

	// Source identifies where the value came from: the feed provider name,
	// or SourceKNN for estimates.
	Source string
}

// Window is a regular grid of time slots: Steps slots of Step duration
// starting at Start. Matrix columns are indexed by slot.
type Window struct {
	Start time.Time
	Step  time.Duration
	Steps int
}

// DailyWindow builds a window of whole days starting at midnight UTC of start.
func DailyWindow(start time.Time, days int) Window {
	day := start.UTC().Truncate(24 * time.Hour)
	return Window{Start: day, Step: 24 * time.Hour, Steps: days}
}

// End returns the exclusive end of the window.
func (w Window) End() time.Time {
	return w.Start.Add(time.Duration(w.Steps) * w.Step)
}

// SlotTime returns the start time of slot j.
func (w Window) SlotTime(j int) time.Time {
	return w.Start.Add(time.Duration(j) * w.Step)
}

// SlotIndex maps a timestamp to its slot, truncating within the slot.
// ok is false for timestamps outside the window.
func (w Window) SlotIndex(t time.Time) (int, bool) {
	if w.Step <= 0 || t.Before(w.Start) {
		return 0, false
	}
	j := int(t.Sub(w.Start) / w.Step)
	if j >= w.Steps {
		return 0, false
	}
	return j, true
}
