package observation

import (
	"fmt"

	"github.com/raingauge/raingauge/internal/gauge"
	"github.com/raingauge/raingauge/internal/imputation"
)

// ToMatrix pivots long observation rows into a gauge×slot matrix aligned to
// the network index space. Cells without a row stay missing. Rows for gauges
// outside the network fail the pivot; rows outside the window are skipped.
// When several rows land in one cell the last one wins.
func ToMatrix(obs []*Observation, network *gauge.Network, w Window) (*imputation.Matrix, error) {
	if w.Steps <= 0 {
		return nil, ErrEmptyWindow
	}

	m := imputation.NewMatrix(network.Size(), w.Steps)
	for _, o := range obs {
		i, ok := network.Index(o.GaugeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownGauge, o.GaugeID)
		}
		j, ok := w.SlotIndex(o.ObservedAt)
		if !ok {
			continue
		}
		m.Set(i, j, o.Millimeters)
	}
	return m, nil
}

// EstimatedRows melts an imputation result back into long rows, keeping only
// cells that were missing in the original matrix and received an estimate.
// Observed cells are never re-emitted, so persisting the rows cannot
// overwrite a real reading.
func EstimatedRows(original, imputed *imputation.Matrix, network *gauge.Network, w Window) []*Observation {
	var rows []*Observation
	for i := 0; i < imputed.Rows(); i++ {
		for j := 0; j < imputed.Cols(); j++ {
			if !imputation.IsMissing(original.At(i, j)) {
				continue
			}
			v := imputed.At(i, j)
			if imputation.IsMissing(v) {
				continue
			}
			rows = append(rows, &Observation{
				GaugeID:     network.At(i).ID,
				ObservedAt:  w.SlotTime(j),
				Millimeters: v,
				Imputed:     true,
				Source:      SourceKNN,
			})
		}
	}
	return rows
}
