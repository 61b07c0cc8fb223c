// Package gauge provides the rain-gauge registry: station metadata, storage,
// and the stable network ordering the imputation matrices are indexed by.
package gauge

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/raingauge/raingauge/internal/geodesy"
	"github.com/raingauge/raingauge/internal/imputation"
)

// Repository errors.
var (
	ErrGaugeNotFound = errors.New("gauge not found")
	ErrEmptyNetwork  = errors.New("no gauges registered")
)

// Gauge represents a precipitation measurement station.
type Gauge struct {
	// ID is the provider-assigned station code (e.g., "NL-260").
	ID        string
	Name      string
	Lat       float64
	Lon       float64
	Elevation float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Point returns the gauge coordinates.
func (g *Gauge) Point() geodesy.Point {
	return geodesy.Point{Lat: g.Lat, Lon: g.Lon}
}

// Network is an immutable snapshot of the gauge set in a fixed order. Matrix
// rows, distance-matrix indices, and neighbor orderings all share this
// ordering, which sorts by gauge ID so the same gauge set always yields the
// same index space.
type Network struct {
	gauges  []*Gauge
	byID    map[string]int
	distOne sync.Once
	dist    *imputation.DistanceMatrix
}

// NewNetwork builds a Network from an unordered gauge list.
func NewNetwork(gauges []*Gauge) *Network {
	sorted := make([]*Gauge, len(gauges))
	copy(sorted, gauges)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].ID < sorted[b].ID
	})

	byID := make(map[string]int, len(sorted))
	for i, g := range sorted {
		byID[g.ID] = i
	}
	return &Network{gauges: sorted, byID: byID}
}

// Size returns the number of gauges in the network.
func (n *Network) Size() int { return len(n.gauges) }

// Gauges returns the gauges in network order.
func (n *Network) Gauges() []*Gauge { return n.gauges }

// At returns the gauge at the given network index.
func (n *Network) At(i int) *Gauge { return n.gauges[i] }

// Index returns the network index of a gauge ID.
func (n *Network) Index(id string) (int, bool) {
	i, ok := n.byID[id]
	return i, ok
}

// DistanceMatrix returns the pairwise geodesic distance matrix for the
// network, computed once and cached. The matrix is read-only after build.
func (n *Network) DistanceMatrix() *imputation.DistanceMatrix {
	n.distOne.Do(func() {
		points := make([]geodesy.Point, len(n.gauges))
		for i, g := range n.gauges {
			points[i] = g.Point()
		}
		n.dist = geodesy.BuildDistanceMatrix(points)
	})
	return n.dist
}
