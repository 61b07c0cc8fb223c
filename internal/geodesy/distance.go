// Package geodesy computes geodesic distances between gauge coordinates and
// assembles the pairwise distance matrix consumed by the imputation core.
package geodesy

import (
	"math"

	"github.com/raingauge/raingauge/internal/imputation"
)

// earthRadius in meters.
const earthRadius = 6371000

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between two points in meters,
// using the Haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// BuildDistanceMatrix computes the dense symmetric pairwise distance matrix
// for the given points. The diagonal is left missing, which the imputation
// core relies on to keep a gauge out of its own neighbor list.
func BuildDistanceMatrix(points []Point) *imputation.DistanceMatrix {
	d := imputation.NewDistanceMatrix(len(points))
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d.Set(i, j, Distance(points[i], points[j]))
		}
	}
	return d
}
