package geodesy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raingauge/raingauge/internal/geodesy"
	"github.com/raingauge/raingauge/internal/imputation"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      geodesy.Point
		want      float64 // meters
		tolerance float64
	}{
		{
			name:      "same point",
			a:         geodesy.Point{Lat: 52.370, Lon: 4.89},
			b:         geodesy.Point{Lat: 52.370, Lon: 4.89},
			want:      0,
			tolerance: 1,
		},
		{
			name:      "Amsterdam to Rotterdam",
			a:         geodesy.Point{Lat: 52.370216, Lon: 4.895168},
			b:         geodesy.Point{Lat: 51.9225, Lon: 4.47917},
			want:      57000,
			tolerance: 2000,
		},
		{
			name:      "De Bilt to Maastricht",
			a:         geodesy.Point{Lat: 52.1093, Lon: 5.1810},
			b:         geodesy.Point{Lat: 50.8514, Lon: 5.6910},
			want:      144000,
			tolerance: 5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, geodesy.Distance(tt.a, tt.b), tt.tolerance)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := geodesy.Point{Lat: 52.370, Lon: 4.89}
	b := geodesy.Point{Lat: 51.9225, Lon: 4.47917}
	assert.Equal(t, geodesy.Distance(a, b), geodesy.Distance(b, a))
}

func TestBuildDistanceMatrix(t *testing.T) {
	points := []geodesy.Point{
		{Lat: 52.370, Lon: 4.89},
		{Lat: 51.9225, Lon: 4.47917},
		{Lat: 52.0705, Lon: 4.3007},
	}

	d := geodesy.BuildDistanceMatrix(points)
	require.Equal(t, 3, d.Order())

	for i := 0; i < 3; i++ {
		assert.True(t, imputation.IsMissing(d.At(i, i)), "diagonal must stay missing")
		for j := 0; j < 3; j++ {
			if i == j {
				continue
			}
			assert.Equal(t, d.At(i, j), d.At(j, i), "matrix must be symmetric")
			assert.Greater(t, d.At(i, j), 0.0)
		}
	}
}
