// Package imputation fills gaps in a gauge×time precipitation matrix using
// spatial k-nearest-neighbor estimation over a precomputed distance matrix.
package imputation

import (
	"errors"
	"math"
)

// Imputation errors.
var (
	ErrNonSquareDistances = errors.New("distance matrix is not square")
	ErrShapeMismatch      = errors.New("distance matrix order does not match measurement rows")
	ErrZeroDistance       = errors.New("zero or negative distance between distinct gauges")
)

// Missing returns the marker used for absent observations.
// NaN is used so that a missing value is distinguishable from a measured zero.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Matrix is a dense gauge×time measurement matrix. Rows are gauges, columns
// are time slices. Cells without an observation hold the missing marker.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix creates a rows×cols matrix with every cell missing.
func NewMatrix(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// Rows returns the number of gauges.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of time slices.
func (m *Matrix) Cols() int { return m.cols }

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// Column copies column j into a new slice of length Rows.
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		col[i] = m.data[i*m.cols+j]
	}
	return col
}

// SetColumn replaces column j with the given values.
func (m *Matrix) SetColumn(j int, col []float64) {
	for i := 0; i < m.rows; i++ {
		m.data[i*m.cols+j] = col[i]
	}
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Matrix{rows: m.rows, cols: m.cols, data: data}
}

// MissingCells counts cells holding the missing marker.
func (m *Matrix) MissingCells() int {
	n := 0
	for _, v := range m.data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// DistanceMatrix is a dense symmetric matrix of pairwise gauge distances.
// The diagonal is missing: a gauge is never its own neighbor. The package
// relies on that invariant and does not enforce it; callers building the
// matrix by hand must leave the diagonal unset.
type DistanceMatrix struct {
	n    int
	data []float64
}

// NewDistanceMatrix creates an n×n distance matrix with every entry missing,
// including the diagonal.
func NewDistanceMatrix(n int) *DistanceMatrix {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = math.NaN()
	}
	return &DistanceMatrix{n: n, data: data}
}

// Order returns the number of gauges the matrix covers.
func (d *DistanceMatrix) Order() int { return d.n }

// At returns the distance between gauges i and j.
func (d *DistanceMatrix) At(i, j int) float64 {
	return d.data[i*d.n+j]
}

// Set stores the distance between gauges i and j in both triangles,
// keeping the matrix symmetric.
func (d *DistanceMatrix) Set(i, j int, v float64) {
	d.data[i*d.n+j] = v
	d.data[j*d.n+i] = v
}
