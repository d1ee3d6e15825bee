package cluster

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when points passed to a matrix build do not
// all share the same coordinate count.
var ErrDimensionMismatch = errors.New("cluster: points have mismatched dimensionality")

// DistanceMatrix is a dense N×N table of rounded pairwise distances.
// Both triangles are stored so a row scan answers a neighbourhood query
// without index arithmetic. It is immutable after construction.
type DistanceMatrix struct {
	n int
	d *mat.Dense // nil when n == 0; gonum rejects zero-sized matrices
}

// BuildDistanceMatrix computes d[i][j] = RoundDistance(metric(points[i], points[j]))
// for every ordered pair. The diagonal is 0. Any ragged input or any metric
// result that is NaN, infinite or negative fails the whole build.
func BuildDistanceMatrix(points [][]float64, metric DistanceMetric) (*DistanceMatrix, error) {
	return BuildDistanceMatrixParallel(points, metric, 1)
}

// BuildDistanceMatrixParallel is BuildDistanceMatrix with the upper-triangle
// rows split across numWorkers goroutines. Each worker owns a contiguous row
// range and writes only cells (i, j) and (j, i) for i in that range and j > i,
// so no two workers touch the same cell. The result is bitwise identical to the
// sequential build. numWorkers <= 1 runs on the calling goroutine.
func BuildDistanceMatrixParallel(points [][]float64, metric DistanceMetric, numWorkers int) (*DistanceMatrix, error) {
	if metric == nil {
		metric = EuclideanMetric{}
	}
	n := len(points)
	if n == 0 {
		return &DistanceMatrix{}, nil
	}

	dims := len(points[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: point 0 has no coordinates", ErrDimensionMismatch)
	}
	for i, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, want %d", ErrDimensionMismatch, i, len(p), dims)
		}
	}

	d := mat.NewDense(n, n, nil)

	fill := func(start, end int) error {
		for i := start; i < end; i++ {
			for j := i + 1; j < n; j++ {
				v := metric.Distance(points[i], points[j])
				if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
					return fmt.Errorf("cluster: metric returned %v for points %d and %d", v, i, j)
				}
				v = RoundDistance(v)
				d.Set(i, j, v)
				d.Set(j, i, v)
			}
		}
		return nil
	}

	if numWorkers <= 1 || n <= 1 {
		if err := fill(0, n); err != nil {
			return nil, err
		}
		return &DistanceMatrix{n: n, d: d}, nil
	}

	rowsPerWorker := (n + numWorkers - 1) / numWorkers
	errs := make([]error, numWorkers)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		if startRow >= n {
			break
		}
		endRow := min(startRow+rowsPerWorker, n)

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = fill(start, end)
		}(w, startRow, endRow)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &DistanceMatrix{n: n, d: d}, nil
}

// NewDistanceMatrix wraps a precomputed row-major n*n table. Entries are used
// as given (no rounding). The table must have a zero diagonal, be symmetric and
// hold only finite non-negative values.
func NewDistanceMatrix(n int, data []float64) (*DistanceMatrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("cluster: negative matrix size %d", n)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("cluster: distance table length %d does not match n*n = %d (n=%d)", len(data), n*n, n)
	}
	if n == 0 {
		return &DistanceMatrix{}, nil
	}

	for i := 0; i < n; i++ {
		if data[i*n+i] != 0 {
			return nil, fmt.Errorf("cluster: diagonal entry (%d,%d) is %v, want 0", i, i, data[i*n+i])
		}
		for j := i + 1; j < n; j++ {
			v := data[i*n+j]
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("cluster: entry (%d,%d) is %v, want finite and non-negative", i, j, v)
			}
			if v != data[j*n+i] {
				return nil, fmt.Errorf("cluster: asymmetric entries (%d,%d)=%v and (%d,%d)=%v", i, j, v, j, i, data[j*n+i])
			}
		}
	}

	owned := make([]float64, len(data))
	copy(owned, data)
	return &DistanceMatrix{n: n, d: mat.NewDense(n, n, owned)}, nil
}

// Len returns the number of points the matrix covers.
func (m *DistanceMatrix) Len() int { return m.n }

// At returns the distance between points i and j.
func (m *DistanceMatrix) At(i, j int) float64 { return m.d.At(i, j) }

// Row returns the distances from point i to every point. The slice aliases
// matrix storage and must not be modified.
func (m *DistanceMatrix) Row(i int) []float64 { return m.d.RawRowView(i) }

// Neighbors returns, in ascending order, every index j with d[i][j] <= eps.
// The radius is inclusive and the result always contains i for eps >= 0.
func (m *DistanceMatrix) Neighbors(i int, eps float64) []int {
	row := m.Row(i)
	neighbors := make([]int, 0, 8)
	for j, v := range row {
		if v <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

var _ Index = (*DistanceMatrix)(nil)
