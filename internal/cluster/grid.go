package cluster

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// MaxGridDims is the highest dimensionality GridIndex accepts. Each query
// visits 3^dims cells, so the grid stops paying for itself quickly.
const MaxGridDims = 4

// RoundingSlack widens grid cells beyond eps so that a pair whose rounded
// distance is <= eps, but whose raw distance is slightly above it, still lands
// in adjacent cells. It exceeds the largest rounding error (0.5e-4).
const RoundingSlack = 1e-4

// maxCellCoord keeps floor(x/cellSize) representable as int64.
const maxCellCoord = 1 << 62

type cellKey [MaxGridDims]int64

// grid buckets point indices by cell for one eps.
type grid struct {
	cellSize float64
	cells    map[cellKey][]int
}

// GridIndex accelerates neighbourhood queries with a uniform grid whose cell
// size tracks the query radius. Candidates from the 3^dims cells around a
// point are confirmed against the DistanceMatrix with the same inclusive
// comparison a row scan uses, so results are identical to
// DistanceMatrix.Neighbors.
//
// Exactness relies on the metric bounding every per-coordinate difference by
// the distance, which holds for EuclideanMetric, ManhattanMetric and
// ChebyshevMetric. Use the matrix index for custom metrics.
//
// One grid is built lazily per distinct eps and cached; the cache is the only
// mutable state and is guarded by mu.
type GridIndex struct {
	points [][]float64
	matrix *DistanceMatrix
	dims   int

	mu    sync.Mutex
	grids map[float64]*grid // nil entry: eps too small for the coordinate range
}

// NewGridIndex creates a grid index over points. The matrix must have been
// built from the same points.
func NewGridIndex(points [][]float64, m *DistanceMatrix) (*GridIndex, error) {
	if len(points) != m.Len() {
		return nil, fmt.Errorf("cluster: %d points but matrix covers %d", len(points), m.Len())
	}
	dims := 0
	if len(points) > 0 {
		dims = len(points[0])
	}
	if dims > MaxGridDims {
		return nil, fmt.Errorf("cluster: grid index supports at most %d dimensions, got %d", MaxGridDims, dims)
	}
	return &GridIndex{
		points: points,
		matrix: m,
		dims:   dims,
		grids:  make(map[float64]*grid),
	}, nil
}

// Len returns the number of indexed points.
func (gi *GridIndex) Len() int { return gi.matrix.Len() }

// Neighbors returns, in ascending order, every index j with d[i][j] <= eps.
func (gi *GridIndex) Neighbors(i int, eps float64) []int {
	g := gi.gridFor(eps)
	if g == nil {
		return gi.matrix.Neighbors(i, eps)
	}

	base, _ := g.cellOf(gi.points[i], gi.dims)
	row := gi.matrix.Row(i)
	neighbors := make([]int, 0, 8)

	var offset [MaxGridDims]int64
	var visit func(dim int)
	visit = func(dim int) {
		if dim == gi.dims {
			var key cellKey
			for k := 0; k < gi.dims; k++ {
				key[k] = base[k] + offset[k]
			}
			for _, j := range g.cells[key] {
				if row[j] <= eps {
					neighbors = append(neighbors, j)
				}
			}
			return
		}
		for d := int64(-1); d <= 1; d++ {
			offset[dim] = d
			visit(dim + 1)
		}
	}
	visit(0)

	sort.Ints(neighbors)
	return neighbors
}

// gridFor returns the cached grid for eps, building it on first use.
func (gi *GridIndex) gridFor(eps float64) *grid {
	gi.mu.Lock()
	defer gi.mu.Unlock()

	if g, ok := gi.grids[eps]; ok {
		return g
	}
	g := buildGrid(gi.points, gi.dims, eps+RoundingSlack)
	gi.grids[eps] = g
	return g
}

// buildGrid buckets every point by cell. It returns nil when a coordinate
// divided by cellSize overflows the cell key range.
func buildGrid(points [][]float64, dims int, cellSize float64) *grid {
	g := &grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int, len(points)),
	}
	for i, p := range points {
		key, ok := g.cellOf(p, dims)
		if !ok {
			return nil
		}
		g.cells[key] = append(g.cells[key], i)
	}
	return g
}

func (g *grid) cellOf(p []float64, dims int) (cellKey, bool) {
	var key cellKey
	for k := 0; k < dims; k++ {
		c := math.Floor(p[k] / g.cellSize)
		if math.Abs(c) > maxCellCoord {
			return key, false
		}
		key[k] = int64(c)
	}
	return key, true
}

var _ Index = (*GridIndex)(nil)
