package cluster

import "fmt"

// Index answers eps-neighbourhood queries over a fixed point set.
//
// Neighbors must return every index j in [0, Len()) whose stored distance to i
// is <= eps, including i itself, with no duplicates. Implementations must be
// safe for concurrent use: a parameter sweep queries one Index from many
// goroutines.
type Index interface {
	Len() int
	Neighbors(i int, eps float64) []int
}

// IndexKind selects a neighbourhood query implementation.
type IndexKind string

const (
	IndexAuto   IndexKind = "auto"
	IndexMatrix IndexKind = "matrix"
	IndexGrid   IndexKind = "grid"
)

// autoGridMinPoints is the dataset size from which IndexAuto prefers the grid.
// Below it a row scan is as fast as hashing cell keys.
const autoGridMinPoints = 256

// autoGridMaxDims bounds the dimensionality for which IndexAuto picks the
// grid; each query visits 3^dims cells.
const autoGridMaxDims = 3

// ParseIndexKind validates an index name. The empty string selects IndexAuto.
func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(s); k {
	case "":
		return IndexAuto, nil
	case IndexAuto, IndexMatrix, IndexGrid:
		return k, nil
	default:
		return "", fmt.Errorf("cluster: unknown index %q (want %s, %s or %s)", s, IndexAuto, IndexMatrix, IndexGrid)
	}
}

// NewIndex returns the neighbourhood query for kind over points and their
// precomputed matrix. Both must describe the same point set.
func NewIndex(kind IndexKind, points [][]float64, m *DistanceMatrix) (Index, error) {
	if len(points) != m.Len() {
		return nil, fmt.Errorf("cluster: %d points but matrix covers %d", len(points), m.Len())
	}
	dims := 0
	if len(points) > 0 {
		dims = len(points[0])
	}

	switch kind {
	case IndexMatrix:
		return m, nil
	case IndexGrid:
		return NewGridIndex(points, m)
	case IndexAuto, "":
		if len(points) >= autoGridMinPoints && dims <= autoGridMaxDims {
			return NewGridIndex(points, m)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("cluster: unknown index %q", kind)
	}
}
