package cluster

import (
	"sync"
	"testing"

	"github.com/banshee-data/dbscan-sweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatrix(t *testing.T, points [][]float64) *DistanceMatrix {
	t.Helper()
	m, err := BuildDistanceMatrix(points, EuclideanMetric{})
	require.NoError(t, err)
	return m
}

func TestMatrixNeighbors_InclusiveRadius(t *testing.T) {
	m := mustMatrix(t, [][]float64{{0, 0}, {1.5, 0}, {3.1, 0}})

	assert.Equal(t, []int{0, 1}, m.Neighbors(0, 1.5))
	assert.Equal(t, []int{0}, m.Neighbors(0, 1.4999))
	assert.Equal(t, []int{0, 1, 2}, m.Neighbors(1, 1.6))
}

func TestMatrixNeighbors_ContainsSelf(t *testing.T) {
	m := mustMatrix(t, [][]float64{{0, 0}, {0, 0}, {1, 1}})

	assert.Equal(t, []int{0, 1}, m.Neighbors(0, 0))
	assert.Equal(t, []int{2}, m.Neighbors(2, 0))
}

func TestMatrixNeighbors_RoundedBoundary(t *testing.T) {
	// 1.00004 rounds to 1.0000 and therefore sits on an eps=1 boundary.
	points := [][]float64{{0, 0}, {1.00004, 0}}
	m := mustMatrix(t, points)
	assert.Equal(t, []int{0, 1}, m.Neighbors(0, 1))

	gi, err := NewGridIndex(points, m)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, gi.Neighbors(0, 1))
}

func TestGridIndex_MatchesMatrix(t *testing.T) {
	datasets := map[string][][]float64{
		"1d":    testutil.Uniform(10, 120, 1, 20),
		"2d":    testutil.Uniform(11, 300, 2, 20),
		"3d":    testutil.Uniform(12, 200, 3, 8),
		"4d":    testutil.Uniform(13, 100, 4, 4),
		"blobs": testutil.Blobs(14, [][]float64{{-5, -5}, {0, 0}, {5, 5}}, 40, 1.5),
		"dupes": {{1, 1}, {1, 1}, {1, 1}, {2, 2}, {-3, 0.5}},
	}
	radii := []float64{0, 0.05, 0.3, 1, 2.5, 50}

	for name, points := range datasets {
		t.Run(name, func(t *testing.T) {
			m := mustMatrix(t, points)
			gi, err := NewGridIndex(points, m)
			require.NoError(t, err)
			require.Equal(t, m.Len(), gi.Len())

			for _, eps := range radii {
				for i := range points {
					require.Equal(t, m.Neighbors(i, eps), gi.Neighbors(i, eps), "eps=%v point=%d", eps, i)
				}
			}
		})
	}
}

func TestGridIndex_OverflowFallsBackToMatrix(t *testing.T) {
	points := [][]float64{{0}, {1e16}, {1e16}}
	m := mustMatrix(t, points)
	gi, err := NewGridIndex(points, m)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, gi.Neighbors(1, 0))
}

func TestGridIndex_RejectsHighDimensions(t *testing.T) {
	points := testutil.Uniform(1, 5, MaxGridDims+1, 1)
	_, err := NewGridIndex(points, mustMatrix(t, points))
	assert.Error(t, err)
}

func TestGridIndex_ConcurrentQueries(t *testing.T) {
	points := testutil.Uniform(21, 200, 2, 10)
	m := mustMatrix(t, points)
	gi, err := NewGridIndex(points, m)
	require.NoError(t, err)

	radii := []float64{0.2, 0.5, 1, 2}
	var wg sync.WaitGroup
	errs := make(chan string, len(radii)*len(points))
	for _, eps := range radii {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(eps float64) {
				defer wg.Done()
				for i := range points {
					if !assert.ObjectsAreEqual(m.Neighbors(i, eps), gi.Neighbors(i, eps)) {
						errs <- "mismatch"
						return
					}
				}
			}(eps)
		}
	}
	wg.Wait()
	close(errs)
	assert.Empty(t, errs)
}

func TestNewIndex(t *testing.T) {
	small := testutil.Uniform(1, 10, 2, 5)
	mSmall := mustMatrix(t, small)

	idx, err := NewIndex(IndexAuto, small, mSmall)
	require.NoError(t, err)
	assert.IsType(t, &DistanceMatrix{}, idx)

	idx, err = NewIndex(IndexGrid, small, mSmall)
	require.NoError(t, err)
	assert.IsType(t, &GridIndex{}, idx)

	idx, err = NewIndex(IndexMatrix, small, mSmall)
	require.NoError(t, err)
	assert.IsType(t, &DistanceMatrix{}, idx)

	large := testutil.Uniform(2, autoGridMinPoints, 2, 50)
	idx, err = NewIndex(IndexAuto, large, mustMatrix(t, large))
	require.NoError(t, err)
	assert.IsType(t, &GridIndex{}, idx)

	wide := testutil.Uniform(3, autoGridMinPoints, autoGridMaxDims+1, 5)
	idx, err = NewIndex(IndexAuto, wide, mustMatrix(t, wide))
	require.NoError(t, err)
	assert.IsType(t, &DistanceMatrix{}, idx)

	_, err = NewIndex(IndexMatrix, small[:3], mSmall)
	assert.Error(t, err)

	_, err = NewIndex(IndexKind("kd"), small, mSmall)
	assert.Error(t, err)
}

func TestParseIndexKind(t *testing.T) {
	for in, want := range map[string]IndexKind{
		"":       IndexAuto,
		"auto":   IndexAuto,
		"matrix": IndexMatrix,
		"grid":   IndexGrid,
	} {
		got, err := ParseIndexKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseIndexKind("balltree")
	assert.Error(t, err)
}
