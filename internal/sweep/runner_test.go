package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/banshee-data/dbscan-sweep/internal/cluster"
	"github.com/banshee-data/dbscan-sweep/internal/monitoring"
	"github.com/banshee-data/dbscan-sweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func concreteIndex(t *testing.T) *cluster.DistanceMatrix {
	t.Helper()
	m, err := cluster.BuildDistanceMatrix(testutil.ConcretePoints(), cluster.EuclideanMetric{})
	require.NoError(t, err)
	return m
}

func defaultGrid(t *testing.T) []cluster.Params {
	t.Helper()
	grid, err := Grid([]float64{1, 2, 3, 4}, []int{2, 4, 6})
	require.NoError(t, err)
	return grid
}

func TestRunner_ConcreteSweep(t *testing.T) {
	quietLogs(t)
	r := &Runner{Index: concreteIndex(t), Workers: 3}
	grid := defaultGrid(t)

	results, err := r.Run(context.Background(), grid)
	require.NoError(t, err)
	require.Len(t, results, 12)

	for i, res := range results {
		require.True(t, res.OK(), "combination %d: %v", i, res.Err)
		assert.Equal(t, grid[i], res.Params)
		assert.Equal(t, grid[i], res.Assignment.Params)
		if res.Params.MinPts == 2 {
			assert.Equal(t, []int{0, 0, 0, cluster.Noise}, res.Assignment.Labels, "%+v", res.Params)
		} else {
			assert.Equal(t, 4, res.Assignment.NoiseCount(), "%+v", res.Params)
		}
	}
	assert.Empty(t, Failed(results))
}

func TestRunner_OrderIndependentOfWorkers(t *testing.T) {
	quietLogs(t)
	points := testutil.Uniform(17, 150, 2, 10)
	m, err := cluster.BuildDistanceMatrix(points, cluster.EuclideanMetric{})
	require.NoError(t, err)
	grid, err := Grid([]float64{0.3, 0.6, 0.9, 1.2, 1.5}, []int{2, 3, 5, 8})
	require.NoError(t, err)

	sequential, err := (&Runner{Index: m, Workers: 1}).Run(context.Background(), grid)
	require.NoError(t, err)
	for _, workers := range []int{0, 2, 7, 64} {
		parallel, err := (&Runner{Index: m, Workers: workers}).Run(context.Background(), grid)
		require.NoError(t, err)
		for i := range grid {
			assert.Equal(t, sequential[i].Params, parallel[i].Params)
			assert.Equal(t, sequential[i].Assignment.Labels, parallel[i].Assignment.Labels, "workers=%d combination %d", workers, i)
		}
	}
}

// failingIndex returns an out-of-range neighbour for one eps value.
type failingIndex struct {
	cluster.Index
	badEps float64
	calls  atomic.Int64
}

func (f *failingIndex) Neighbors(i int, eps float64) []int {
	f.calls.Add(1)
	if eps == f.badEps {
		return []int{i, f.Len()}
	}
	return f.Index.Neighbors(i, eps)
}

func TestRunner_ContinuesPastFailure(t *testing.T) {
	quietLogs(t)
	idx := &failingIndex{Index: concreteIndex(t), badEps: 2}
	r := &Runner{Index: idx, Workers: 2}

	results, err := r.Run(context.Background(), defaultGrid(t))
	require.NoError(t, err)

	failed := Failed(results)
	require.Len(t, failed, 3)
	for _, res := range failed {
		assert.Equal(t, 2.0, res.Params.Eps)
		assert.Nil(t, res.Assignment)
		var ie *cluster.InternalInvariantError
		assert.True(t, errors.As(res.Err, &ie))
	}
	for _, res := range results {
		if res.Params.Eps != 2 {
			assert.True(t, res.OK())
		}
	}
}

func TestRunner_FailFast(t *testing.T) {
	quietLogs(t)
	idx := &failingIndex{Index: concreteIndex(t), badEps: 1}
	r := &Runner{Index: idx, Workers: 1, FailFast: true}

	results, err := r.Run(context.Background(), defaultGrid(t))
	require.Error(t, err)
	var ie *cluster.InternalInvariantError
	assert.True(t, errors.As(err, &ie))
	assert.Contains(t, err.Error(), "eps=1 minPts=2")

	require.Len(t, results, 12)
	assert.False(t, results[0].OK())
	// With one worker nothing after the failure may have run.
	skipped := 0
	for _, res := range results[1:] {
		if errors.Is(res.Err, ErrSkipped) {
			skipped++
		}
	}
	assert.Positive(t, skipped)
}

func TestRunner_Cancelled(t *testing.T) {
	quietLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := &failingIndex{Index: concreteIndex(t), badEps: -1}
	results, err := (&Runner{Index: idx}).Run(ctx, defaultGrid(t))
	require.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, ErrSkipped)
	}
	assert.Zero(t, idx.calls.Load())
}

func TestRunner_NoIndex(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunner_EmptyGrid(t *testing.T) {
	results, err := (&Runner{Index: concreteIndex(t)}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
