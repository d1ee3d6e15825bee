package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/dbscan-sweep/internal/cluster"
	"github.com/banshee-data/dbscan-sweep/internal/monitoring"
)

// ErrSkipped marks a combination that never ran because the sweep was
// cancelled or aborted first.
var ErrSkipped = errors.New("sweep: combination skipped")

// Result is the outcome of one combination. Exactly one of Assignment and Err
// is set.
type Result struct {
	Params     cluster.Params
	Assignment *cluster.Assignment
	Elapsed    time.Duration
	Err        error
}

// OK reports whether the combination produced an assignment.
func (r Result) OK() bool { return r.Err == nil && r.Assignment != nil }

// Runner evaluates a sweep grid against one shared Index.
type Runner struct {
	Index cluster.Index

	// Workers bounds the number of combinations evaluated at once. Zero or
	// less uses GOMAXPROCS.
	Workers int

	// FailFast aborts the sweep on the first failed combination. Otherwise
	// the failure is recorded on that Result and the sweep continues.
	FailFast bool
}

// Run evaluates every combination in grid and returns one Result per
// combination in grid order, independent of completion order.
//
// Cancellation is observed between combinations; a running DBSCAN is not
// interrupted. When ctx is cancelled, or FailFast is set and a combination
// fails, Run returns the partial results together with the error. Results
// that never ran carry ErrSkipped.
func (r *Runner) Run(ctx context.Context, grid []cluster.Params) ([]Result, error) {
	if r.Index == nil {
		return nil, errors.New("sweep: runner has no index")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(grid))
	for i, p := range grid {
		results[i] = Result{Params: p, Err: ErrSkipped}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	total := len(grid)
	for i, p := range grid {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = fmt.Errorf("%w: %w", ErrSkipped, err)
				return nil
			}

			start := time.Now()
			a, err := cluster.DBSCAN(r.Index, p)
			elapsed := time.Since(start)
			results[i] = Result{Params: p, Assignment: a, Elapsed: elapsed, Err: err}

			if err != nil {
				monitoring.Logf("[sweep] Combination %d/%d: eps=%g minPts=%d failed: %v", i+1, total, p.Eps, p.MinPts, err)
				if r.FailFast {
					return fmt.Errorf("eps=%g minPts=%d: %w", p.Eps, p.MinPts, err)
				}
				return nil
			}
			monitoring.Logf("[sweep] Combination %d/%d: eps=%g minPts=%d clusters=%d noise=%d (%s)",
				i+1, total, p.Eps, p.MinPts, a.NumClusters, a.NoiseCount(), elapsed.Round(time.Microsecond))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Failed returns the results that carry an error, in grid order.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}
