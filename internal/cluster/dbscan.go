package cluster

import "math"

// Constants for clustering configuration
const (
	// DefaultEps is the default neighbourhood radius.
	DefaultEps = 1.0
	// DefaultMinPts is the default minimum neighbourhood size (self included)
	// for a core point.
	DefaultMinPts = 2
)

// Params contains parameters for one DBSCAN run.
type Params struct {
	Eps    float64 // Neighbourhood radius, inclusive
	MinPts int     // Minimum neighbourhood size, self included, to be a core point
}

// DefaultParams returns the default DBSCAN parameters.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinPts: DefaultMinPts}
}

// Validate returns an *InvalidParameterError when eps is negative or not
// finite, or when minPts is below 1.
func (p Params) Validate() error {
	if math.IsNaN(p.Eps) || math.IsInf(p.Eps, 0) {
		return &InvalidParameterError{Param: "eps", Value: p.Eps, Reason: "must be finite"}
	}
	if p.Eps < 0 {
		return &InvalidParameterError{Param: "eps", Value: p.Eps, Reason: "must be >= 0"}
	}
	if p.MinPts < 1 {
		return &InvalidParameterError{Param: "minPts", Value: float64(p.MinPts), Reason: "must be >= 1"}
	}
	return nil
}

// DBSCAN clusters the points behind idx and returns one Assignment.
//
// Points are scanned in index order. A point whose neighbourhood holds fewer
// than MinPts indices is provisionally noise; otherwise it seeds a new cluster
// that grows breadth-first through core points. A noise point reached by a
// later cluster becomes a border member of it but is never expanded.
//
// DBSCAN keeps no state between calls and may run concurrently against the
// same Index. Any inconsistency reported by idx yields an
// *InternalInvariantError and no Assignment.
func DBSCAN(idx Index, params Params) (*Assignment, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	n := idx.Len()
	labels := make([]Label, n)
	clusterID := 0

	e := &expansion{
		idx:      idx,
		params:   params,
		labels:   labels,
		enqueued: make([]bool, n),
	}

	for i := 0; i < n; i++ {
		if labels[i].State != LabelUnvisited {
			continue // Already processed
		}

		neighbors, err := e.query(i)
		if err != nil {
			return nil, err
		}

		if len(neighbors) < params.MinPts {
			labels[i] = Label{State: LabelNoise}
			continue
		}

		clusterID++
		if err := e.expandCluster(i, neighbors, clusterID); err != nil {
			return nil, err
		}
	}

	return finalize(labels, clusterID, params)
}

// expansion holds the worklist state for growing clusters within one run.
type expansion struct {
	idx      Index
	params   Params
	labels   []Label
	enqueued []bool // set once an index has entered any queue of this run
	queue    []int
}

// query returns the neighbourhood of i after checking it against the Index
// contract.
func (e *expansion) query(i int) ([]int, error) {
	neighbors := e.idx.Neighbors(i, e.params.Eps)
	n := len(e.labels)
	self := false
	for _, j := range neighbors {
		if j < 0 || j >= n {
			return nil, invariantf(i, "neighbour index %d outside [0, %d)", j, n)
		}
		if j == i {
			self = true
		}
	}
	if !self {
		return nil, invariantf(i, "neighbourhood at eps=%g does not contain the query point", e.params.Eps)
	}
	return neighbors, nil
}

func (e *expansion) push(j int) {
	if e.enqueued[j] {
		return
	}
	e.enqueued[j] = true
	e.queue = append(e.queue, j)
}

// expandCluster grows cluster clusterID from core point seed whose
// neighbourhood is neighbors. The queue is drained in FIFO order. Every index
// that enters a queue ends the expansion as a member, so an index is enqueued
// at most once per run.
func (e *expansion) expandCluster(seed int, neighbors []int, clusterID int) error {
	e.queue = e.queue[:0]

	e.labels[seed] = Label{State: LabelMember, Cluster: clusterID}
	e.push(seed)
	for _, j := range neighbors {
		e.push(j)
	}

	for head := 0; head < len(e.queue); head++ {
		j := e.queue[head]

		switch e.labels[j].State {
		case LabelMember:
			// Settled, either the seed or a member of this cluster.
		case LabelNoise:
			// Border point: joins the cluster but does not propagate it.
			e.labels[j] = Label{State: LabelMember, Cluster: clusterID}
		case LabelUnvisited:
			e.labels[j] = Label{State: LabelMember, Cluster: clusterID}
			jNeighbors, err := e.query(j)
			if err != nil {
				return err
			}
			if len(jNeighbors) >= e.params.MinPts {
				for _, k := range jNeighbors {
					e.push(k)
				}
			}
		default:
			return invariantf(j, "unknown label %v", e.labels[j])
		}
	}
	return nil
}

// finalize converts run labels into zero-based cluster ids and Noise.
func finalize(labels []Label, numClusters int, params Params) (*Assignment, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		switch l.State {
		case LabelNoise:
			out[i] = Noise
		case LabelMember:
			if l.Cluster < 1 || l.Cluster > numClusters {
				return nil, invariantf(i, "cluster id %d outside [1, %d]", l.Cluster, numClusters)
			}
			out[i] = l.Cluster - 1
		default:
			return nil, invariantf(i, "label %v survived the scan", l)
		}
	}
	return &Assignment{Params: params, Labels: out, NumClusters: numClusters}, nil
}
