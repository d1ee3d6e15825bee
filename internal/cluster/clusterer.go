package cluster

// Clusterer abstracts the clustering implementation so drivers and tests can
// swap algorithms without touching the sweep or reporting code.
type Clusterer interface {
	// Cluster labels every point. points must share one dimensionality.
	Cluster(points [][]float64) (*Assignment, error)

	// GetParams returns the current clustering parameters.
	GetParams() Params

	// SetParams updates the clustering parameters for later calls.
	SetParams(params Params)
}

// DBSCANClusterer implements Clusterer with a fresh DistanceMatrix per call.
// Callers that evaluate many parameter pairs on one dataset should build the
// matrix once and call DBSCAN directly, as the sweep runner does.
type DBSCANClusterer struct {
	params Params
	metric DistanceMetric
	index  IndexKind
}

// NewDBSCANClusterer creates a new DBSCAN clusterer with the specified
// parameters, Euclidean distance and the matrix index.
func NewDBSCANClusterer(eps float64, minPts int) *DBSCANClusterer {
	return &DBSCANClusterer{
		params: Params{Eps: eps, MinPts: minPts},
		metric: EuclideanMetric{},
		index:  IndexMatrix,
	}
}

// NewDefaultDBSCANClusterer creates a DBSCAN clusterer with default parameters.
func NewDefaultDBSCANClusterer() *DBSCANClusterer {
	params := DefaultParams()
	return NewDBSCANClusterer(params.Eps, params.MinPts)
}

// WithMetric sets the distance metric. A nil metric restores Euclidean.
func (c *DBSCANClusterer) WithMetric(m DistanceMetric) *DBSCANClusterer {
	if m == nil {
		m = EuclideanMetric{}
	}
	c.metric = m
	return c
}

// WithIndex sets the neighbourhood index kind.
func (c *DBSCANClusterer) WithIndex(kind IndexKind) *DBSCANClusterer {
	c.index = kind
	return c
}

// Cluster builds the distance matrix for points and runs DBSCAN on it.
// Invalid parameters are reported before the matrix is built.
func (c *DBSCANClusterer) Cluster(points [][]float64) (*Assignment, error) {
	if err := c.params.Validate(); err != nil {
		return nil, err
	}
	m, err := BuildDistanceMatrix(points, c.metric)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndex(c.index, points, m)
	if err != nil {
		return nil, err
	}
	return DBSCAN(idx, c.params)
}

// GetParams returns the current clustering parameters.
func (c *DBSCANClusterer) GetParams() Params {
	return c.params
}

// SetParams updates the clustering parameters.
func (c *DBSCANClusterer) SetParams(params Params) {
	c.params = params
}

// Verify at compile time that *DBSCANClusterer implements Clusterer.
var _ Clusterer = (*DBSCANClusterer)(nil)
