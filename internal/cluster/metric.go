package cluster

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DistancePrecision is the number of decimal digits kept for every stored
// distance. Rounding makes the inclusive eps comparison reproducible across
// platforms and metric implementations.
const DistancePrecision = 4

const distanceScale = 1e4

// RoundDistance rounds d to DistancePrecision decimal digits.
func RoundDistance(d float64) float64 {
	return math.Round(d*distanceScale) / distanceScale
}

// DistanceMetric computes a dissimilarity between two coordinate vectors of
// equal length. Implementations must be deterministic, symmetric, return 0
// exactly for equal vectors and satisfy the triangle inequality.
type DistanceMetric interface {
	Distance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 2) }

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 1) }

// ChebyshevMetric computes the Chebyshev (L-infinity) distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// Metric names accepted by MetricByName.
const (
	MetricEuclidean = "euclidean"
	MetricManhattan = "manhattan"
	MetricChebyshev = "chebyshev"
)

// MetricByName resolves a built-in metric. The empty string selects Euclidean.
func MetricByName(name string) (DistanceMetric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricEuclidean:
		return EuclideanMetric{}, nil
	case MetricManhattan:
		return ManhattanMetric{}, nil
	case MetricChebyshev:
		return ChebyshevMetric{}, nil
	default:
		return nil, fmt.Errorf("cluster: unknown metric %q (want %s, %s or %s)",
			name, MetricEuclidean, MetricManhattan, MetricChebyshev)
	}
}
