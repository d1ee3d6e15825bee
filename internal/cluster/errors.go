package cluster

import "fmt"

// InvalidParameterError reports an eps or minPts value outside its domain.
// It is returned before any state is allocated or mutated.
type InvalidParameterError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("cluster: invalid %s %g: %s", e.Param, e.Value, e.Reason)
}

// InternalInvariantError reports an inconsistent state observed during a run,
// such as a neighbour index outside [0, N). It always indicates a defect in an
// Index implementation or in the expansion worklist, and the run that observed
// it produces no Assignment.
type InternalInvariantError struct {
	Point  int
	Detail string
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("cluster: invariant violated at point %d: %s", e.Point, e.Detail)
}

func invariantf(point int, format string, args ...interface{}) error {
	return &InternalInvariantError{Point: point, Detail: fmt.Sprintf(format, args...)}
}
