package cluster

import "fmt"

// LabelState is the per-point decision during one expansion run.
type LabelState uint8

const (
	// LabelUnvisited: no decision made yet.
	LabelUnvisited LabelState = iota
	// LabelNoise points were visited and found not to be core. The verdict is
	// provisional: a later cluster may reclaim the point as a border point.
	LabelNoise
	// LabelMember points belong to the cluster in Label.Cluster.
	LabelMember
)

// Label is the tagged per-point state of a run. Cluster is meaningful only
// when State is LabelMember and is numbered from 1 in discovery order.
type Label struct {
	State   LabelState
	Cluster int
}

func (l Label) String() string {
	switch l.State {
	case LabelUnvisited:
		return "unvisited"
	case LabelNoise:
		return "noise"
	case LabelMember:
		return fmt.Sprintf("member(%d)", l.Cluster)
	default:
		return fmt.Sprintf("label(%d)", l.State)
	}
}
