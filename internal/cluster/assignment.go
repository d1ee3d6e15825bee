package cluster

import "sort"

// Noise is the label of points that belong to no cluster.
const Noise = -1

// Assignment is the read-only result of one DBSCAN run.
type Assignment struct {
	// Params are the parameters the run used.
	Params Params

	// Labels assigns each point, in input order, a zero-based cluster id or
	// Noise. Cluster ids follow discovery order during the index scan.
	Labels []int

	// NumClusters is the number of distinct cluster ids in Labels.
	NumClusters int
}

// Len returns the number of labelled points.
func (a *Assignment) Len() int { return len(a.Labels) }

// NoiseCount returns the number of points labelled Noise.
func (a *Assignment) NoiseCount() int {
	count := 0
	for _, l := range a.Labels {
		if l == Noise {
			count++
		}
	}
	return count
}

// ClusterSizes returns the member count of each cluster, indexed by id.
func (a *Assignment) ClusterSizes() []int {
	sizes := make([]int, a.NumClusters)
	for _, l := range a.Labels {
		if l != Noise {
			sizes[l]++
		}
	}
	return sizes
}

// Members returns the ascending point indices of cluster k.
func (a *Assignment) Members(k int) []int {
	var members []int
	for i, l := range a.Labels {
		if l == k {
			members = append(members, i)
		}
	}
	return members
}

// NoiseIndices returns the ascending indices of noise points.
func (a *Assignment) NoiseIndices() []int { return a.Members(Noise) }

// Partition returns the clusters as sets of point indices, independent of the
// ids the run happened to assign. Each set is ascending and sets are ordered
// by their smallest index. Noise is not part of the partition; see
// NoiseIndices.
func (a *Assignment) Partition() [][]int {
	clusters := make([][]int, a.NumClusters)
	for i, l := range a.Labels {
		if l != Noise {
			clusters[l] = append(clusters[l], i)
		}
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i][0] < clusters[j][0]
	})
	return clusters
}

// SamePartition reports whether a and b split the same points into the same
// clusters and the same noise, regardless of cluster ids.
func SamePartition(a, b *Assignment) bool {
	if a.Len() != b.Len() || a.NumClusters != b.NumClusters {
		return false
	}
	// Build a bijection between ids as we go.
	aToB := make(map[int]int, a.NumClusters)
	bToA := make(map[int]int, b.NumClusters)
	for i := range a.Labels {
		la, lb := a.Labels[i], b.Labels[i]
		if (la == Noise) != (lb == Noise) {
			return false
		}
		if la == Noise {
			continue
		}
		if mapped, ok := aToB[la]; ok && mapped != lb {
			return false
		}
		if mapped, ok := bToA[lb]; ok && mapped != la {
			return false
		}
		aToB[la] = lb
		bToA[lb] = la
	}
	return true
}
