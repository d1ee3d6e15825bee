// Package cluster owns the density-based clustering engine.
//
// Responsibilities: pairwise distance computation, eps-neighbourhood
// queries, and DBSCAN cluster expansion producing one Assignment per
// (eps, minPts) pair.
// Key types: DistanceMatrix, Index, Params, Assignment.
//
// Dependency rule: cluster never performs I/O. Loading, reporting and
// persistence live in dataset, sweep and db respectively.
//
// A DistanceMatrix is immutable once built and may be shared by any number
// of concurrent DBSCAN calls; each call owns its label array and worklist.
package cluster
