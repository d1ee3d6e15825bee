// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the small datasets and temp-file helpers used by
// the cluster, dataset, sweep and cmd tests so scenarios stay identical
// across packages.
package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// ConcreteTSV is the four-point scenario A:(0,0) B:(0,1) C:(0,2) D:(10,10).
// With eps=1.5 and minPts=2, A, B and C form one cluster and D is noise.
const ConcreteTSV = "A\t0\t0\nB\t0\t1\nC\t0\t2\nD\t10\t10\n"

// ConcretePoints returns the coordinates of ConcreteTSV.
func ConcretePoints() [][]float64 {
	return [][]float64{{0, 0}, {0, 1}, {0, 2}, {10, 10}}
}

// WriteFile writes content to name inside a fresh temp directory and returns
// the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Blobs returns len(centers)*perBlob points scattered uniformly within
// ±spread of each center, in blob order. The generator is seeded so every
// call with the same arguments returns the same points.
func Blobs(seed uint64, centers [][]float64, perBlob int, spread float64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	points := make([][]float64, 0, len(centers)*perBlob)
	for _, c := range centers {
		for i := 0; i < perBlob; i++ {
			p := make([]float64, len(c))
			for k := range c {
				p[k] = c[k] + (rng.Float64()*2-1)*spread
			}
			points = append(points, p)
		}
	}
	return points
}

// Uniform returns n points drawn uniformly from [0, size)^dims.
func Uniform(seed uint64, n, dims int, size float64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, dims)
		for k := range p {
			p[k] = rng.Float64() * size
		}
		points[i] = p
	}
	return points
}

// Shuffle returns a permutation perm of [0, n) and points reordered so that
// shuffled[i] == points[perm[i]].
func Shuffle(seed uint64, points [][]float64) (shuffled [][]float64, perm []int) {
	rng := rand.New(rand.NewPCG(seed, ^seed))
	perm = rng.Perm(len(points))
	shuffled = make([][]float64, len(points))
	for i, p := range perm {
		shuffled[i] = points[p]
	}
	return shuffled, perm
}

// TSV renders points as loader input with ids p0, p1, ...
func TSV(points [][]float64) string {
	var b strings.Builder
	for i, p := range points {
		b.WriteString("p")
		b.WriteString(strconv.Itoa(i))
		for _, v := range p {
			b.WriteByte('\t')
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
