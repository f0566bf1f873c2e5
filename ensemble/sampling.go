package ensemble

import (
	"math/rand/v2"
	"sort"
)

// sampler draws the rows and columns used by each tree. All draws come
// from one PCG stream so a fixed seed reproduces the whole ensemble.
type sampler struct {
	rng             *rand.Rand
	subsample       float64
	colsampleByTree float64
}

func newSampler(p Params) *sampler {
	return &sampler{
		rng:             rand.New(rand.NewPCG(p.Seed, p.Seed)),
		subsample:       p.Subsample,
		colsampleByTree: p.ColsampleByTree,
	}
}

// sampleRows returns a sorted subset of [0, n) without replacement.
func (s *sampler) sampleRows(n int) []int {
	return s.draw(n, s.subsample)
}

// sampleColumns returns a sorted subset of [0, m).
func (s *sampler) sampleColumns(m int) []int {
	return s.draw(m, s.colsampleByTree)
}

func (s *sampler) draw(n int, fraction float64) []int {
	if fraction >= 1.0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	k := int(float64(n) * fraction)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	// partial Fisher-Yates
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	out := perm[:k]
	sort.Ints(out)
	return out
}
