// Package testutil provides shared helpers for tests and benchmarks:
// a seeded thread-safe RNG and a float32 brute-force reference search used
// to judge quantized recall.
package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// SearchResult represents a reference search result.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// RNG encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// RandomVectors returns n random vectors of the given dimension with
// elements in [-1, 1).
func (r *RNG) RandomVectors(n, dim int) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = make([]float32, dim)
		r.FillUniformRange(vectors[i], -1, 1)
	}
	return vectors
}

// NormalizeL2 returns a unit-normalized copy of v, or v itself if its norm
// is zero.
func NormalizeL2(v []float32) []float32 {
	var norm2 float64
	for _, x := range v {
		norm2 += float64(x) * float64(x)
	}
	if norm2 == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm2))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// BruteForceL2 returns the k nearest vectors to query by exact float32
// squared-L2 distance, ordered by ascending distance.
func BruteForceL2(query []float32, vectors [][]float32, k int) []SearchResult {
	results := make([]SearchResult, 0, len(vectors))
	for i, v := range vectors {
		var dist float32
		for j := range query {
			d := query[j] - v[j]
			dist += d * d
		}
		results = append(results, SearchResult{ID: uint32(i), Distance: dist})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Recall returns the fraction of expected ids present in got.
func Recall(expected, got []uint32) float64 {
	if len(expected) == 0 {
		return 1
	}
	want := make(map[uint32]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	var hits int
	for _, id := range got {
		if _, ok := want[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(expected))
}
