package testutil

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/quarry/model"
)

// RNG struct encapsulates the random number generator and seed.
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

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
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

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Scores returns n scores drawn from levels evenly spaced values in
// [0, levels/4). Few levels force many ties.
func (r *RNG) Scores(n, levels int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, n)
	for i := range out {
		out[i] = float32(r.rand.Intn(levels)) / 4
	}
	return out
}

// SortedDocs returns n distinct DocIDs below maxDoc in ascending order.
// n is capped at maxDoc.
func (r *RNG) SortedDocs(maxDoc, n int) []model.DocID {
	r.mu.Lock()
	defer r.mu.Unlock()

	n = min(n, maxDoc)
	seen := make(map[int]struct{}, n)
	for len(seen) < n {
		seen[r.rand.Intn(maxDoc)] = struct{}{}
	}
	out := make([]model.DocID, 0, n)
	for d := range seen {
		out = append(out, model.DocID(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// Word returns the i-th word of the synthetic vocabulary.
func Word(i int) string {
	return "w" + strconv.Itoa(i)
}

// Corpus returns n document bodies of up to maxLen words each, drawn
// from a vocabulary of vocab words with a Zipf(1.0) distribution, so
// low-numbered words are common and high-numbered words are rare.
func (r *RNG) Corpus(n, maxLen, vocab int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, n)
	var sb strings.Builder
	for i := range out {
		sb.Reset()
		words := 1 + r.rand.Intn(maxLen)
		for j := 0; j < words; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(Word(r.zipfLocked(vocab, 1.0)))
		}
		out[i] = sb.String()
	}
	return out
}

// ExactTopK ranks every document of scores, where scores[i] is the score
// of DocID i, and returns the n best in rank order. It is the reference
// a top-k collector must agree with.
func ExactTopK(scores []float32, n int) []model.ScoreDoc {
	all := make([]model.ScoreDoc, len(scores))
	for i, s := range scores {
		all[i] = model.ScoreDoc{Doc: model.DocID(i), Score: s}
	}
	sort.SliceStable(all, func(i, j int) bool { return model.Better(all[i], all[j]) })
	if n < 0 {
		n = 0
	}
	if n < len(all) {
		all = all[:n]
	}
	return all
}
