package engine

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
)

// Sampler draws a mystery set from the catalog.
type Sampler interface {
	Sample(catalog []mystery.Mystery, n int) []mystery.Mystery
}

// SampleMysterySet shuffles a copy of the catalog uniformly and returns the
// first n entries (or all of them when the catalog is smaller). The catalog is
// shuffled even when it fits, so set order never leaks catalog order.
func SampleMysterySet(rng *rand.Rand, catalog []mystery.Mystery, n int) []mystery.Mystery {
	pool := make([]mystery.Mystery, len(catalog))
	copy(pool, catalog)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if n < 0 {
		n = 0
	}
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n:n]
}

// RandomSampler is a Sampler backed by a PCG source.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler seeds from the clock.
func NewRandomSampler() *RandomSampler {
	now := uint64(time.Now().UnixNano())
	return NewSeededSampler(now, now>>32|now<<32)
}

// NewSeededSampler gives reproducible sets.
func NewSeededSampler(seed1, seed2 uint64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Sample implements Sampler.
func (s *RandomSampler) Sample(catalog []mystery.Mystery, n int) []mystery.Mystery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SampleMysterySet(s.rng, catalog, n)
}
