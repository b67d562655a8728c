package utils

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the source of randomness used for city, page and reference selection.
type Rand interface {
	Intn(n int) int
}

// LockedRand is a seedable Rand that is safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a LockedRand seeded with seed.
func NewRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRand returns a LockedRand seeded from the wall clock.
func NewTimeSeededRand() *LockedRand {
	return NewRand(time.Now().UnixNano())
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Pick returns a uniformly chosen element of items. items must not be empty.
func Pick[T any](rng Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
