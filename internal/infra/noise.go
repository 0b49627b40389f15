package infra

import (
	"math/rand"
	"sync"
	"time"

	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

// Noise is the single pseudo-random source for slippage and synthetic price
// walks. It is seedable so tests can assert deterministic outcomes.
type Noise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoise creates a noise source. A zero seed falls back to the clock.
func NewNoise(seed int64) *Noise {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Noise{rng: rand.New(rand.NewSource(seed))}
}

// SymmetricBps returns a uniform value in [-maxBps, +maxBps].
func (n *Noise) SymmetricBps(maxBps int64) int64 {
	if maxBps <= 0 {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rng.Int63n(2*maxBps+1) - maxBps
}

// Perturb shifts a price by a random fraction bounded by maxBps:
// price + price * ε where |ε| <= maxBps/10000. The result never goes
// non-positive.
func (n *Noise) Perturb(price quant.PriceMicros, maxBps int64) quant.PriceMicros {
	delta := safe.MulDiv(int64(price), n.SymmetricBps(maxBps), quant.BpsScale)
	out := quant.PriceMicros(safe.Add(int64(price), delta))
	if out <= 0 {
		return price
	}
	return out
}

// IntBetween returns a uniform value in [lo, hi]. Used to fabricate the
// synthetic snapshot baseline.
func (n *Noise) IntBetween(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return lo + n.rng.Int63n(hi-lo+1)
}
