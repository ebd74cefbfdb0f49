package scanning

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// Randomizer supplies host order, per-host port order and per-host stealth
// delays. It is safe for concurrent use by host tasks.
type Randomizer struct {
	enabled  bool
	maxDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomizer creates a randomizer. A zero seed draws one from the runtime
// source; any other seed makes every sequence reproducible.
func NewRandomizer(enabled bool, maxDelay time.Duration, seed uint64) *Randomizer {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Randomizer{
		enabled:  enabled,
		maxDelay: max(maxDelay, 0),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// HostOrder returns a permutation of [0, n). It is the identity when
// randomization is off.
func (r *Randomizer) HostOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if !r.enabled || n < 2 {
		return order
	}
	r.mu.Lock()
	r.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	r.mu.Unlock()
	return order
}

// PortOrder returns a fresh copy of ps, shuffled when randomization is on.
// Each call draws a new permutation.
func (r *Randomizer) PortOrder(ps []uint16) []uint16 {
	out := slices.Clone(ps)
	if !r.enabled || len(out) < 2 {
		return out
	}
	r.mu.Lock()
	r.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	r.mu.Unlock()
	return out
}

// Delay draws a stealth delay uniformly from [0, maxDelay]. It is drawn once
// per host, before its first probe.
func (r *Randomizer) Delay() time.Duration {
	if r.maxDelay <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.rng.Int64N(int64(r.maxDelay) + 1))
}

// Enabled reports whether ordering is shuffled.
func (r *Randomizer) Enabled() bool {
	return r.enabled
}
