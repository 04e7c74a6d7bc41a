package engine

import (
	"fmt"
	"math/rand"

	"github.com/kharnos-labs/overlaysim/internal/distribution"
)

// Location is a location tag as declared in the `locations` list.
type Location string

// cacheN is how many samples the oracle draws from a distribution at
// once, amortizing sampling cost across repeated lookups for the same
// location pair.
const cacheN = 32

type locPair struct {
	a, b Location
}

func normalize(a, b Location) locPair {
	if a <= b {
		return locPair{a, b}
	}
	return locPair{b, a}
}

// ErrLatencyUnknown is the LatencyUnknownError of spec.md §7: raised
// when a location pair is missing from both halves of the latency
// matrix after symmetric completion.
type ErrLatencyUnknown struct {
	A, B Location
}

func (e *ErrLatencyUnknown) Error() string {
	return fmt.Sprintf("latency oracle: no entry for locations %q/%q", e.A, e.B)
}

// LatencyOracle maps a pair of locations to a delivery latency,
// sampled lazily from a configured distribution and cached for reuse.
// It is not safe for concurrent use — like everything else here, it
// is only ever touched from the scheduler's single logical thread.
type LatencyOracle struct {
	specs map[locPair]distribution.Spec
	cache map[locPair][]SimTime
	rng   *rand.Rand
}

// NewLatencyOracle builds an oracle from a (possibly one-sided)
// locations matrix, completing it into a symmetric matrix by copying
// the opposite entry wherever only one direction was given, and from
// the seeded RNG the caller's Simulation uses for every stochastic
// draw in the run.
func NewLatencyOracle(matrix map[Location]map[Location]distribution.Spec, rng *rand.Rand) *LatencyOracle {
	specs := make(map[locPair]distribution.Spec)
	for a, row := range matrix {
		for b, spec := range row {
			specs[normalize(a, b)] = spec
		}
	}
	return &LatencyOracle{specs: specs, cache: make(map[locPair][]SimTime), rng: rng}
}

// Get returns one delivery latency between a and b, drawing and
// caching a fresh batch from the configured distribution when the
// pre-drawn cache for this pair is empty. Negative samples are
// clamped to zero; the oracle never returns a negative delay.
func (o *LatencyOracle) Get(a, b Location) (SimTime, error) {
	key := normalize(a, b)
	if cached := o.cache[key]; len(cached) > 0 {
		v := cached[len(cached)-1]
		o.cache[key] = cached[:len(cached)-1]
		return v, nil
	}
	spec, ok := o.specs[key]
	if !ok {
		return 0, &ErrLatencyUnknown{A: a, B: b}
	}
	batch := make([]SimTime, cacheN)
	for i := range batch {
		ms := spec.Sample(o.rng)
		if ms < 0 {
			ms = 0
		}
		batch[i] = Millis(ms)
	}
	v := batch[len(batch)-1]
	o.cache[key] = batch[:len(batch)-1]
	return v, nil
}
