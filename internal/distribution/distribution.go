// Package distribution is the simulator's distribution-sampling
// helper. spec.md lists it explicitly as an external collaborator
// whose behavior is not load-bearing for the core; this package is
// deliberately a thin, stdlib-only implementation (see DESIGN.md) of
// the kinds named in spec.md's design notes: normal, inverse-gamma,
// uniform, Pareto, and a weighted discrete sample.
package distribution

import (
	"math"
	"math/rand"
)

// Kind identifies a named distribution. The YAML boundary maps a
// string (e.g. "norm", "invgamma") onto one of these before a Spec is
// constructed, so the rest of the simulator never dispatches on
// strings.
type Kind int

const (
	Constant Kind = iota
	Normal
	InverseGamma
	Uniform
	Pareto
	DiscreteSample
)

// Spec fully parameterizes one distribution. Only the fields relevant
// to Kind are read.
type Spec struct {
	Kind Kind

	// Constant
	Value float64

	// Normal: Mean, StdDev
	Mean   float64
	StdDev float64

	// InverseGamma: Shape (alpha), Scale (beta)
	Shape float64
	Scale float64

	// Uniform: Low, High
	Low  float64
	High float64

	// Pareto: Shape (alpha), Scale (x_m)
	// reuses Shape/Scale above.

	// DiscreteSample
	Values  []float64
	Weights []float64
}

// Sample draws one value from rng according to spec. Negative draws
// are the caller's concern to clamp (the latency oracle clamps to
// zero; bandwidth samplers reject non-positive draws at the config
// layer) — this package only samples, it never judges a result.
func (s Spec) Sample(rng *rand.Rand) float64 {
	switch s.Kind {
	case Constant:
		return s.Value
	case Normal:
		return rng.NormFloat64()*s.StdDev + s.Mean
	case InverseGamma:
		return sampleInverseGamma(rng, s.Shape, s.Scale)
	case Uniform:
		return s.Low + rng.Float64()*(s.High-s.Low)
	case Pareto:
		return samplePareto(rng, s.Shape, s.Scale)
	case DiscreteSample:
		return sampleDiscrete(rng, s.Values, s.Weights)
	default:
		return s.Value
	}
}

// sampleInverseGamma draws from an inverse-gamma(shape, scale) by
// inverting a gamma(shape, 1/scale) draw, the standard construction.
func sampleInverseGamma(rng *rand.Rand, shape, scale float64) float64 {
	g := sampleGamma(rng, shape, 1)
	if g == 0 {
		return 0
	}
	return scale / g
}

// sampleGamma implements Marsaglia & Tsang's method for shape >= 1,
// boosting shape<1 draws the standard way.
func sampleGamma(rng *rand.Rand, shape, rate float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1, rate) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v / rate
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v / rate
		}
	}
}

func samplePareto(rng *rand.Rand, shape, scale float64) float64 {
	if shape == 0 {
		shape = 1
	}
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return scale / math.Pow(u, 1/shape)
}

func sampleDiscrete(rng *rand.Rand, values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(weights) != len(values) {
		return values[rng.Intn(len(values))]
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return values[rng.Intn(len(values))]
	}
	target := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target <= acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}
