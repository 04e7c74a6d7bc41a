package config

import (
	"math/rand"

	"github.com/kharnos-labs/overlaysim/internal/simerr"
	"gopkg.in/yaml.v3"
)

// LocationSpec is a peer type's location field: either a fixed
// location tag, or a weighted choice among several — spec.md §6's
// "each either a scalar or a {Dist:{name,params}} record", specialized
// here since a location is a string tag rather than a number.
type LocationSpec struct {
	fixed   string
	choices []string
	weights []float64
}

type yamlLocationChoice struct {
	Name    string    `yaml:"name,omitempty"`
	Values  []string  `yaml:"values,omitempty"`
	Weights []float64 `yaml:"weights,omitempty"`
}

func (l *LocationSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err == nil {
			l.fixed = s
			return nil
		}
	}
	var wrapper struct {
		Dist *yamlLocationChoice `yaml:"Dist"`
	}
	if err := value.Decode(&wrapper); err == nil && wrapper.Dist != nil {
		l.choices = wrapper.Dist.Values
		l.weights = wrapper.Dist.Weights
		return nil
	}
	var direct yamlLocationChoice
	if err := value.Decode(&direct); err != nil {
		return err
	}
	l.choices = direct.Values
	l.weights = direct.Weights
	return nil
}

// MarshalYAML renders a fixed location back as a bare string, or a
// choice set back as a {values, weights} mapping.
func (l LocationSpec) MarshalYAML() (interface{}, error) {
	if l.fixed != "" {
		return l.fixed, nil
	}
	return yamlLocationChoice{Values: l.choices, Weights: l.weights}, nil
}

func (l *LocationSpec) isZero() bool {
	return l.fixed == "" && len(l.choices) == 0
}

// Sample resolves a fixed location directly, or draws one from the
// weighted choice set (uniformly if weights are absent or malformed).
func (l *LocationSpec) Sample(rng *rand.Rand) (string, error) {
	if l.fixed != "" {
		return l.fixed, nil
	}
	if len(l.choices) == 0 {
		return "", &simerr.ConfigurationError{Reason: "location spec has neither a fixed value nor choices"}
	}
	if len(l.weights) != len(l.choices) {
		return l.choices[rng.Intn(len(l.choices))], nil
	}
	total := 0.0
	for _, w := range l.weights {
		total += w
	}
	if total <= 0 {
		return l.choices[rng.Intn(len(l.choices))], nil
	}
	target := rng.Float64() * total
	acc := 0.0
	for i, w := range l.weights {
		acc += w
		if target <= acc {
			return l.choices[i], nil
		}
	}
	return l.choices[len(l.choices)-1], nil
}
