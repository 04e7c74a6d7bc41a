package config

import (
	"math/rand"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLocationSpecFixed(t *testing.T) {
	var l LocationSpec
	if err := yaml.Unmarshal([]byte("EU"), &l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := l.Sample(rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "EU" {
		t.Errorf("expected EU, got %s", got)
	}
}

func TestLocationSpecWeightedChoiceAlwaysPicksDeclaredValue(t *testing.T) {
	l := LocationSpec{choices: []string{"NA", "EU", "ASIA"}, weights: []float64{1, 1, 1}}
	rng := rand.New(rand.NewSource(7))
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		got, err := l.Sample(rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[got] = true
	}
	for _, want := range []string{"NA", "EU", "ASIA"} {
		if !seen[want] {
			t.Errorf("expected %s to be sampled at least once across 50 draws", want)
		}
	}
}

func TestLocationSpecIsZero(t *testing.T) {
	var l LocationSpec
	if !l.isZero() {
		t.Error("expected an unpopulated LocationSpec to be zero")
	}
	l.fixed = "NA"
	if l.isZero() {
		t.Error("expected a populated LocationSpec to not be zero")
	}
}
