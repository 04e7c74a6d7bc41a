package config

import "testing"

func TestDistSpecScalarYAML(t *testing.T) {
	root, err := LoadBytes([]byte(`
locations: [NA]
peer_types:
  leaf:
    Peer:
      location: NA
      bandwidth_ul: 12.5
      bandwidth_dl: 7
topology:
  - id: 1
    type: leaf
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ul, err := root.PeerTypes["leaf"].Peer.BandwidthUL.ToDistribution()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ul.Value != 12.5 {
		t.Errorf("expected constant 12.5, got %v", ul.Value)
	}
}

func TestDistSpecNamedDistributionYAML(t *testing.T) {
	root, err := LoadBytes([]byte(`
locations: [NA]
peer_types:
  leaf:
    Peer:
      location: NA
      bandwidth_ul:
        Dist: {name: uniform, params: [10, 20]}
      bandwidth_dl: 7
topology:
  - id: 1
    type: leaf
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ul, err := root.PeerTypes["leaf"].Peer.BandwidthUL.ToDistribution()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ul.Low != 10 || ul.High != 20 {
		t.Errorf("expected uniform(10,20), got low=%v high=%v", ul.Low, ul.High)
	}
}

func TestDistSpecUnrecognizedNameIsConfigurationError(t *testing.T) {
	var d DistSpec
	if err := d.fromFields(yamlDistFields{Name: "bogus"}); err != nil {
		t.Fatalf("unexpected error building the spec: %v", err)
	}
	if _, err := d.ToDistribution(); err == nil {
		t.Fatal("expected an error for an unrecognized distribution name")
	}
}

func TestDistSpecMarshalRoundTrip(t *testing.T) {
	var d DistSpec
	if err := d.fromFields(yamlDistFields{Name: "normal", Params: []float64{1, 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields, ok := out.(yamlDistFields)
	if !ok {
		t.Fatalf("expected yamlDistFields, got %T", out)
	}
	if fields.Name != "normal" || len(fields.Params) != 2 {
		t.Errorf("expected round-tripped name/params, got %+v", fields)
	}
}
