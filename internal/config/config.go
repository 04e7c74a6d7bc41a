// Package config loads the YAML description of a simulation — the
// locations list, the latency matrix, each peer type's field and
// service specs, and the initial topology — into typed records, per
// spec.md §6. It follows shurli's internal/config struct-tag
// conventions (yaml tags, doc comments noting optional fields) rather
// than the reflection-based config synthesis spec.md §9 explicitly
// asks to re-architect away from.
package config

import "github.com/kharnos-labs/overlaysim/internal/simerr"

// Root is the top-level YAML document: locations, the latency matrix
// between them, every peer type's generator, and the initial
// topology.
type Root struct {
	Locations  []string                 `yaml:"locations"`
	Latencies  map[string]map[string]DistSpec `yaml:"latencies"`
	PeerTypes  map[string]PeerTypeSpec  `yaml:"peer_types"`
	Topology   []NodeSpec               `yaml:"topology"`
	RandomSeed int64                    `yaml:"random_seed,omitempty"`
}

// PeerFieldsSpec is the required per-type Peer record: location and
// both bandwidths, each either a scalar or a distribution.
type PeerFieldsSpec struct {
	Location    LocationSpec `yaml:"location"`
	BandwidthUL DistSpec     `yaml:"bandwidth_ul"`
	BandwidthDL DistSpec     `yaml:"bandwidth_dl"`
}

// PeerTypeSpec is one named peer type: its config-generator (Peer)
// plus a map of service class name to that service's config fields,
// held as a raw YAML node until the caller (pkg/simulation's factory)
// knows which concrete service struct to decode it into.
type PeerTypeSpec struct {
	Peer     PeerFieldsSpec                    `yaml:"Peer"`
	Services map[string]map[string]interface{} `yaml:"services,omitempty"`
}

// NodeSpec is one topology entry: an id, its peer type, and the
// neighbor ids it should bootstrap-connect to at startup (empty means
// "connect to a bootstrap peer instead", per spec.md §4.8).
type NodeSpec struct {
	ID        uint64   `yaml:"id"`
	Type      string   `yaml:"type"`
	Neighbors []uint64 `yaml:"neighbors,omitempty"`
}

// Validate checks the structural requirements spec.md §7's
// ConfigurationError covers: every topology node names a declared
// peer type, and every peer type supplies all three required Peer
// fields.
func (r *Root) Validate() error {
	for name, pt := range r.PeerTypes {
		if pt.Peer.Location.isZero() {
			return &simerr.ConfigurationError{Reason: "peer type " + name + " is missing required field location"}
		}
		if pt.Peer.BandwidthUL.isZero() {
			return &simerr.ConfigurationError{Reason: "peer type " + name + " is missing required field bandwidth_ul"}
		}
		if pt.Peer.BandwidthDL.isZero() {
			return &simerr.ConfigurationError{Reason: "peer type " + name + " is missing required field bandwidth_dl"}
		}
	}
	for _, node := range r.Topology {
		if _, ok := r.PeerTypes[node.Type]; !ok {
			return &simerr.ConfigurationError{Reason: "topology node references undeclared peer type " + node.Type}
		}
	}
	return nil
}
