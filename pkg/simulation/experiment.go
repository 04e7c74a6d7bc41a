package simulation

import (
	"os"
	"path/filepath"

	"github.com/kharnos-labs/overlaysim/internal/config"
	"gopkg.in/yaml.v3"
)

// locationsDoc and topologyDoc mirror the slices of config.Root that
// belong in locations.yaml and topology.yaml respectively; servicesDoc
// mirrors the peer type map that goes in services.yaml. Splitting the
// single Root this way (rather than writing one combined file) matches
// p2psimpy's load_config_from_yaml layout of separate
// locations/topology/services documents under an experiment directory.
type locationsDoc struct {
	Locations []string                       `yaml:"locations"`
	Latencies map[string]map[string]config.DistSpec `yaml:"latencies"`
}

type topologyDoc struct {
	Topology   []config.NodeSpec `yaml:"topology"`
	RandomSeed int64             `yaml:"random_seed,omitempty"`
}

type servicesDoc struct {
	PeerTypes map[string]config.PeerTypeSpec `yaml:"peer_types"`
}

// SaveExperiment writes the simulation's loaded configuration as
// locations.yaml, topology.yaml, and services.yaml under dir (created
// if missing). It persists the config as loaded, not the sampled
// per-peer values — LoadExperiment followed by New re-samples each
// peer's location and bandwidth independently.
func (s *Simulation) SaveExperiment(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	docs := map[string]interface{}{
		"locations.yaml": locationsDoc{Locations: s.cfg.Locations, Latencies: s.cfg.Latencies},
		"topology.yaml":  topologyDoc{Topology: s.cfg.Topology, RandomSeed: s.cfg.RandomSeed},
		"services.yaml":  servicesDoc{PeerTypes: s.cfg.PeerTypes},
	}
	for name, doc := range docs {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// LoadExperiment reads locations.yaml, topology.yaml, and
// services.yaml from dir and reassembles a config.Root equivalent (up
// to distribution re-sampling) to the one SaveExperiment was given.
func LoadExperiment(dir string) (*config.Root, error) {
	var locs locationsDoc
	if err := readYAML(filepath.Join(dir, "locations.yaml"), &locs); err != nil {
		return nil, err
	}
	var topo topologyDoc
	if err := readYAML(filepath.Join(dir, "topology.yaml"), &topo); err != nil {
		return nil, err
	}
	var svcs servicesDoc
	if err := readYAML(filepath.Join(dir, "services.yaml"), &svcs); err != nil {
		return nil, err
	}

	root := &config.Root{
		Locations:  locs.Locations,
		Latencies:  locs.Latencies,
		PeerTypes:  svcs.PeerTypes,
		Topology:   topo.Topology,
		RandomSeed: topo.RandomSeed,
	}
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return root, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
