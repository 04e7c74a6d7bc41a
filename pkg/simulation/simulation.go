// Package simulation is the harness spec.md §4.8 describes: it builds
// the Latency Oracle and peer registry from a loaded config.Root, lets
// the factory instantiate and wire the initial topology, and exposes
// run/stop/metrics/graph-snapshot operations. It implements
// overlay.Network so peers and services reach the scheduler, the
// latency oracle, and the peer registry only through that interface.
package simulation

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/kharnos-labs/overlaysim/internal/config"
	"github.com/kharnos-labs/overlaysim/internal/distribution"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlay/storage"
	"github.com/kharnos-labs/overlaysim/internal/simerr"
	"github.com/kharnos-labs/overlaysim/internal/telemetry"
)

// Simulation owns the scheduler, the latency oracle, every peer
// (indexed by id and grouped by type), the loaded topology, and the
// run's single seeded RNG — grounded on go-mcast's Unity as the
// top-level object a caller constructs and drives, generalized from a
// fixed-membership cluster to a config-driven peer population.
type Simulation struct {
	sched   *engine.Scheduler
	oracle  *engine.LatencyOracle
	rng     *rand.Rand
	log     telemetry.Logger
	metrics *telemetry.Metrics

	cfg *config.Root

	peers       map[overlay.PeerID]*overlay.Peer
	peersByType map[string][]overlay.PeerID
	nextID      uint64
}

// New builds a Simulation from a loaded config: the latency oracle,
// every declared peer type's generator, and the initial topology
// (connecting each node to its declared neighbors, or to a peer of type
// "bootstrap" if it has none). Those initial edges are installed
// directly with overlay.Connect at construction time; no Hello
// handshake is sent for them.
func New(cfg *config.Root, logger telemetry.Logger, seed int64) (*Simulation, error) {
	matrix := make(map[engine.Location]map[engine.Location]distribution.Spec)
	for a, row := range cfg.Latencies {
		inner := make(map[engine.Location]distribution.Spec)
		for b, spec := range row {
			dist, err := spec.ToDistribution()
			if err != nil {
				return nil, err
			}
			inner[engine.Location(b)] = dist
		}
		matrix[engine.Location(a)] = inner
	}

	sim := &Simulation{
		sched:       engine.New(),
		rng:         rand.New(rand.NewSource(seed)),
		log:         logger,
		metrics:     telemetry.NewMetrics(),
		cfg:         cfg,
		peers:       make(map[overlay.PeerID]*overlay.Peer),
		peersByType: make(map[string][]overlay.PeerID),
	}
	sim.oracle = engine.NewLatencyOracle(matrix, sim.rng)

	factory := &PeerFactory{sim: sim}
	for _, node := range cfg.Topology {
		if _, err := factory.CreatePeer(node); err != nil {
			return nil, err
		}
	}
	for _, p := range sim.peers {
		p.Start()
	}
	if err := sim.wireTopology(); err != nil {
		return nil, err
	}
	return sim, nil
}

func (s *Simulation) wireTopology() error {
	for _, node := range s.cfg.Topology {
		p, ok := s.peers[overlay.PeerID(node.ID)]
		if !ok {
			continue
		}
		if len(node.Neighbors) == 0 {
			boot := s.peersByType["bootstrap"]
			if len(boot) == 0 {
				def, err := s.ensureDefaultBootstrap()
				if err != nil {
					return err
				}
				boot = []overlay.PeerID{def.ID}
			}
			target := s.peers[boot[s.rng.Intn(len(boot))]]
			if target.ID == p.ID {
				continue
			}
			if err := overlay.Connect(s, p, target); err != nil {
				return err
			}
			continue
		}
		for _, nid := range node.Neighbors {
			neighbor, ok := s.peers[overlay.PeerID(nid)]
			if !ok {
				return &simerr.ConfigurationError{Reason: fmt.Sprintf("node %d names undeclared neighbor %d", node.ID, nid)}
			}
			if err := overlay.Connect(s, p, neighbor); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureDefaultBootstrap returns the simulation's bootstrap peer,
// creating one the first time it's needed: spec.md §4.8 has nodes with
// no declared neighbors connect to a random peer of type "bootstrap",
// "creating default bootstrap servers if none are declared" — a
// generous constant-bandwidth peer at the first declared location (or
// "default" if the config names none) fills that role since nothing
// about its type was ever specified.
func (s *Simulation) ensureDefaultBootstrap() (*overlay.Peer, error) {
	if boot := s.peersByType["bootstrap"]; len(boot) > 0 {
		return s.peers[boot[0]], nil
	}
	loc := engine.Location("default")
	if len(s.cfg.Locations) > 0 {
		loc = engine.Location(s.cfg.Locations[0])
	}
	s.nextID++
	id := overlay.PeerID(s.nextID)
	p := overlay.NewPeer(id, "bootstrap", loc, 1e9, 1e9, s)
	p.AddStorage("msg_time", storage.New[overlay.StoredMessage]())
	p.AddStorage("msg_data", storage.New[overlay.StoredMessage]())
	s.peers[id] = p
	s.peersByType["bootstrap"] = append(s.peersByType["bootstrap"], id)
	p.Start()
	return p, nil
}

// Scheduler implements overlay.Network.
func (s *Simulation) Scheduler() *engine.Scheduler { return s.sched }

// Latency implements overlay.Network.
func (s *Simulation) Latency(a, b engine.Location) (engine.SimTime, error) {
	lat, err := s.oracle.Get(a, b)
	if err != nil {
		if e, ok := err.(*engine.ErrLatencyUnknown); ok {
			return 0, &simerr.LatencyUnknownError{A: string(e.A), B: string(e.B)}
		}
		return 0, err
	}
	return lat, nil
}

// Peer implements overlay.Network.
func (s *Simulation) Peer(id overlay.PeerID) (*overlay.Peer, bool) {
	p, ok := s.peers[id]
	return p, ok
}

// PeersByType implements overlay.Network.
func (s *Simulation) PeersByType(peerType string) []overlay.PeerID {
	out := append([]overlay.PeerID{}, s.peersByType[peerType]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rand implements overlay.Network.
func (s *Simulation) Rand() *rand.Rand { return s.rng }

// Logger implements overlay.Network.
func (s *Simulation) Logger() telemetry.Logger { return s.log }

// Metrics implements overlay.Network.
func (s *Simulation) Metrics() *telemetry.Metrics { return s.metrics }

// Run advances the scheduler until quiescent or until the given
// simulated time (nil runs to quiescence). A fatal condition
// (simerr.*) raised from inside a peer's dispatch surfaces here as a
// returned error, recovered from the panic that carried it across the
// scheduler's plain func() callbacks (see overlay.Peer.receive).
func (s *Simulation) Run(until *engine.SimTime) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("simulation panic: %v", r)
			}
		}
	}()
	s.sched.Run(until)
	return nil
}

// Stop requests the current or next Run call return before the next
// event fires.
func (s *Simulation) Stop() { s.sched.Stop() }

// GetLatencyDelay samples one delivery latency between two locations,
// for external inspection (e.g. tests, reporting tools).
func (s *Simulation) GetLatencyDelay(origin, dest string) (engine.SimTime, error) {
	return s.Latency(engine.Location(origin), engine.Location(dest))
}

// AvgBandwidth returns the mean of every peer's (ul+dl)/2 bandwidth.
func (s *Simulation) AvgBandwidth() float64 {
	if len(s.peers) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range s.peers {
		total += (p.BandwidthUL + p.BandwidthDL) / 2
	}
	return total / float64(len(s.peers))
}

// MedianBandwidth returns the median of every peer's (ul+dl)/2
// bandwidth.
func (s *Simulation) MedianBandwidth() float64 {
	if len(s.peers) == 0 {
		return 0
	}
	values := make([]float64, 0, len(s.peers))
	for _, p := range s.peers {
		values = append(values, (p.BandwidthUL+p.BandwidthDL)/2)
	}
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
