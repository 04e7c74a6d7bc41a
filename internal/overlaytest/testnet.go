// Package overlaytest provides a minimal overlay.Network
// implementation shared by internal/overlay's and
// internal/overlay/services' test files — the handful of scheduler,
// latency-oracle, and registry wiring every such test needs, without
// dragging in pkg/simulation (which would be an import cycle, since
// pkg/simulation itself depends on internal/overlay).
package overlaytest

import (
	"math/rand"
	"sort"

	"github.com/kharnos-labs/overlaysim/internal/distribution"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/simerr"
	"github.com/kharnos-labs/overlaysim/internal/telemetry"
)

// Net is a bare-bones overlay.Network: a real Scheduler and a real
// LatencyOracle, but a flat, directly-populated peer registry instead
// of a config-driven factory.
type Net struct {
	sched       *engine.Scheduler
	oracle      *engine.LatencyOracle
	rng         *rand.Rand
	log         telemetry.Logger
	metrics     *telemetry.Metrics
	peers       map[overlay.PeerID]*overlay.Peer
	peersByType map[string][]overlay.PeerID
}

// New builds a Net with the given location matrix (every pair gets a
// constant-latency distribution for determinism) and a fixed seed.
func New(seed int64, latencies map[engine.Location]map[engine.Location]float64) *Net {
	rng := rand.New(rand.NewSource(seed))
	matrix := make(map[engine.Location]map[engine.Location]distribution.Spec)
	for a, row := range latencies {
		inner := make(map[engine.Location]distribution.Spec)
		for b, ms := range row {
			inner[b] = distribution.Spec{Kind: distribution.Constant, Value: ms}
		}
		matrix[a] = inner
	}
	return &Net{
		sched:       engine.New(),
		oracle:      engine.NewLatencyOracle(matrix, rng),
		rng:         rng,
		log:         telemetry.NewStderrLogger("test"),
		metrics:     telemetry.NewMetrics(),
		peers:       make(map[overlay.PeerID]*overlay.Peer),
		peersByType: make(map[string][]overlay.PeerID),
	}
}

// AddPeer constructs a peer and registers it with the net in one step.
func (n *Net) AddPeer(id overlay.PeerID, peerType string, location engine.Location, ul, dl float64) *overlay.Peer {
	p := overlay.NewPeer(id, peerType, location, ul, dl, n)
	n.peers[id] = p
	n.peersByType[peerType] = append(n.peersByType[peerType], id)
	return p
}

func (n *Net) Scheduler() *engine.Scheduler { return n.sched }

func (n *Net) Latency(a, b engine.Location) (engine.SimTime, error) {
	lat, err := n.oracle.Get(a, b)
	if err != nil {
		if e, ok := err.(*engine.ErrLatencyUnknown); ok {
			return 0, &simerr.LatencyUnknownError{A: string(e.A), B: string(e.B)}
		}
		return 0, err
	}
	return lat, nil
}

func (n *Net) Peer(id overlay.PeerID) (*overlay.Peer, bool) {
	p, ok := n.peers[id]
	return p, ok
}

func (n *Net) PeersByType(peerType string) []overlay.PeerID {
	out := append([]overlay.PeerID{}, n.peersByType[peerType]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (n *Net) Rand() *rand.Rand             { return n.rng }
func (n *Net) Logger() telemetry.Logger     { return n.log }
func (n *Net) Metrics() *telemetry.Metrics  { return n.metrics }
