package simulation

import (
	"io"
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/config"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/telemetry"
)

const lineTopologyYAML = `
locations: [Z]
latencies:
  Z: {Z: 0}
peer_types:
  leaf:
    Peer:
      location: Z
      bandwidth_ul: 1000000
      bandwidth_dl: 1000000
    services:
      gossip:
        fanout: 4
        ttl: 5
      message_producer:
        interval: 1
        message_size: 50
topology:
  - {id: 1, type: leaf, neighbors: [2]}
  - {id: 2, type: leaf, neighbors: [3]}
  - {id: 3, type: leaf, neighbors: []}
random_seed: 1
`

// TestEndToEndGossipFloodsLineAndSeedsDefaultBootstrap exercises the
// full loader -> factory -> service-wiring -> scheduler path: a 3-node
// line whose last node declares no neighbors (so New must synthesize a
// default bootstrap peer per spec.md §4.8), each node's message_producer
// periodically originating gossip traffic that should flood to every
// other leaf.
func TestEndToEndGossipFloodsLineAndSeedsDefaultBootstrap(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(lineTopologyYAML))
	if err != nil {
		t.Fatalf("unexpected config load error: %v", err)
	}
	sim, err := New(cfg, telemetry.NewLogger("test", io.Discard), 1)
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}

	until := engine.Seconds(5)
	if err := sim.Run(&until); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	graph := sim.GetGraph(true)
	sawBootstrapEdge := false
	for _, e := range graph {
		if p, ok := sim.Peer(e.To); ok && p.Type == "bootstrap" {
			sawBootstrapEdge = true
		}
	}
	if !sawBootstrapEdge {
		t.Error("expected node 3 (no declared neighbors) to have connected to a synthesized default bootstrap peer")
	}

	union := map[string]struct{}{}
	known := map[overlay.PeerID]int{}
	for _, id := range []overlay.PeerID{1, 2, 3} {
		p, ok := sim.Peer(id)
		if !ok {
			t.Fatalf("expected peer %d to exist", id)
		}
		bucket, err := p.Storage("msg_data")
		if err != nil {
			t.Fatalf("unexpected storage error for peer %d: %v", id, err)
		}
		if len(bucket.KnownIDs()) == 0 {
			t.Errorf("expected peer %d to have stored at least its own produced message", id)
		}
		known[id] = len(bucket.KnownIDs())
		for _, mid := range bucket.KnownIDs() {
			union[mid] = struct{}{}
		}
	}
	for id, n := range known {
		if n != len(union) {
			t.Errorf("expected peer %d to hold all %d produced messages, got %d", id, len(union), n)
		}
	}
}
