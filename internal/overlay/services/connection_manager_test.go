package services

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

func sameLoc(latMS float64) map[engine.Location]map[engine.Location]float64 {
	return map[engine.Location]map[engine.Location]float64{"Z": {"Z": latMS}}
}

func TestBaseConnectionManagerAnswersHelloWithConnect(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)
	b := net.AddPeer(2, "leaf", "Z", 100, 100)

	cm := NewBaseConnectionManager(ConnectionManagerConfig{PingInterval: engine.Seconds(30), MaxSilence: engine.Seconds(90)})
	a.AddService(cm)
	a.Start()

	ctx := &overlay.Context{Peer: b, Net: net}
	if err := cm.HandleMessage(&overlay.Context{Peer: a, Net: net}, &overlay.Message{Sender: b.ID, Kind: overlay.KindHello, Payload: overlay.HelloPayload{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = ctx
	if !a.IsConnectedTo(b.ID) {
		t.Error("expected a to connect to b after receiving Hello")
	}
}

func TestP2PConnectionManagerCandidateSetExcludesConnectedAndEverDisconnected(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)
	b := net.AddPeer(2, "leaf", "Z", 100, 100)
	c := net.AddPeer(3, "leaf", "Z", 100, 100)
	d := net.AddPeer(4, "leaf", "Z", 100, 100)

	cfg := P2PConfig{ConnectionManagerConfig: ConnectionManagerConfig{PingInterval: engine.Seconds(30), MaxSilence: engine.Seconds(90)}, MinPeers: 2, MaxPeers: 4}
	mgr := NewP2PConnectionManager(cfg)
	ctx := &overlay.Context{Peer: a, Net: net}
	mgr.Start(ctx)

	overlay.Connect(net, a, b)
	mgr.known[b.ID] = candidateConnected
	mgr.known[c.ID] = candidateKnown
	mgr.known[d.ID] = candidateKnown
	mgr.everDisconnected[d.ID] = struct{}{}

	candidates := mgr.candidateSet(ctx)
	if len(candidates) != 1 || candidates[0] != c.ID {
		t.Errorf("expected only c as a live candidate, got %v", candidates)
	}
}

func TestDisconnectSlowestSkipsWithinMinKeepTimeAndPicksMinBandwidth(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 1000, 1000)
	b := net.AddPeer(2, "leaf", "Z", 10, 1000) // fast downlink, connects late
	c := net.AddPeer(3, "leaf", "Z", 50, 40)   // slow downlink, connects early

	cfg := P2PConfig{ConnectionManagerConfig: ConnectionManagerConfig{}, MinKeepTime: engine.Seconds(60)}
	mgr := NewP2PConnectionManager(cfg)
	ctx := &overlay.Context{Peer: a, Net: net}

	overlay.Connect(net, a, c) // connects at t=0
	net.Scheduler().Schedule(engine.Seconds(120), func() {
		overlay.Connect(net, a, b) // connects at t=120, too young to evict
		if evicted := mgr.disconnectSlowest(ctx); !evicted {
			t.Error("expected an eviction since c is old enough and slower than a's own uplink")
		}
		if a.IsConnectedTo(c.ID) {
			t.Error("expected c to be evicted as the slowest eligible connection")
		}
		if !a.IsConnectedTo(b.ID) {
			t.Error("expected b (too young to evict) to remain connected")
		}
	})
	net.Scheduler().RunAll()
}
