package overlay_test

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

func sameLoc(latMS float64) map[engine.Location]map[engine.Location]float64 {
	return map[engine.Location]map[engine.Location]float64{"Z": {"Z": latMS}}
}

func TestConnectIsBidirectionalAndBandwidthIsPerDirection(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 50)
	b := net.AddPeer(2, "leaf", "Z", 10, 200)

	if err := overlay.Connect(net, a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.IsConnectedTo(b.ID) || !b.IsConnectedTo(a.ID) {
		t.Fatal("expected both sides connected")
	}
	ca, _ := a.ConnectionTo(b.ID)
	cb, _ := b.ConnectionTo(a.ID)
	if ca.Bandwidth != 100 { // min(a.ul=100, b.dl=200)
		t.Errorf("expected a->b bandwidth 100, got %v", ca.Bandwidth)
	}
	if cb.Bandwidth != 10 { // min(b.ul=10, a.dl=50)
		t.Errorf("expected b->a bandwidth 10, got %v", cb.Bandwidth)
	}
}

func TestDisconnectRemovesBothSidesAndFiresCallbacks(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)
	b := net.AddPeer(2, "leaf", "Z", 100, 100)
	overlay.Connect(net, a, b)

	var aNotified, bNotified overlay.PeerID
	a.OnDisconnect(func(id overlay.PeerID) { aNotified = id })
	b.OnDisconnect(func(id overlay.PeerID) { bNotified = id })

	overlay.Disconnect(a, b)

	if a.IsConnectedTo(b.ID) || b.IsConnectedTo(a.ID) {
		t.Fatal("expected both sides disconnected")
	}
	if aNotified != b.ID || bNotified != a.ID {
		t.Errorf("expected disconnect callbacks to fire with the peer ids, got a=%v b=%v", aNotified, bNotified)
	}
}

func TestSendWithoutConnectionIsRejectedUnlessBootstrap(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)
	b := net.AddPeer(2, "leaf", "Z", 100, 100)
	b.Start()

	m := &overlay.Message{Sender: a.ID, Kind: overlay.KindPing, Payload: overlay.PingPayload{}}
	if err := a.Send(b.ID, m, false); err == nil {
		t.Fatal("expected an error sending to an unconnected peer")
	}
	if err := a.Send(b.ID, m, true); err != nil {
		t.Fatalf("expected a bootstrap send to succeed, got %v", err)
	}
}

func TestUnhandledMessageKindPanics(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)
	b := net.AddPeer(2, "leaf", "Z", 100, 100)
	overlay.Connect(net, a, b)
	b.Start()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected receiving an unhandled kind to panic")
		}
		if _, ok := r.(error); !ok {
			t.Fatalf("expected the panic value to be an error, got %T", r)
		}
	}()

	m := &overlay.Message{Sender: a.ID, Kind: overlay.KindPing, Payload: overlay.PingPayload{}}
	a.Send(b.ID, m, false)
	net.Scheduler().RunAll()
}

func TestGossipExcludesFilteredPeersAndTypes(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)
	b := net.AddPeer(2, "leaf", "Z", 100, 100)
	c := net.AddPeer(3, "bootstrap", "Z", 100, 100)
	overlay.Connect(net, a, b)
	overlay.Connect(net, a, c)

	sent := a.Gossip(&overlay.Message{Kind: overlay.KindGossip, Payload: overlay.GossipPayload{ID: "x"}}, 5,
		overlay.GossipFilter{ExcludeTypes: map[string]struct{}{"bootstrap": {}}})

	if len(sent) != 1 || sent[0] != b.ID {
		t.Errorf("expected gossip to reach only the non-bootstrap neighbor, got %v", sent)
	}
}
