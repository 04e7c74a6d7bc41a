package overlay_test

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

// TestTrivialLinkDelay reproduces spec.md's trivial-link scenario: a
// 1000-byte message over a 1000 B/s uplink (1s) plus half of a 10s
// latency (5s, the one-way share charged at send) plus a 1000 B/s
// downlink (1s) delivers at simulated time 7s.
func TestTrivialLinkDelay(t *testing.T) {
	net := overlaytest.New(1, map[engine.Location]map[engine.Location]float64{
		"A": {"B": 10000}, // 10s latency in milliseconds
	})
	a := net.AddPeer(1, "leaf", "A", 1000, 1000)
	b := net.AddPeer(2, "leaf", "B", 1000, 1000)
	if err := overlay.Connect(net, a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Start()

	received := false
	var receivedAt engine.SimTime
	b.AddService(&recordingHandler{kind: overlay.KindPing, onReceive: func(m *overlay.Message) {
		received = true
		receivedAt = net.Scheduler().Now()
	}})

	msg := &overlay.Message{Sender: a.ID, Kind: overlay.KindPing, Payload: overlay.GossipPayload{Data: make([]byte, 972)}}
	if msg.Size() != 1000 {
		t.Fatalf("test setup error: expected a 1000-byte message, got %d", msg.Size())
	}
	if err := a.Send(b.ID, msg, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	net.Scheduler().RunAll()

	if !received {
		t.Fatal("expected the message to be received")
	}
	want := engine.Seconds(7)
	if receivedAt != want {
		t.Errorf("expected delivery at %v, got %v", want, receivedAt)
	}
}

type recordingHandler struct {
	kind      overlay.Kind
	onReceive func(m *overlay.Message)
}

func (h *recordingHandler) Name() string          { return "recording" }
func (h *recordingHandler) Messages() []overlay.Kind { return []overlay.Kind{h.kind} }
func (h *recordingHandler) HandleMessage(ctx *overlay.Context, m *overlay.Message) error {
	h.onReceive(m)
	return nil
}
