package services

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlay/storage"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

func withGossipStorage(p *overlay.Peer) {
	p.AddStorage(DefaultBucketMsgTime, storage.New[overlay.StoredMessage]())
	p.AddStorage(DefaultBucketMsgData, storage.New[overlay.StoredMessage]())
}

// TestGossipFloodsThreeHopLine verifies a push-gossip message injected
// at one end of a 4-node line reaches the far end, spending one TTL
// decrement per hop.
func TestGossipFloodsThreeHopLine(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	peers := make([]*overlay.Peer, 4)
	for i := range peers {
		peers[i] = net.AddPeer(overlay.PeerID(i+1), "leaf", "Z", 1e9, 1e9)
		withGossipStorage(peers[i])
		peers[i].AddService(NewGossipService(GossipConfig{Fanout: 4}))
		peers[i].Start()
	}
	for i := 0; i < len(peers)-1; i++ {
		overlay.Connect(net, peers[i], peers[i+1])
	}

	ctx := &overlay.Context{Peer: peers[0], Net: net}
	// Inject only touches the peer's storage buckets and Gossip, so a
	// freshly built service sharing the same (default) bucket names
	// works just as well as the one already attached via AddService.
	NewGossipService(GossipConfig{Fanout: 4}).Inject(ctx, "msg-1", []byte("hello"), 3)

	net.Scheduler().RunAll()

	bucket, err := peers[3].Storage(DefaultBucketMsgData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, ok := bucket.Get("msg-1")
	if !ok {
		t.Fatal("expected the far end of the line to have received the gossip message")
	}
	if string(stored.Data) != "hello" {
		t.Errorf("expected payload %q, got %q", "hello", stored.Data)
	}
}

// TestGossipReFloodsAlreadyStoredMessageButNotBackToSender checks that
// receiving a message a peer already has still triggers a re-gossip
// while its TTL remains positive (spec.md §4.6 step 2 re-gossips
// unconditionally on ttl>0, not only on first receipt), and that the
// GossipFilter excluding the sender keeps it from bouncing straight
// back to where it came from.
func TestGossipReFloodsAlreadyStoredMessageButNotBackToSender(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 1e9, 1e9)
	b := net.AddPeer(2, "leaf", "Z", 1e9, 1e9)
	c := net.AddPeer(3, "leaf", "Z", 1e9, 1e9)
	withGossipStorage(a)
	withGossipStorage(b)
	withGossipStorage(c)
	gossipA := NewGossipService(GossipConfig{Fanout: 4})
	gossipC := NewGossipService(GossipConfig{Fanout: 4})
	a.AddService(gossipA)
	b.AddService(NewGossipService(GossipConfig{Fanout: 4}))
	c.AddService(gossipC)
	a.Start()
	b.Start()
	c.Start()
	overlay.Connect(net, a, b)
	overlay.Connect(net, a, c)

	ctxA := &overlay.Context{Peer: a, Net: net}
	dataBucket, _ := a.Storage(DefaultBucketMsgData)
	dataBucket.Add("dup", overlay.StoredMessage{Data: []byte("x"), TTL: 3})
	timeBucket, _ := a.Storage(DefaultBucketMsgTime)
	timeBucket.Add("dup", overlay.StoredMessage{})

	if err := gossipA.HandleMessage(ctxA, &overlay.Message{Sender: b.ID, Kind: overlay.KindGossip, Payload: overlay.GossipPayload{ID: "dup", Data: []byte("x"), TTL: 3}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	net.Scheduler().RunAll()

	bBucket, _ := b.Storage(DefaultBucketMsgData)
	if _, ok := bBucket.Get("dup"); ok {
		t.Error("expected the already-known message to not be re-gossiped back to its sender")
	}
	cBucket, _ := c.Storage(DefaultBucketMsgData)
	if _, ok := cBucket.Get("dup"); !ok {
		t.Error("expected the already-known message to still be re-gossiped to a's other neighbor")
	}
}
