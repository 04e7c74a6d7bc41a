package services

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/distribution"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlay/storage"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

func withRangedStorage(p *overlay.Peer) {
	p.AddStorage(DefaultBucketMsgTime, storage.New[overlay.StoredMessage]())
	p.AddStorage(DefaultBucketMsgData, storage.NewRanged[overlay.StoredMessage]())
}

// TestRangedPullGossipFillsHoleAcrossRound mirrors the plain pull-gossip
// round test but for per-origin "origin_seq" identifiers: a sends seq 1
// and 3 for its own origin (leaving seq 2 a hole it never had), and b
// should come away with exactly the two seqs a actually has. As in the
// pull-gossip test, RoundTime is pinned far beyond the bounded Run
// horizon so the service's self-rescheduling tick fires exactly once.
func TestRangedPullGossipFillsHoleAcrossRound(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 1e9, 1e9)
	b := net.AddPeer(2, "leaf", "Z", 1e9, 1e9)
	withRangedStorage(a)
	withRangedStorage(b)
	overlay.Connect(net, a, b)

	cfg := RangedPullGossipConfig{
		Fanout:      4,
		RoundTime:   engine.Seconds(1000),
		InitTimeout: distribution.Spec{Kind: distribution.Constant, Value: 0},
	}
	svcA := NewRangedPullGossipService(cfg)
	svcB := NewRangedPullGossipService(cfg)
	a.AddService(svcA)
	b.AddService(svcB)

	origin := "1"
	ctxA := &overlay.Context{Peer: a, Net: net}
	svcA.Inject(ctxA, origin, 1, []byte("one"))
	svcA.Inject(ctxA, origin, 3, []byte("three"))

	a.Start()
	b.Start()

	until := engine.Seconds(1)
	net.Scheduler().Run(&until)

	bBucket, _ := b.Storage(DefaultBucketMsgData)
	if _, ok := bBucket.Get(storage.RangedKey(origin, 1)); !ok {
		t.Error("expected b to have pulled seq 1")
	}
	if _, ok := bBucket.Get(storage.RangedKey(origin, 3)); !ok {
		t.Error("expected b to have pulled seq 3")
	}
	if _, ok := bBucket.Get(storage.RangedKey(origin, 2)); ok {
		t.Error("expected seq 2 to remain an unfilled hole, since a never had it")
	}
}
