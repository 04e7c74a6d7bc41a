package services

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

// TestMessageProducerEmitsAtEachIntervalWithIncreasingSeq checks that
// the producer calls emit once per Interval tick, passing a strictly
// increasing seq and MessageSize bytes of data each time, and stops
// producing once the bounded Run horizon passes.
func TestMessageProducerEmitsAtEachIntervalWithIncreasingSeq(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	p := net.AddPeer(1, "leaf", "Z", 100, 100)
	ctx := &overlay.Context{Peer: p, Net: net}

	var seqs []int64
	var sizes []int
	producer := NewMessageProducer(MessageProducerConfig{Interval: engine.Seconds(1), MessageSize: 16},
		func(ctx *overlay.Context, seq int64, data []byte) {
			seqs = append(seqs, seq)
			sizes = append(sizes, len(data))
		})
	producer.Start(ctx)

	until := engine.Seconds(3.5)
	net.Scheduler().Run(&until)

	if len(seqs) != 3 {
		t.Fatalf("expected 3 emissions in a 3s window at a 1s interval, got %d", len(seqs))
	}
	for i, seq := range seqs {
		if seq != int64(i+1) {
			t.Errorf("expected seq %d at emission %d, got %d", i+1, i, seq)
		}
	}
	for _, n := range sizes {
		if n != 16 {
			t.Errorf("expected 16 bytes of payload, got %d", n)
		}
	}
}
