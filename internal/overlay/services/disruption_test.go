package services

import (
	"testing"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlaytest"
)

func TestScheduledDowntimeTakesPeerOfflineForExactWindow(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 100)

	svc := NewScheduledDowntimeService([]Episode{{At: engine.Seconds(10), Duration: engine.Seconds(5)}})
	a.AddService(svc)
	a.Start()

	net.Scheduler().Schedule(engine.Seconds(9), func() {
		if !a.Online {
			t.Error("expected the peer online before the episode starts")
		}
	})
	net.Scheduler().Schedule(engine.Seconds(11), func() {
		if a.Online {
			t.Error("expected the peer offline during the episode")
		}
	})
	net.Scheduler().Schedule(engine.Seconds(16), func() {
		if !a.Online {
			t.Error("expected the peer back online after the episode ends")
		}
	})
	net.Scheduler().RunAll()
}

func TestScheduledSlowdownScalesAndRestoresBandwidth(t *testing.T) {
	net := overlaytest.New(1, sameLoc(0))
	a := net.AddPeer(1, "leaf", "Z", 100, 200)

	svc := NewScheduledSlowdownService([]ScheduledSlowdownEpisode{{At: engine.Seconds(5), Duration: engine.Seconds(5), Factor: 0.1}})
	svc.Start(&overlay.Context{Peer: a, Net: net})

	net.Scheduler().Schedule(engine.Seconds(6), func() {
		if a.BandwidthUL != 10 || a.BandwidthDL != 20 {
			t.Errorf("expected scaled bandwidth (10, 20), got (%v, %v)", a.BandwidthUL, a.BandwidthDL)
		}
	})
	net.Scheduler().Schedule(engine.Seconds(11), func() {
		if a.BandwidthUL != 100 || a.BandwidthDL != 200 {
			t.Errorf("expected restored bandwidth (100, 200), got (%v, %v)", a.BandwidthUL, a.BandwidthDL)
		}
	})
	net.Scheduler().RunAll()
}
