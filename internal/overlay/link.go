package overlay

import "github.com/kharnos-labs/overlaysim/internal/engine"

// deliver schedules m's arrival at receiver's inbox, grounded on
// go-mcast's core.Transport.Broadcast/Unicast — but logical-only,
// since this simulator has no real wire transport to model (spec.md
// §1's Non-goals). The one-way delay is the sender's uplink transfer
// time plus half the latency between the two locations (the one-way
// share; the other half is not charged anywhere). The receiver's
// downlink transfer time is charged when the receiver's own receive
// loop draws the message off its inbox (internal/overlay/peer.go's
// receiveLoop) — not here — so a peer
// whose downlink later changes (e.g. under a slowdown disruption)
// pays the delay it actually has when the message is drawn, not the
// delay in effect when it was sent.
//
// At the scheduled fire time the receiver's connection to sender is
// re-checked: a disconnect that happens in flight silently drops the
// message, unless bootstrap bypasses connectivity entirely (used for
// the one-time introduction handshake before any connection exists).
func deliver(net Network, sender, receiver *Peer, m *Message, bootstrap bool) error {
	lat, err := net.Latency(sender.Location, receiver.Location)
	if err != nil {
		return err
	}
	delay := engine.Seconds(float64(m.Size())/sender.BandwidthUL) + lat/2
	sch := net.Scheduler()
	sch.Schedule(delay, func() {
		if bootstrap || receiver.IsConnectedTo(sender.ID) {
			receiver.inbox.Put(sch, m)
		}
	})
	return nil
}
