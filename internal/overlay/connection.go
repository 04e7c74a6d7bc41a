package overlay

import "github.com/kharnos-labs/overlaysim/internal/engine"

// Connection is one peer's own view of a link to a neighbor: its
// bandwidth is derived from *this* peer's uplink and the neighbor's
// downlink, so "the connection with minimum bandwidth" (used by the
// connection manager's slowest-peer eviction) means "the neighbor I
// can push bytes to the slowest" — each endpoint of a link keeps its
// own Connection value for it, created together so the bidirectional
// invariant (A∈B.connections ⇔ B∈A.connections) never observes a
// half-built edge.
type Connection struct {
	Sender, Receiver PeerID
	StartTime        engine.SimTime
	Bandwidth        float64
	Latency          engine.SimTime
}
