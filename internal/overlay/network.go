package overlay

import (
	"math/rand"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/telemetry"
)

// Network is the slice of the simulation harness a peer and its
// services need: the clock, the latency oracle, the peer registry, and
// the shared RNG. pkg/simulation.Simulation implements this; keeping
// the dependency as an interface defined here (rather than overlay
// importing pkg/simulation) avoids an import cycle between the
// harness and the peers it drives.
type Network interface {
	Scheduler() *engine.Scheduler
	Latency(a, b engine.Location) (engine.SimTime, error)
	Peer(id PeerID) (*Peer, bool)
	PeersByType(peerType string) []PeerID
	Rand() *rand.Rand
	Logger() telemetry.Logger
	Metrics() *telemetry.Metrics
}

// Bucket is the storage contract a peer's named buckets expose to
// services; both *storage.Store[StoredMessage] and
// *storage.RangedStore[StoredMessage] satisfy it structurally.
type Bucket interface {
	Add(id string, v StoredMessage) bool
	Get(id string) (StoredMessage, bool)
	Remove(id string)
	ClearAll()
	KnownIDs() []string
	GetByPrefix(prefix string) map[string]StoredMessage
	Len() int
}
