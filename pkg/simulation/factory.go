package simulation

import (
	"fmt"

	"github.com/kharnos-labs/overlaysim/internal/config"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlay/storage"
	"github.com/kharnos-labs/overlaysim/internal/simerr"
)

// PeerFactory instantiates peers from their declared type's generator
// and service map, grounded on spec.md §4.8's PeerFactory.create_peer.
type PeerFactory struct {
	sim *Simulation
}

// CreatePeer allocates peer_id (from node.ID, or the next
// monotonically-increasing one if node.ID is zero or already taken),
// samples its per-instance field values, constructs it, attaches every
// declared service, and registers it with the simulation. Runners are
// not started here — New starts every peer's runners together, after
// the whole population exists, so a service's Start can already look
// up any other peer by id.
func (f *PeerFactory) CreatePeer(node config.NodeSpec) (*overlay.Peer, error) {
	typeSpec, ok := f.sim.cfg.PeerTypes[node.Type]
	if !ok {
		return nil, &simerr.ConfigurationError{Reason: "undeclared peer type " + node.Type}
	}

	id := overlay.PeerID(node.ID)
	if _, taken := f.sim.peers[id]; id == 0 || taken {
		f.sim.nextID++
		id = overlay.PeerID(f.sim.nextID)
	} else if uint64(id) > f.sim.nextID {
		f.sim.nextID = uint64(id)
	}

	loc, err := typeSpec.Peer.Location.Sample(f.sim.rng)
	if err != nil {
		return nil, err
	}
	ulDist, err := typeSpec.Peer.BandwidthUL.ToDistribution()
	if err != nil {
		return nil, err
	}
	dlDist, err := typeSpec.Peer.BandwidthDL.ToDistribution()
	if err != nil {
		return nil, err
	}
	ul := ulDist.Sample(f.sim.rng)
	dl := dlDist.Sample(f.sim.rng)
	if ul <= 0 || dl <= 0 {
		return nil, &simerr.ConfigurationError{Reason: fmt.Sprintf("peer type %s sampled a non-positive bandwidth", node.Type)}
	}

	p := overlay.NewPeer(id, node.Type, engine.Location(loc), ul, dl, f.sim)

	// Every message-kind service needs somewhere to keep what it's
	// seen; register the two conventional buckets unconditionally so a
	// type's gossip service config doesn't also have to declare them.
	p.AddStorage("msg_time", storage.New[overlay.StoredMessage]())
	p.AddStorage("msg_data", storage.New[overlay.StoredMessage]())

	if err := wireServices(p, typeSpec.Services); err != nil {
		return nil, err
	}

	f.sim.peers[id] = p
	f.sim.peersByType[node.Type] = append(f.sim.peersByType[node.Type], id)
	return p, nil
}
