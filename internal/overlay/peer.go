package overlay

import (
	"strconv"
	"time"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/simerr"
	"github.com/kharnos-labs/overlaysim/internal/telemetry"
)

// Peer is a single overlay participant: its connection table, its
// message inbox, the services (handlers/runners) attached to it, and
// its named storage buckets. It is grounded on go-mcast's core.Peer —
// same shape (mutex-free here, since the scheduler is single-threaded
// by construction, see internal/engine), same receive-loop-plus-
// dispatch structure — generalized from go-mcast's fixed GMCast
// protocol to an arbitrary, pluggable set of services.
type Peer struct {
	ID           PeerID
	Type         string
	Location     engine.Location
	BandwidthUL  float64
	BandwidthDL  float64
	Online       bool

	connections map[PeerID]*Connection
	lastSeen    map[PeerID]engine.SimTime

	inbox *engine.Inbox[*Message]

	handlers map[string]Handler
	runners  map[string]Runner
	dispatch map[Kind][]string

	storage map[string]Bucket

	bytesLoad    map[int64]float64
	msgCountLoad map[int64]float64

	disconnectCallbacks []func(PeerID)

	net Network
	log telemetry.Logger
}

// NewPeer constructs a peer, registers it with net implicitly through
// the caller (the simulation is expected to add it to its own
// registry before Start is called on any service, since Send/Connect
// look peers up via net.Peer), and leaves it Online.
func NewPeer(id PeerID, peerType string, location engine.Location, bandwidthUL, bandwidthDL float64, net Network) *Peer {
	return &Peer{
		ID:           id,
		Type:         peerType,
		Location:     location,
		BandwidthUL:  bandwidthUL,
		BandwidthDL:  bandwidthDL,
		Online:       true,
		connections:  make(map[PeerID]*Connection),
		lastSeen:     make(map[PeerID]engine.SimTime),
		inbox:        engine.NewInbox[*Message](),
		handlers:     make(map[string]Handler),
		runners:      make(map[string]Runner),
		dispatch:     make(map[Kind][]string),
		storage:      make(map[string]Bucket),
		bytesLoad:    make(map[int64]float64),
		msgCountLoad: make(map[int64]float64),
		net:          net,
		log:          net.Logger(),
	}
}

// AddService attaches svc under name, registering it as a Handler
// and/or Runner according to which interfaces it implements. A
// service may be both (the connection manager handles Ping/Pong/Hello
// and also runs a periodic ping+monitor loop).
func (p *Peer) AddService(svc interface{}) {
	if h, ok := svc.(Handler); ok {
		p.handlers[h.Name()] = h
		for _, k := range h.Messages() {
			p.dispatch[k] = append(p.dispatch[k], h.Name())
		}
	}
	if r, ok := svc.(Runner); ok {
		p.runners[r.Name()] = r
	}
}

// Start launches the receive loop and every attached runner's
// self-scheduled ticking. Call once, after all services are attached
// and the peer is registered with its Network.
func (p *Peer) Start() {
	ctx := &Context{Peer: p, Net: p.net}
	for _, r := range p.runners {
		r.Start(ctx)
	}
	engine.Spawn(p.net.Scheduler(), p.receiveLoop)
}

// AddStorage registers a named bucket. Re-registering an existing name
// replaces it.
func (p *Peer) AddStorage(name string, bucket Bucket) {
	p.storage[name] = bucket
}

// Storage returns the named bucket, or UnknownStorageError if name was
// never registered via AddStorage.
func (p *Peer) Storage(name string) (Bucket, error) {
	b, ok := p.storage[name]
	if !ok {
		return nil, &simerr.UnknownStorageError{Peer: uint64(p.ID), Bucket: name}
	}
	return b, nil
}

// IsConnectedTo reports whether other is in this peer's connection
// table.
func (p *Peer) IsConnectedTo(other PeerID) bool {
	_, ok := p.connections[other]
	return ok
}

// Connections returns the peer ids this peer is currently connected
// to, in no particular order.
func (p *Peer) Connections() []PeerID {
	out := make([]PeerID, 0, len(p.connections))
	for id := range p.connections {
		out = append(out, id)
	}
	return out
}

// Degree is the number of active connections.
func (p *Peer) Degree() int { return len(p.connections) }

// LastSeen returns the simulated time this peer last received a
// message from other, and whether other has ever been seen at all.
func (p *Peer) LastSeen(other PeerID) (engine.SimTime, bool) {
	t, ok := p.lastSeen[other]
	return t, ok
}

// MarkSeen records other as seen at the given time without requiring
// an actual message delivery — the connection manager's "grace" step
// uses this to initialize a just-connected peer's last-seen entry.
func (p *Peer) MarkSeen(other PeerID, at engine.SimTime) {
	p.lastSeen[other] = at
}

// ConnectionTo returns this peer's own Connection record for other,
// if connected.
func (p *Peer) ConnectionTo(other PeerID) (*Connection, bool) {
	c, ok := p.connections[other]
	return c, ok
}

// SetOnline toggles the peer's online flag. While offline, receive is
// a no-op (see receive) but the inbox keeps filling.
func (p *Peer) SetOnline(online bool) { p.Online = online }

// SetBandwidth overwrites both bandwidth figures — used by the
// slowdown disruption to scale, and later restore, a peer's capacity.
func (p *Peer) SetBandwidth(ul, dl float64) {
	p.BandwidthUL = ul
	p.BandwidthDL = dl
}

// OnDisconnect registers a callback invoked (with the departing
// neighbor's id) whenever Disconnect removes an edge touching this
// peer — the hook the connection manager uses to track peers it has
// ever evicted or lost.
func (p *Peer) OnDisconnect(cb func(PeerID)) {
	p.disconnectCallbacks = append(p.disconnectCallbacks, cb)
}

// Send delivers m to receiver over the Link (internal/overlay/link.go)
// asynchronously. Unless bootstrap is set, the two peers must already
// be connected.
func (p *Peer) Send(receiver PeerID, m *Message, bootstrap bool) error {
	if !bootstrap && !p.IsConnectedTo(receiver) {
		return &simerr.NotConnectedError{Sender: uint64(p.ID), Receiver: uint64(receiver)}
	}
	rp, ok := p.net.Peer(receiver)
	if !ok {
		return &simerr.NotConnectedError{Sender: uint64(p.ID), Receiver: uint64(receiver)}
	}
	return deliver(p.net, p, rp, m, bootstrap)
}

// GossipFilter narrows the set of connected neighbors Gossip/Broadcast
// will consider.
type GossipFilter struct {
	ExcludePeers map[PeerID]struct{}
	ExcludeTypes map[string]struct{}
}

func (p *Peer) eligiblePeers(filter GossipFilter) []PeerID {
	out := make([]PeerID, 0, len(p.connections))
	for id := range p.connections {
		if _, excluded := filter.ExcludePeers[id]; excluded {
			continue
		}
		if len(filter.ExcludeTypes) > 0 {
			if neighbor, ok := p.net.Peer(id); ok {
				if _, excluded := filter.ExcludeTypes[neighbor.Type]; excluded {
					continue
				}
			}
		}
		out = append(out, id)
	}
	return out
}

// Gossip sends a copy of m (with Sender rewritten to this peer) to up
// to fanout peers drawn uniformly at random from the eligible,
// connected set. It returns the ids actually sent to.
func (p *Peer) Gossip(m *Message, fanout int, filter GossipFilter) []PeerID {
	eligible := p.eligiblePeers(filter)
	rng := p.net.Rand()
	rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	n := fanout
	if n > len(eligible) {
		n = len(eligible)
	}
	sent := make([]PeerID, 0, n)
	for _, id := range eligible[:n] {
		out := *m
		out.Sender = p.ID
		if err := p.Send(id, &out, false); err == nil {
			sent = append(sent, id)
		}
	}
	return sent
}

// Broadcast sends a copy of m to every eligible connected peer.
func (p *Peer) Broadcast(m *Message, filter GossipFilter) []PeerID {
	return p.Gossip(m, len(p.connections), filter)
}

func (p *Peer) receiveLoop(y *engine.Yielder) {
	for {
		m := p.inbox.Get(y)
		y.Timeout(engine.Seconds(float64(m.Size()) / p.BandwidthDL))
		if m.PreTask != nil && !m.PreTask(m, p) {
			continue
		}
		p.receive(m)
		if m.PostTask != nil {
			m.PostTask(m, p)
		}
	}
}

// receive runs after the downlink transfer delay has elapsed:
// records load/last-seen bookkeeping, then dispatches to every
// handler registered for m.Kind. An unhandled kind, or a handler
// returning an error, terminates the simulation (recovered at
// pkg/simulation.Simulation.Run) — matching spec.md §7's "fatal,
// surfaced to the scheduler step that produced it" semantics, which a
// scheduler built from plain func() callbacks can only express via
// panic/recover.
func (p *Peer) receive(m *Message) {
	if !p.Online {
		return
	}
	now := p.net.Scheduler().Now()
	p.lastSeen[m.Sender] = now
	bucket := int64(now / time.Second)
	p.bytesLoad[bucket] += float64(m.Size())
	p.msgCountLoad[bucket]++
	if metrics := p.net.Metrics(); metrics != nil {
		id := strconv.FormatUint(uint64(p.ID), 10)
		metrics.BytesLoad.WithLabelValues(id).Add(float64(m.Size()))
		metrics.MsgCountLoad.WithLabelValues(id).Inc()
	}

	names := p.dispatch[m.Kind]
	if len(names) == 0 {
		panic(&simerr.UnhandledMessageError{Peer: uint64(p.ID), Kind: m.Kind.String()})
	}
	ctx := &Context{Peer: p, Net: p.net}
	for _, name := range names {
		if err := p.handlers[name].HandleMessage(ctx, m); err != nil {
			panic(err)
		}
	}
}

// Connect establishes a bidirectional edge between a and b: each side
// gets its own Connection, derived from its own uplink and the other
// side's downlink, and both are installed before this call returns —
// so no observer ever sees a one-sided connection. A self-connect or
// an already-connected pair is a no-op.
func Connect(net Network, a, b *Peer) error {
	if a.ID == b.ID {
		return nil
	}
	if a.IsConnectedTo(b.ID) {
		return nil
	}
	lat, err := net.Latency(a.Location, b.Location)
	if err != nil {
		return err
	}
	now := net.Scheduler().Now()
	a.connections[b.ID] = &Connection{Sender: a.ID, Receiver: b.ID, StartTime: now, Bandwidth: minF(a.BandwidthUL, b.BandwidthDL), Latency: lat}
	b.connections[a.ID] = &Connection{Sender: b.ID, Receiver: a.ID, StartTime: now, Bandwidth: minF(b.BandwidthUL, a.BandwidthDL), Latency: lat}
	return nil
}

// Disconnect removes the edge between a and b (if any) from both
// sides together, then runs each side's disconnect callbacks with the
// other's id.
func Disconnect(a, b *Peer) {
	if !a.IsConnectedTo(b.ID) {
		return
	}
	delete(a.connections, b.ID)
	delete(b.connections, a.ID)
	for _, cb := range a.disconnectCallbacks {
		cb(b.ID)
	}
	for _, cb := range b.disconnectCallbacks {
		cb(a.ID)
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
