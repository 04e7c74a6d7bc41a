// Package services implements the pluggable Handler/Runner services
// peer types attach via config.PeerTypeSpec.Services: the connection
// manager (leaf and full P2P flavors), the three gossip variants, the
// disruption services, and two features supplemented from
// p2psimpy (message production and neighbor selection) that spec.md's
// distillation dropped but original_source/ still does.
package services

import (
	"math"
	"sort"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
)

// ConnectionManagerConfig parameterizes both connection-manager
// flavors' ping/silence bookkeeping.
type ConnectionManagerConfig struct {
	PingInterval engine.SimTime
	MaxSilence   engine.SimTime
}

// BaseConnectionManager is the leaf-peer-style manager: it answers
// Hello/Ping/Pong and evicts peers that go silent, but never solicits
// new peers on its own — grounded on go-mcast's core.Peer dispatch
// loop, generalized from a fixed GMCast protocol to Hello/Ping/Pong.
type BaseConnectionManager struct {
	cfg ConnectionManagerConfig
}

func NewBaseConnectionManager(cfg ConnectionManagerConfig) *BaseConnectionManager {
	return &BaseConnectionManager{cfg: cfg}
}

func (c *BaseConnectionManager) Name() string { return "ConnectionManager" }

func (c *BaseConnectionManager) Messages() []overlay.Kind {
	return []overlay.Kind{overlay.KindHello, overlay.KindPing, overlay.KindPong}
}

func (c *BaseConnectionManager) HandleMessage(ctx *overlay.Context, m *overlay.Message) error {
	switch m.Kind {
	case overlay.KindHello:
		return c.handleHello(ctx, m)
	case overlay.KindPing:
		return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindPong, Payload: overlay.PongPayload{}}, false)
	case overlay.KindPong:
		return nil
	}
	return nil
}

func (c *BaseConnectionManager) handleHello(ctx *overlay.Context, m *overlay.Message) error {
	if ctx.Peer.IsConnectedTo(m.Sender) {
		return nil
	}
	sender, ok := ctx.Net.Peer(m.Sender)
	if !ok {
		return nil
	}
	if err := overlay.Connect(ctx.Net, ctx.Peer, sender); err != nil {
		return err
	}
	return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindHello, Payload: overlay.HelloPayload{}}, false)
}

func (c *BaseConnectionManager) Start(ctx *overlay.Context) {
	c.startPingLoop(ctx)
}

// startPingLoop schedules a self-repeating tick: ping neighbors gone
// quiet longer than PingInterval, then evict ones silent past
// MaxSilence (granting a one-tick grace period to freshly-connected
// peers with no last-seen entry yet).
func (c *BaseConnectionManager) startPingLoop(ctx *overlay.Context) {
	var tick func()
	tick = func() {
		now := ctx.Net.Scheduler().Now()
		for _, id := range ctx.Peer.Connections() {
			lastSeen, ok := ctx.Peer.LastSeen(id)
			if ok && now-lastSeen > c.cfg.PingInterval {
				_ = ctx.Peer.Send(id, &overlay.Message{Kind: overlay.KindPing, Payload: overlay.PingPayload{}}, false)
			}
		}
		for _, id := range ctx.Peer.Connections() {
			lastSeen, ok := ctx.Peer.LastSeen(id)
			if !ok {
				ctx.Peer.MarkSeen(id, now)
				continue
			}
			if now-lastSeen > c.cfg.MaxSilence {
				if neighbor, ok := ctx.Net.Peer(id); ok {
					overlay.Disconnect(ctx.Peer, neighbor)
				}
			}
		}
		ctx.Net.Scheduler().Schedule(c.cfg.PingInterval, tick)
	}
	ctx.Net.Scheduler().Schedule(c.cfg.PingInterval, tick)
}

// candidateState tracks one outbound candidate through the state
// machine spec.md §4.5 describes: unknown peers are simply absent
// from the map.
type candidateState int

const (
	candidateKnown candidateState = iota
	candidatePending
	candidateConnected
	candidateDisconnected
)

// P2PConfig extends ConnectionManagerConfig with the full manager's
// degree-band and peer-list exchange parameters.
type P2PConfig struct {
	ConnectionManagerConfig
	PeerListNumber   int
	MinPeers         int
	MaxPeers         int
	PeerBatchRequest int
	MinKeepTime      engine.SimTime
	MonitorInterval  engine.SimTime

	// Selector orders candidates before the first `needed` are
	// bootstrap-connected to; a nil Selector keeps the plain
	// ascending-id order spec.md §4.5 describes.
	Selector Selector
}

// P2PConnectionManager is the full connection manager: it additionally
// solicits peer lists, maintains a degree band by requesting or
// evicting connections, and tracks every peer it has ever learned of
// or disconnected from.
type P2PConnectionManager struct {
	base *BaseConnectionManager
	cfg  P2PConfig

	known            map[overlay.PeerID]candidateState
	everDisconnected map[overlay.PeerID]struct{}
}

func NewP2PConnectionManager(cfg P2PConfig) *P2PConnectionManager {
	return &P2PConnectionManager{
		base:             NewBaseConnectionManager(cfg.ConnectionManagerConfig),
		cfg:              cfg,
		known:            make(map[overlay.PeerID]candidateState),
		everDisconnected: make(map[overlay.PeerID]struct{}),
	}
}

func (c *P2PConnectionManager) Name() string { return "ConnectionManager" }

func (c *P2PConnectionManager) Messages() []overlay.Kind {
	return []overlay.Kind{
		overlay.KindHello, overlay.KindPing, overlay.KindPong,
		overlay.KindRequestPeers, overlay.KindPeerList,
	}
}

func (c *P2PConnectionManager) HandleMessage(ctx *overlay.Context, m *overlay.Message) error {
	switch m.Kind {
	case overlay.KindHello:
		return c.handleHello(ctx, m)
	case overlay.KindPing:
		return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindPong, Payload: overlay.PongPayload{}}, false)
	case overlay.KindPong:
		return nil
	case overlay.KindRequestPeers:
		return c.handleRequestPeers(ctx, m)
	case overlay.KindPeerList:
		c.handlePeerList(ctx, m)
		return nil
	}
	return nil
}

func (c *P2PConnectionManager) handleHello(ctx *overlay.Context, m *overlay.Message) error {
	if !ctx.Peer.IsConnectedTo(m.Sender) {
		sender, ok := ctx.Net.Peer(m.Sender)
		if !ok {
			return nil
		}
		if err := overlay.Connect(ctx.Net, ctx.Peer, sender); err != nil {
			return err
		}
		if err := ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindHello, Payload: overlay.HelloPayload{}}, false); err != nil {
			return err
		}
		if err := ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindRequestPeers, Payload: overlay.RequestPeersPayload{}}, false); err != nil {
			return err
		}
	}
	c.known[m.Sender] = candidateConnected
	return nil
}

func (c *P2PConnectionManager) handleRequestPeers(ctx *overlay.Context, m *overlay.Message) error {
	ids := ctx.Peer.Connections()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	filtered := ids[:0:0]
	for _, id := range ids {
		if id != m.Sender {
			filtered = append(filtered, id)
		}
	}
	rng := ctx.Net.Rand()
	rng.Shuffle(len(filtered), func(i, j int) { filtered[i], filtered[j] = filtered[j], filtered[i] })
	n := c.cfg.PeerListNumber
	if n > len(filtered) {
		n = len(filtered)
	}
	return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindPeerList, Payload: overlay.PeerListPayload{Peers: append([]overlay.PeerID{}, filtered[:n]...)}}, false)
}

func (c *P2PConnectionManager) handlePeerList(ctx *overlay.Context, m *overlay.Message) {
	list, ok := m.Payload.(overlay.PeerListPayload)
	if !ok {
		return
	}
	for _, id := range list.Peers {
		if id == ctx.Peer.ID {
			continue
		}
		if _, seen := c.known[id]; !seen {
			c.known[id] = candidateKnown
		}
	}
}

func (c *P2PConnectionManager) Start(ctx *overlay.Context) {
	ctx.Peer.OnDisconnect(func(id overlay.PeerID) {
		c.everDisconnected[id] = struct{}{}
		c.known[id] = candidateDisconnected
	})
	c.base.startPingLoop(ctx)

	var monitor func()
	monitor = func() {
		c.monitorConnections(ctx)
		ctx.Net.Scheduler().Schedule(c.cfg.MonitorInterval, monitor)
	}
	ctx.Net.Scheduler().Schedule(c.cfg.MonitorInterval, monitor)
}

func (c *P2PConnectionManager) monitorConnections(ctx *overlay.Context) {
	degree := ctx.Peer.Degree()
	if degree < c.cfg.MinPeers {
		needed := c.cfg.MinPeers - degree
		candidates := c.candidateSet(ctx)
		if len(candidates) < needed {
			ctx.Peer.Gossip(
				&overlay.Message{Kind: overlay.KindRequestPeers, Payload: overlay.RequestPeersPayload{}},
				c.cfg.PeerBatchRequest,
				overlay.GossipFilter{ExcludeTypes: map[string]struct{}{"bootstrap": {}}},
			)
		}
		chosen := candidates
		if c.cfg.Selector != nil {
			chosen = c.cfg.Selector.Select(ctx, candidates, needed)
		} else if len(chosen) > needed {
			chosen = chosen[:needed]
		}
		for _, id := range chosen {
			c.bootstrapConnect(ctx, id)
		}
	}
	for ctx.Peer.Degree() > c.cfg.MaxPeers {
		if !c.disconnectSlowest(ctx) {
			break
		}
	}
}

// candidateSet returns known-but-not-yet-connected, never-disconnected
// peers, in ascending id order for determinism.
func (c *P2PConnectionManager) candidateSet(ctx *overlay.Context) []overlay.PeerID {
	var out []overlay.PeerID
	for id, state := range c.known {
		if state == candidateConnected || state == candidateDisconnected {
			continue
		}
		if ctx.Peer.IsConnectedTo(id) {
			continue
		}
		if _, ever := c.everDisconnected[id]; ever {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *P2PConnectionManager) bootstrapConnect(ctx *overlay.Context, id overlay.PeerID) {
	c.known[id] = candidatePending
	_ = ctx.Peer.Send(id, &overlay.Message{Kind: overlay.KindHello, Payload: overlay.HelloPayload{}}, true)
}

// disconnectSlowest evicts the connected-longer-than-MinKeepTime
// neighbor with the minimum Connection.bandwidth, breaking ties by
// ascending peer id (spec.md's open-question decision: the source
// left this tie-break unspecified). Reports whether it evicted anyone.
func (c *P2PConnectionManager) disconnectSlowest(ctx *overlay.Context) bool {
	ids := ctx.Peer.Connections()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	now := ctx.Net.Scheduler().Now()

	var slowest overlay.PeerID
	slowestBW := math.MaxFloat64
	found := false
	for _, id := range ids {
		conn, ok := ctx.Peer.ConnectionTo(id)
		if !ok || now-conn.StartTime < c.cfg.MinKeepTime {
			continue
		}
		if conn.Bandwidth < slowestBW {
			slowestBW = conn.Bandwidth
			slowest = id
			found = true
		}
	}
	if !found {
		return false
	}
	if neighbor, ok := ctx.Net.Peer(slowest); ok {
		overlay.Disconnect(ctx.Peer, neighbor)
	}
	return true
}
