// Package overlay implements the peer runtime, the link model, and
// the connection/message types that the connection-manager and
// gossip services (internal/overlay/services) build on.
package overlay

// PeerID is the stable handle peers and connection tables use to
// refer to one another. Connection tables store PeerIDs rather than
// owning pointers, so the peer registry (kept by the simulation) is
// the only place that owns *Peer values — breaking the reference
// cycle peers would otherwise form.
type PeerID uint64

// Kind tags a Message's payload, replacing an isinstance chain with
// an explicit enum plus an exhaustive switch in each handler (spec.md
// §9's design note, option a).
type Kind int

const (
	KindPing Kind = iota
	KindPong
	KindHello
	KindRequestPeers
	KindPeerList
	KindGossip
	KindSyncPing
	KindSyncPong
	KindMsgRequest
	KindMsgResponse
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindHello:
		return "Hello"
	case KindRequestPeers:
		return "RequestPeers"
	case KindPeerList:
		return "PeerList"
	case KindGossip:
		return "GossipMessage"
	case KindSyncPing:
		return "SyncPing"
	case KindSyncPong:
		return "SyncPong"
	case KindMsgRequest:
		return "MsgRequest"
	case KindMsgResponse:
		return "MsgResponse"
	default:
		return "Unknown"
	}
}

// baseSize is the constant §3 adds to every message's derived size;
// gossip-kind messages use a larger base to reflect their heavier
// envelope.
const (
	defaultBaseSize = 20
	gossipBaseSize  = 250
)

// PreTask runs before a peer's installed handlers see the message; a
// false return aborts further processing of this message (no handler
// dispatch, no post-task).
type PreTask func(m *Message, p *Peer) bool

// PostTask runs after handler dispatch completes.
type PostTask func(m *Message, p *Peer)

// Message is the single concrete message type every Kind is carried
// in; Payload holds the kind-specific fields. This keeps dispatch a
// type switch over a sealed set of Payload implementations rather
// than a family of unrelated structs per kind.
type Message struct {
	Sender   PeerID
	Kind     Kind
	Payload  Payload
	PreTask  PreTask
	PostTask PostTask
}

// Size is the message's derived size: a constant base plus the
// recursive size of its payload, per spec.md §3.
func (m *Message) Size() int {
	base := defaultBaseSize
	if m.Kind == KindGossip {
		base = gossipBaseSize
	}
	return base + m.Payload.payloadSize()
}

// Payload is implemented by every message-kind's data. payloadSize
// computes the recursive size contribution described in spec.md §3:
// iterable members (slices, maps) sum their elements' sizes.
type Payload interface {
	payloadSize() int
}

type PingPayload struct{}

func (PingPayload) payloadSize() int { return 0 }

type PongPayload struct{}

func (PongPayload) payloadSize() int { return 0 }

type HelloPayload struct{}

func (HelloPayload) payloadSize() int { return 0 }

type RequestPeersPayload struct{}

func (RequestPeersPayload) payloadSize() int { return 0 }

// PeerListPayload advertises a batch of peer identities.
type PeerListPayload struct {
	Peers []PeerID
}

func (p PeerListPayload) payloadSize() int { return len(p.Peers) * 8 }

// GossipPayload carries a push-gossip message: an identifier, an
// opaque data blob, and a remaining TTL.
type GossipPayload struct {
	ID   string
	Data []byte
	TTL  int
}

func (p GossipPayload) payloadSize() int { return len(p.ID) + len(p.Data) + 8 }

// SyncPingPayload advertises the sender's known identifiers in a
// pull-gossip round.
type SyncPingPayload struct {
	Known []string
}

func (p SyncPingPayload) payloadSize() int { return sumStrLens(p.Known) }

// SyncPongPayload answers a SyncPing with identifiers the sender is
// missing.
type SyncPongPayload struct {
	PeerMissing []string
}

func (p SyncPongPayload) payloadSize() int { return sumStrLens(p.PeerMissing) }

// MsgRequestPayload asks for the stored messages behind a set of
// identifiers.
type MsgRequestPayload struct {
	Missing []string
}

func (p MsgRequestPayload) payloadSize() int { return sumStrLens(p.Missing) }

// MsgResponsePayload answers a MsgRequest with the stored messages.
type MsgResponsePayload struct {
	Messages map[string]StoredMessage
}

func (p MsgResponsePayload) payloadSize() int {
	total := 0
	for k, v := range p.Messages {
		total += len(k) + len(v.Data)
	}
	return total
}

// RangedSyncPingPayload is the ranged-gossip variant's SyncPing: a
// per-origin highest-seen-sequence index instead of a flat id set.
type RangedSyncPingPayload struct {
	Last map[string]int64
}

func (p RangedSyncPingPayload) payloadSize() int { return len(p.Last) * 16 }

// RangedSyncPongPayload answers a RangedSyncPingPayload with the
// advertiser's own per-origin index for whatever origins it is ahead
// on.
type RangedSyncPongPayload struct {
	Last map[string]int64
}

func (p RangedSyncPongPayload) payloadSize() int { return len(p.Last) * 16 }

// StoredMessage is what the gossip stores keep per identifier: the
// payload bytes plus the TTL it arrived with (ranged stores also
// track origin/seq via the identifier's "origin_seq" encoding, see
// internal/overlay/storage).
type StoredMessage struct {
	Data []byte
	TTL  int
}

func sumStrLens(ss []string) int {
	total := 0
	for _, s := range ss {
		total += len(s)
	}
	return total
}
