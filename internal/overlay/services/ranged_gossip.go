package services

import (
	"math"
	"strconv"

	"github.com/kharnos-labs/overlaysim/internal/distribution"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlay/storage"
	"github.com/kharnos-labs/overlaysim/internal/simerr"
)

// RangedBucket is the storage contract RangedPullGossipService needs
// beyond the plain overlay.Bucket interface: the per-origin
// last-seen/hole bookkeeping a *storage.RangedStore exposes. The peer
// type's factory must register a *storage.RangedStore as the
// msg_data bucket for this service to work; a plain Store fails the
// type assertion, which HandleMessage returns as a ConfigurationError
// (the periodic round skips silently on the same failure).
type RangedBucket interface {
	overlay.Bucket
	GetAllLast() map[string]int64
	GetLast(origin string) int64
	GetHoles(origin string) []int64
	PreAdd(origin string, seq int64)
}

// RangedPullGossipConfig parameterizes the ranged anti-entropy
// service.
type RangedPullGossipConfig struct {
	Fanout        int
	RoundTime     engine.SimTime
	InitTimeout   distribution.Spec
	BucketMsgTime string
	BucketMsgData string
}

// RangedPullGossipService is the pull anti-entropy variant built for
// per-origin monotone sequences ("origin_seq" identifiers): instead of
// exchanging full id sets, peers exchange a per-origin highest-seq
// index and request exactly the gaps (holes) that implies — spec.md
// §4.6's RangedPullGossipService.
type RangedPullGossipService struct {
	cfg RangedPullGossipConfig
}

func NewRangedPullGossipService(cfg RangedPullGossipConfig) *RangedPullGossipService {
	if cfg.BucketMsgTime == "" {
		cfg.BucketMsgTime = DefaultBucketMsgTime
	}
	if cfg.BucketMsgData == "" {
		cfg.BucketMsgData = DefaultBucketMsgData
	}
	return &RangedPullGossipService{cfg: cfg}
}

func (g *RangedPullGossipService) Name() string { return "RangedPullGossipService" }

func (g *RangedPullGossipService) Messages() []overlay.Kind {
	return []overlay.Kind{
		overlay.KindSyncPing, overlay.KindSyncPong,
		overlay.KindMsgRequest, overlay.KindMsgResponse,
		overlay.KindGossip,
	}
}

func (g *RangedPullGossipService) bucket(ctx *overlay.Context) (RangedBucket, overlay.Bucket, error) {
	raw, err := ctx.Peer.Storage(g.cfg.BucketMsgData)
	if err != nil {
		return nil, nil, err
	}
	ranged, ok := raw.(RangedBucket)
	if !ok {
		return nil, nil, &simerr.ConfigurationError{Reason: "bucket " + g.cfg.BucketMsgData + " is not a ranged store"}
	}
	timeBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgTime)
	if err != nil {
		return nil, nil, err
	}
	return ranged, timeBucket, nil
}

func (g *RangedPullGossipService) Start(ctx *overlay.Context) {
	initDelay := engine.Millis(math.Abs(g.cfg.InitTimeout.Sample(ctx.Net.Rand())))
	var tick func()
	tick = func() {
		g.round(ctx)
		ctx.Net.Scheduler().Schedule(g.cfg.RoundTime, tick)
	}
	ctx.Net.Scheduler().Schedule(initDelay, tick)
}

func (g *RangedPullGossipService) round(ctx *overlay.Context) {
	ranged, _, err := g.bucket(ctx)
	if err != nil {
		return
	}
	ctx.Peer.Gossip(&overlay.Message{
		Kind:    overlay.KindSyncPing,
		Payload: overlay.RangedSyncPingPayload{Last: ranged.GetAllLast()},
	}, g.cfg.Fanout, overlay.GossipFilter{})
}

func (g *RangedPullGossipService) HandleMessage(ctx *overlay.Context, m *overlay.Message) error {
	ranged, timeBucket, err := g.bucket(ctx)
	if err != nil {
		return err
	}
	now := strconv.FormatInt(int64(ctx.Net.Scheduler().Now()), 10)

	switch m.Kind {
	case overlay.KindSyncPing:
		p := m.Payload.(overlay.RangedSyncPingPayload)
		for origin, peerLast := range p.Last {
			ranged.PreAdd(origin, peerLast)
		}
		missing := holesFor(ranged, p.Last)
		if len(missing) > 0 {
			if err := ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindMsgRequest, Payload: overlay.MsgRequestPayload{Missing: missing}}, false); err != nil {
				return err
			}
		}
		reply := make(map[string]int64)
		for origin, last := range ranged.GetAllLast() {
			theirLast, known := p.Last[origin]
			if !known || last > theirLast {
				reply[origin] = last
			}
		}
		if len(reply) > 0 {
			return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindSyncPong, Payload: overlay.RangedSyncPongPayload{Last: reply}}, false)
		}
		return nil

	case overlay.KindSyncPong:
		p := m.Payload.(overlay.RangedSyncPongPayload)
		for origin, last := range p.Last {
			ranged.PreAdd(origin, last)
		}
		missing := holesFor(ranged, p.Last)
		if len(missing) == 0 {
			return nil
		}
		return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindMsgRequest, Payload: overlay.MsgRequestPayload{Missing: missing}}, false)

	case overlay.KindMsgRequest:
		p := m.Payload.(overlay.MsgRequestPayload)
		resp := make(map[string]overlay.StoredMessage)
		for _, id := range p.Missing {
			if v, ok := ranged.Get(id); ok {
				resp[id] = v
			}
		}
		if len(resp) == 0 {
			return nil
		}
		return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindMsgResponse, Payload: overlay.MsgResponsePayload{Messages: resp}}, false)

	case overlay.KindMsgResponse:
		p := m.Payload.(overlay.MsgResponsePayload)
		for id, v := range p.Messages {
			ranged.Add(id, v)
			timeBucket.Add(id, overlay.StoredMessage{Data: []byte(now)})
		}
		return nil

	case overlay.KindGossip:
		p := m.Payload.(overlay.GossipPayload)
		ranged.Add(p.ID, overlay.StoredMessage{Data: p.Data, TTL: p.TTL})
		timeBucket.Add(p.ID, overlay.StoredMessage{Data: []byte(now)})
		return nil
	}
	return nil
}

// Inject stores a new (origin, seq) entry directly — origin is
// typically the injecting peer's own id, seq its next sequence
// number — to be picked up by the next anti-entropy round.
func (g *RangedPullGossipService) Inject(ctx *overlay.Context, origin string, seq int64, data []byte) {
	ranged, timeBucket, err := g.bucket(ctx)
	if err != nil {
		return
	}
	now := strconv.FormatInt(int64(ctx.Net.Scheduler().Now()), 10)
	id := storage.RangedKey(origin, seq)
	ranged.Add(id, overlay.StoredMessage{Data: data})
	timeBucket.Add(id, overlay.StoredMessage{Data: []byte(now)})
}

func holesFor(ranged RangedBucket, origins map[string]int64) []string {
	var out []string
	for origin := range origins {
		for _, seq := range ranged.GetHoles(origin) {
			out = append(out, storage.RangedKey(origin, seq))
		}
	}
	return out
}
