package services

import (
	"math"
	"sort"
	"strconv"

	"github.com/kharnos-labs/overlaysim/internal/distribution"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
)

// PullGossipConfig parameterizes the pull anti-entropy service.
type PullGossipConfig struct {
	Fanout        int
	RoundTime     engine.SimTime
	InitTimeout   distribution.Spec
	BucketMsgTime string
	BucketMsgData string
}

// PullGossipService exchanges known-identifier sets with a random
// sample of neighbors every round and requests whatever either side
// is missing — spec.md §4.6's PullGossipService.
type PullGossipService struct {
	cfg PullGossipConfig
}

func NewPullGossipService(cfg PullGossipConfig) *PullGossipService {
	if cfg.BucketMsgTime == "" {
		cfg.BucketMsgTime = DefaultBucketMsgTime
	}
	if cfg.BucketMsgData == "" {
		cfg.BucketMsgData = DefaultBucketMsgData
	}
	return &PullGossipService{cfg: cfg}
}

func (g *PullGossipService) Name() string { return "PullGossipService" }

func (g *PullGossipService) Messages() []overlay.Kind {
	return []overlay.Kind{
		overlay.KindSyncPing, overlay.KindSyncPong,
		overlay.KindMsgRequest, overlay.KindMsgResponse,
		overlay.KindGossip,
	}
}

func (g *PullGossipService) Start(ctx *overlay.Context) {
	initDelay := engine.Millis(math.Abs(g.cfg.InitTimeout.Sample(ctx.Net.Rand())))
	var tick func()
	tick = func() {
		g.round(ctx)
		ctx.Net.Scheduler().Schedule(g.cfg.RoundTime, tick)
	}
	ctx.Net.Scheduler().Schedule(initDelay, tick)
}

func (g *PullGossipService) round(ctx *overlay.Context) {
	dataBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgData)
	if err != nil {
		return
	}
	ctx.Peer.Gossip(&overlay.Message{
		Kind:    overlay.KindSyncPing,
		Payload: overlay.SyncPingPayload{Known: dataBucket.KnownIDs()},
	}, g.cfg.Fanout, overlay.GossipFilter{})
}

func (g *PullGossipService) HandleMessage(ctx *overlay.Context, m *overlay.Message) error {
	dataBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgData)
	if err != nil {
		return err
	}
	timeBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgTime)
	if err != nil {
		return err
	}
	now := strconv.FormatInt(int64(ctx.Net.Scheduler().Now()), 10)

	switch m.Kind {
	case overlay.KindSyncPing:
		p := m.Payload.(overlay.SyncPingPayload)
		myKnown := toSet(dataBucket.KnownIDs())
		theirKnown := toSet(p.Known)
		peerMissing := setMinus(myKnown, theirKnown)
		selfMissing := setMinus(theirKnown, myKnown)
		if len(peerMissing) > 0 {
			if err := ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindSyncPong, Payload: overlay.SyncPongPayload{PeerMissing: peerMissing}}, false); err != nil {
				return err
			}
		}
		if len(selfMissing) > 0 {
			return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindMsgRequest, Payload: overlay.MsgRequestPayload{Missing: selfMissing}}, false)
		}
		return nil

	case overlay.KindSyncPong:
		p := m.Payload.(overlay.SyncPongPayload)
		myKnown := toSet(dataBucket.KnownIDs())
		missing := setMinus(toSet(p.PeerMissing), myKnown)
		if len(missing) == 0 {
			return nil
		}
		return ctx.Peer.Send(m.Sender, &overlay.Message{Kind: overlay.KindMsgRequest, Payload: overlay.MsgRequestPayload{Missing: missing}}, false)

	case overlay.KindMsgRequest:
		p := m.Payload.(overlay.MsgRequestPayload)
		resp := make(map[string]overlay.StoredMessage)
		for _, id := range p.Missing {
			if v, ok := dataBucket.Get(id); ok {
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
			dataBucket.Add(id, v)
			timeBucket.Add(id, overlay.StoredMessage{Data: []byte(now)})
		}
		return nil

	case overlay.KindGossip:
		p := m.Payload.(overlay.GossipPayload)
		dataBucket.Add(p.ID, overlay.StoredMessage{Data: p.Data, TTL: p.TTL})
		timeBucket.Add(p.ID, overlay.StoredMessage{Data: []byte(now)})
		return nil
	}
	return nil
}

// Inject originates a new identifier directly into this peer's store,
// to be picked up by the next anti-entropy round rather than flooded
// immediately (the push-gossip flavor floods eagerly; this one waits
// for its own schedule, by design).
func (g *PullGossipService) Inject(ctx *overlay.Context, id string, data []byte) {
	dataBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgData)
	if err != nil {
		return
	}
	timeBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgTime)
	if err != nil {
		return
	}
	now := strconv.FormatInt(int64(ctx.Net.Scheduler().Now()), 10)
	dataBucket.Add(id, overlay.StoredMessage{Data: data})
	timeBucket.Add(id, overlay.StoredMessage{Data: []byte(now)})
}

func toSet(ss []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		out[s] = struct{}{}
	}
	return out
}

// setMinus returns the elements of a not present in b, sorted for
// deterministic message contents.
func setMinus(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
