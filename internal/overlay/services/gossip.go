package services

import (
	"strconv"

	"github.com/kharnos-labs/overlaysim/internal/overlay"
)

// GossipConfig parameterizes the push-TTL flood service.
type GossipConfig struct {
	Fanout        int
	ExcludeTypes  map[string]struct{}
	BucketMsgTime string
	BucketMsgData string
}

// DefaultGossipBuckets names the two storage buckets GossipService
// expects to already be registered on the peer via Peer.AddStorage.
const (
	DefaultBucketMsgTime = "msg_time"
	DefaultBucketMsgData = "msg_data"
)

// GossipService is the push-TTL flood: every GossipMessage is stored
// once (first-writer-wins) and, while its TTL remains positive,
// re-gossiped to a fresh random sample of neighbors with the TTL
// decremented — spec.md §4.6's GossipService.
type GossipService struct {
	cfg GossipConfig
}

func NewGossipService(cfg GossipConfig) *GossipService {
	if cfg.BucketMsgTime == "" {
		cfg.BucketMsgTime = DefaultBucketMsgTime
	}
	if cfg.BucketMsgData == "" {
		cfg.BucketMsgData = DefaultBucketMsgData
	}
	return &GossipService{cfg: cfg}
}

func (g *GossipService) Name() string { return "GossipService" }

func (g *GossipService) Messages() []overlay.Kind { return []overlay.Kind{overlay.KindGossip} }

func (g *GossipService) HandleMessage(ctx *overlay.Context, m *overlay.Message) error {
	payload, ok := m.Payload.(overlay.GossipPayload)
	if !ok {
		return nil
	}
	timeBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgTime)
	if err != nil {
		return err
	}
	dataBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgData)
	if err != nil {
		return err
	}
	now := ctx.Net.Scheduler().Now()
	timeBucket.Add(payload.ID, overlay.StoredMessage{Data: []byte(strconv.FormatInt(int64(now), 10))})
	dataBucket.Add(payload.ID, overlay.StoredMessage{Data: payload.Data, TTL: payload.TTL})
	if payload.TTL <= 0 {
		return nil
	}
	filter := overlay.GossipFilter{
		ExcludePeers: map[overlay.PeerID]struct{}{m.Sender: {}},
		ExcludeTypes: g.cfg.ExcludeTypes,
	}
	ctx.Peer.Gossip(&overlay.Message{
		Kind:    overlay.KindGossip,
		Payload: overlay.GossipPayload{ID: payload.ID, Data: payload.Data, TTL: payload.TTL - 1},
	}, g.cfg.Fanout, filter)
	return nil
}

// Inject originates a brand-new gossip message from this peer,
// flooding it to up to fanout neighbors. Used by the harness/test
// scenarios and by MessageProducer.
func (g *GossipService) Inject(ctx *overlay.Context, id string, data []byte, ttl int) {
	timeBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgTime)
	if err != nil {
		return
	}
	dataBucket, err := ctx.Peer.Storage(g.cfg.BucketMsgData)
	if err != nil {
		return
	}
	now := ctx.Net.Scheduler().Now()
	timeBucket.Add(id, overlay.StoredMessage{Data: []byte(strconv.FormatInt(int64(now), 10))})
	dataBucket.Add(id, overlay.StoredMessage{Data: data, TTL: ttl})
	ctx.Peer.Gossip(&overlay.Message{
		Kind:    overlay.KindGossip,
		Payload: overlay.GossipPayload{ID: id, Data: data, TTL: ttl},
	}, g.cfg.Fanout, overlay.GossipFilter{ExcludeTypes: g.cfg.ExcludeTypes})
}
