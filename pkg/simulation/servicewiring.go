package simulation

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/kharnos-labs/overlaysim/internal/distribution"
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
	"github.com/kharnos-labs/overlaysim/internal/overlay/services"
	"github.com/kharnos-labs/overlaysim/internal/overlay/storage"
	"github.com/kharnos-labs/overlaysim/internal/simerr"
)

// wireServices decodes a peer type's raw services map (config.PeerTypeSpec
// .Services, still map[string]interface{} after the YAML boundary since the
// loader can't know which concrete Config struct each class needs) and
// attaches the matching services.* instance to p, grounded on spec.md
// §4.8's PeerFactory wiring every declared service class by name.
//
// The gossip-family classes are decoded first (at most one is expected per
// peer type) so a later message_producer entry can wire its emit callback
// to whichever flavor is present. ScheduledDowntimeService and
// ScheduledSlowdownService take an episode list no YAML scalar map can
// express cleanly, so they are left Go-constructor-only and are not
// reachable from this registry.
func wireServices(p *overlay.Peer, raw map[string]map[string]interface{}) error {
	var emit func(ctx *overlay.Context, seq int64, data []byte)

	if cfg, ok := raw["gossip"]; ok {
		svc := services.NewGossipService(services.GossipConfig{
			Fanout:       intField(cfg, "fanout", 4),
			ExcludeTypes: stringSetField(cfg, "exclude_types"),
		})
		p.AddService(svc)
		ttl := intField(cfg, "ttl", 10)
		emit = func(ctx *overlay.Context, seq int64, data []byte) {
			svc.Inject(ctx, uuid.New().String(), data, ttl)
		}
	} else if cfg, ok := raw["pull_gossip"]; ok {
		svc := services.NewPullGossipService(services.PullGossipConfig{
			Fanout:      intField(cfg, "fanout", 4),
			RoundTime:   durationField(cfg, "round_time", 5),
			InitTimeout: constantDist(floatField(cfg, "init_timeout", 0)),
		})
		p.AddService(svc)
		emit = func(ctx *overlay.Context, seq int64, data []byte) {
			svc.Inject(ctx, uuid.New().String(), data)
		}
	} else if cfg, ok := raw["ranged_pull_gossip"]; ok {
		bucketData := stringField(cfg, "bucket_msg_data", services.DefaultBucketMsgData)
		p.AddStorage(bucketData, storage.NewRanged[overlay.StoredMessage]())
		svc := services.NewRangedPullGossipService(services.RangedPullGossipConfig{
			Fanout:        intField(cfg, "fanout", 4),
			RoundTime:     durationField(cfg, "round_time", 5),
			InitTimeout:   constantDist(floatField(cfg, "init_timeout", 0)),
			BucketMsgData: bucketData,
		})
		p.AddService(svc)
		origin := strconv.FormatUint(uint64(p.ID), 10)
		emit = func(ctx *overlay.Context, seq int64, data []byte) {
			svc.Inject(ctx, origin, seq, data)
		}
	}

	if cfg, ok := raw["connection_manager"]; ok {
		p.AddService(services.NewBaseConnectionManager(connectionManagerConfig(cfg)))
	}
	if cfg, ok := raw["p2p_connection_manager"]; ok {
		p2p := services.P2PConfig{
			ConnectionManagerConfig: connectionManagerConfig(cfg),
			PeerListNumber:          intField(cfg, "peer_list_number", 5),
			MinPeers:                intField(cfg, "min_peers", 4),
			MaxPeers:                intField(cfg, "max_peers", 8),
			PeerBatchRequest:        intField(cfg, "peer_batch_request", 2),
			MinKeepTime:             durationField(cfg, "min_keep_time", 60),
			MonitorInterval:         durationField(cfg, "monitor_interval", 10),
		}
		if s := stringField(cfg, "selector", ""); s == "latency_aware" {
			p2p.Selector = services.LatencyAwareSelector{}
		} else if s == "latency_aware_far" {
			p2p.Selector = services.LatencyAwareSelector{PreferFar: true}
		}
		p.AddService(services.NewP2PConnectionManager(p2p))
	}

	if cfg, ok := raw["downtime"]; ok {
		p.AddService(services.NewDowntimeService(disruptionConfig(cfg)))
	}
	if cfg, ok := raw["slowdown"]; ok {
		p.AddService(services.NewSlowdownService(services.SlowdownConfig{
			DisruptionConfig: disruptionConfig(cfg),
			Factor:           floatField(cfg, "factor", 0.1),
		}))
	}

	if cfg, ok := raw["message_producer"]; ok {
		if emit == nil {
			return &simerr.ConfigurationError{Reason: "peer type declares message_producer without a gossip/pull_gossip/ranged_pull_gossip service to emit into"}
		}
		p.AddService(services.NewMessageProducer(services.MessageProducerConfig{
			Interval:    durationField(cfg, "interval", 5),
			MessageSize: intField(cfg, "message_size", 100),
		}, emit))
	}

	return nil
}

func connectionManagerConfig(cfg map[string]interface{}) services.ConnectionManagerConfig {
	return services.ConnectionManagerConfig{
		PingInterval: durationField(cfg, "ping_interval", 30),
		MaxSilence:   durationField(cfg, "max_silence", 90),
	}
}

func disruptionConfig(cfg map[string]interface{}) services.DisruptionConfig {
	return services.DisruptionConfig{
		Interval:     durationField(cfg, "interval", 60),
		MTBF:         durationField(cfg, "mtbf", 3600),
		Availability: floatField(cfg, "availability", 0.99),
	}
}

// constantDist builds a degenerate distribution.Spec sampling a fixed
// value — the raw services map has no room for a nested named
// distribution record the way the YAML Peer block does, so a service's
// distribution-typed fields (PullGossipConfig.InitTimeout) are scalar-only
// through this registry. The value is given in seconds, like every other
// duration field here, and converted to the milliseconds the gossip
// services sample InitTimeout in.
func constantDist(seconds float64) distribution.Spec {
	return distribution.Spec{Kind: distribution.Constant, Value: seconds * 1000}
}

func numField(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func floatField(m map[string]interface{}, key string, def float64) float64 {
	if n, ok := numField(m, key); ok {
		return n
	}
	return def
}

func intField(m map[string]interface{}, key string, def int) int {
	if n, ok := numField(m, key); ok {
		return int(n)
	}
	return def
}

func durationField(m map[string]interface{}, key string, defSeconds float64) engine.SimTime {
	return engine.Seconds(floatField(m, key, defSeconds))
}

func stringField(m map[string]interface{}, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func stringSetField(m map[string]interface{}, key string) map[string]struct{} {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]struct{}, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out[s] = struct{}{}
		}
	}
	return out
}
