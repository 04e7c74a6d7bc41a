package services

import (
	"strconv"

	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
)

// DisruptionConfig parameterizes the Bernoulli-probe disruption
// trigger of spec.md §4.7: every Interval, a coin flip weighted by
// Interval/MTBF starts a disruption episode; once disrupted, the
// episode ends when a uniform draw exceeds
// Interval/(MTBF*(1-Availability)).
type DisruptionConfig struct {
	Interval     engine.SimTime
	MTBF         engine.SimTime
	Availability float64
}

func probe(ctx *overlay.Context, disrupted bool, cfg DisruptionConfig) (toggled bool) {
	rng := ctx.Net.Rand()
	if !disrupted {
		p := float64(cfg.Interval) / float64(cfg.MTBF)
		return rng.Float64() <= p
	}
	avgDur := float64(cfg.MTBF) * (1 - cfg.Availability)
	p := float64(cfg.Interval) / avgDur
	return rng.Float64() > p
}

func setDisruptionMetric(ctx *overlay.Context, kind string, active float64) {
	m := ctx.Net.Metrics()
	if m == nil {
		return
	}
	id := strconv.FormatUint(uint64(ctx.Peer.ID), 10)
	m.DisruptionActive.WithLabelValues(id, kind).Set(active)
}

// downtimeStart/downtimeEnd implement spec.md §4.7's Downtime
// disruption: going offline snapshots the current connection set so
// ending the episode can reissue a Hello (bootstrap=true) to each of
// them; a receiver whose edge to this peer was dropped in the meantime
// connects back on that Hello, one still connected ignores it.
func downtimeStart(ctx *overlay.Context, lastPeers *[]overlay.PeerID) {
	*lastPeers = ctx.Peer.Connections()
	ctx.Peer.SetOnline(false)
	setDisruptionMetric(ctx, "downtime", 1)
}

func downtimeEnd(ctx *overlay.Context, lastPeers *[]overlay.PeerID) {
	ctx.Peer.SetOnline(true)
	for _, id := range *lastPeers {
		_ = ctx.Peer.Send(id, &overlay.Message{Kind: overlay.KindHello, Payload: overlay.HelloPayload{}}, true)
	}
	setDisruptionMetric(ctx, "downtime", 0)
}

// slowdownStart/slowdownEnd implement spec.md §4.7's Slowdown
// disruption: both bandwidths are scaled down, then restored to
// whatever was snapshotted at start — never to a separately-tracked
// config value (spec.md's open-question decision).
func slowdownStart(ctx *overlay.Context, savedUL, savedDL *float64, factor float64) {
	*savedUL, *savedDL = ctx.Peer.BandwidthUL, ctx.Peer.BandwidthDL
	ctx.Peer.SetBandwidth(*savedUL*factor, *savedDL*factor)
	setDisruptionMetric(ctx, "slowdown", 1)
}

func slowdownEnd(ctx *overlay.Context, savedUL, savedDL float64) {
	ctx.Peer.SetBandwidth(savedUL, savedDL)
	setDisruptionMetric(ctx, "slowdown", 0)
}

// DowntimeService is the Bernoulli-probe-driven Downtime disruption.
type DowntimeService struct {
	cfg        DisruptionConfig
	disrupted  bool
	lastPeers  []overlay.PeerID
}

func NewDowntimeService(cfg DisruptionConfig) *DowntimeService { return &DowntimeService{cfg: cfg} }

func (d *DowntimeService) Name() string { return "DowntimeService" }

func (d *DowntimeService) Start(ctx *overlay.Context) {
	var tick func()
	tick = func() {
		if probe(ctx, d.disrupted, d.cfg) {
			d.disrupted = !d.disrupted
			if d.disrupted {
				downtimeStart(ctx, &d.lastPeers)
			} else {
				downtimeEnd(ctx, &d.lastPeers)
			}
		}
		ctx.Net.Scheduler().Schedule(d.cfg.Interval, tick)
	}
	ctx.Net.Scheduler().Schedule(d.cfg.Interval, tick)
}

// SlowdownConfig adds the bandwidth scale factor to DisruptionConfig.
type SlowdownConfig struct {
	DisruptionConfig
	Factor float64
}

// SlowdownService is the Bernoulli-probe-driven Slowdown disruption.
type SlowdownService struct {
	cfg              SlowdownConfig
	disrupted        bool
	savedUL, savedDL float64
}

func NewSlowdownService(cfg SlowdownConfig) *SlowdownService { return &SlowdownService{cfg: cfg} }

func (s *SlowdownService) Name() string { return "SlowdownService" }

func (s *SlowdownService) Start(ctx *overlay.Context) {
	var tick func()
	tick = func() {
		if probe(ctx, s.disrupted, s.cfg.DisruptionConfig) {
			s.disrupted = !s.disrupted
			if s.disrupted {
				slowdownStart(ctx, &s.savedUL, &s.savedDL, s.cfg.Factor)
			} else {
				slowdownEnd(ctx, s.savedUL, s.savedDL)
			}
		}
		ctx.Net.Scheduler().Schedule(s.cfg.Interval, tick)
	}
	ctx.Net.Scheduler().Schedule(s.cfg.Interval, tick)
}

// Episode is one entry of a deterministic disruption schedule: start
// At simulated time, lasting Duration.
type Episode struct {
	At       engine.SimTime
	Duration engine.SimTime
}

// ScheduledDowntimeService replaces the Bernoulli probe with a fixed
// list of episodes — spec.md §4.7's "alternative scheduled variant",
// used to reproduce scenario 5 deterministically.
type ScheduledDowntimeService struct {
	episodes  []Episode
	lastPeers []overlay.PeerID
}

func NewScheduledDowntimeService(episodes []Episode) *ScheduledDowntimeService {
	return &ScheduledDowntimeService{episodes: episodes}
}

func (s *ScheduledDowntimeService) Name() string { return "DowntimeService" }

func (s *ScheduledDowntimeService) Start(ctx *overlay.Context) {
	for _, ep := range s.episodes {
		ep := ep
		ctx.Net.Scheduler().Schedule(ep.At, func() {
			downtimeStart(ctx, &s.lastPeers)
			ctx.Net.Scheduler().Schedule(ep.Duration, func() {
				downtimeEnd(ctx, &s.lastPeers)
			})
		})
	}
}

// ScheduledSlowdownEpisode is one scheduled slowdown window.
type ScheduledSlowdownEpisode struct {
	At       engine.SimTime
	Duration engine.SimTime
	Factor   float64
}

// ScheduledSlowdownService replaces the Bernoulli probe with a fixed
// list of slowdown windows.
type ScheduledSlowdownService struct {
	episodes         []ScheduledSlowdownEpisode
	savedUL, savedDL float64
}

func NewScheduledSlowdownService(episodes []ScheduledSlowdownEpisode) *ScheduledSlowdownService {
	return &ScheduledSlowdownService{episodes: episodes}
}

func (s *ScheduledSlowdownService) Name() string { return "SlowdownService" }

func (s *ScheduledSlowdownService) Start(ctx *overlay.Context) {
	for _, ep := range s.episodes {
		ep := ep
		ctx.Net.Scheduler().Schedule(ep.At, func() {
			slowdownStart(ctx, &s.savedUL, &s.savedDL, ep.Factor)
			ctx.Net.Scheduler().Schedule(ep.Duration, func() {
				slowdownEnd(ctx, s.savedUL, s.savedDL)
			})
		})
	}
}
