package services

import (
	"github.com/kharnos-labs/overlaysim/internal/engine"
	"github.com/kharnos-labs/overlaysim/internal/overlay"
)

// MessageProducerConfig parameterizes MessageProducer.
type MessageProducerConfig struct {
	Interval    engine.SimTime
	MessageSize int
}

// MessageProducer periodically originates a fresh message of random
// bytes from its peer — supplemented from p2psimpy's
// services/message_producer.py, which spec.md's distillation dropped
// (the core spec only describes messages arriving from elsewhere, not
// how a scenario actually seeds gossip traffic). It is gossip-flavor
// agnostic: emit is supplied by whichever GossipService/
// PullGossipService/RangedPullGossipService the peer type wires it to.
type MessageProducer struct {
	cfg  MessageProducerConfig
	seq  int64
	emit func(ctx *overlay.Context, seq int64, data []byte)
}

func NewMessageProducer(cfg MessageProducerConfig, emit func(ctx *overlay.Context, seq int64, data []byte)) *MessageProducer {
	return &MessageProducer{cfg: cfg, emit: emit}
}

func (p *MessageProducer) Name() string { return "MessageProducer" }

func (p *MessageProducer) Start(ctx *overlay.Context) {
	var tick func()
	tick = func() {
		p.seq++
		data := make([]byte, p.cfg.MessageSize)
		ctx.Net.Rand().Read(data)
		p.emit(ctx, p.seq, data)
		ctx.Net.Scheduler().Schedule(p.cfg.Interval, tick)
	}
	ctx.Net.Scheduler().Schedule(p.cfg.Interval, tick)
}
