package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulator's Prometheus collectors on an isolated
// registry — never the global default registry — so that running
// several Simulation instances in one process (as the test suite
// does) never collides two sets of collectors, the same reasoning
// shurli's pkg/p2pnet/metrics.go documents for its own registry.
//
// Metrics are observability only, per spec.md §6 ("Logs ... are
// observability, not an interface"): nothing in the simulator reads
// these values back to make a decision.
type Metrics struct {
	Registry *prometheus.Registry

	PeerDegree        *prometheus.GaugeVec
	BytesLoad         *prometheus.CounterVec
	MsgCountLoad      *prometheus.CounterVec
	GossipKnownIDs    *prometheus.GaugeVec
	DisruptionActive  *prometheus.GaugeVec
	EventsProcessed   prometheus.Counter
	SchedulerNowMilli prometheus.Gauge
}

// NewMetrics builds a Metrics instance with every collector
// registered on its own private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		PeerDegree: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "overlaysim_peer_degree",
			Help: "Number of active connections held by a peer.",
		}, []string{"peer_id", "peer_type"}),
		BytesLoad: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "overlaysim_bytes_load_total",
			Help: "Cumulative bytes received by a peer's inbox.",
		}, []string{"peer_id"}),
		MsgCountLoad: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "overlaysim_msg_count_load_total",
			Help: "Cumulative messages received by a peer's inbox.",
		}, []string{"peer_id"}),
		GossipKnownIDs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "overlaysim_gossip_known_ids",
			Help: "Number of distinct message identifiers known to a peer's gossip store.",
		}, []string{"peer_id", "bucket"}),
		DisruptionActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "overlaysim_disruption_active",
			Help: "1 while a peer is under an active disruption episode, 0 otherwise.",
		}, []string{"peer_id", "kind"}),
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlaysim_scheduler_events_processed_total",
			Help: "Total scheduler events fired across the run.",
		}),
		SchedulerNowMilli: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "overlaysim_scheduler_now_milliseconds",
			Help: "Current simulated clock, in milliseconds.",
		}),
	}
	reg.MustRegister(
		m.PeerDegree,
		m.BytesLoad,
		m.MsgCountLoad,
		m.GossipKnownIDs,
		m.DisruptionActive,
		m.EventsProcessed,
		m.SchedulerNowMilli,
	)
	return m
}

// Handler exposes the metrics registry over HTTP, for a harness that
// wants to scrape a running simulation the way a real overlay node
// would be scraped.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
