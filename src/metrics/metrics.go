package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mt5_bridge"

// Metrics groups every collector the bridge exports.
type Metrics struct {
	TicksReceived   prometheus.Counter
	DecodeErrors    prometheus.Counter
	TransportErrors *prometheus.CounterVec
	CommandsSent    *prometheus.CounterVec
	CommandsDropped prometheus.Counter
	Replies         *prometheus.CounterVec
	TickQueueDepth  prometheus.Gauge
	FeedStale       prometheus.Gauge
	SubConnected    prometheus.Gauge
	Recording       prometheus.Gauge
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TicksReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_received_total",
			Help:      "Snapshots decoded and queued by the ingestor.",
		}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Inbound snapshots dropped because they could not be decoded.",
		}),
		TransportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Socket level failures by socket.",
		}, []string{"socket"}),
		CommandsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Commands accepted into the command queue by type.",
		}, []string{"type"}),
		CommandsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands refused because the command queue was full.",
		}),
		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies consumed by outcome.",
		}, []string{"outcome"}),
		TickQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tick_queue_depth",
			Help:      "Snapshots waiting in the tick queue at the last drain.",
		}),
		FeedStale: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_stale",
			Help:      "1 while the market is open and no snapshot arrived recently.",
		}),
		SubConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriber_connected",
			Help:      "1 while the market data subscription is connected.",
		}),
		Recording: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recording_active",
			Help:      "1 while live ticks are being recorded.",
		}),
	}
}

// NewNop returns unregistered collectors.
func NewNop() *Metrics {
	return New(nil)
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// SetConnected mirrors the subscriber state.
func (m *Metrics) SetConnected(v bool) { boolGauge(m.SubConnected, v) }

// SetStale mirrors the watchdog state.
func (m *Metrics) SetStale(v bool) { boolGauge(m.FeedStale, v) }

// SetRecording mirrors the recording flag.
func (m *Metrics) SetRecording(v bool) { boolGauge(m.Recording, v) }
