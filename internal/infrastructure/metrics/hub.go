package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SendResultDelivered = "delivered"
	SendResultFailed    = "failed"
)

// HubMetrics holds Prometheus metrics for the connection hub.
// A nil *HubMetrics is valid and records nothing.
type HubMetrics struct {
	ActiveConnections prometheus.Gauge
	BroadcastsTotal   prometheus.Counter
	SendsTotal        *prometheus.CounterVec
	SendDuration      prometheus.Histogram
}

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_connections",
			Help:      "Number of connections currently in the registry.",
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast calls.",
		}),
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "sends_total",
			Help:      "Per-connection send attempts by result.",
		}, []string{"result"}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_duration_seconds",
			Help:      "Duration of a single per-connection send.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.BroadcastsTotal, m.SendsTotal, m.SendDuration)
	return m
}

func (m *HubMetrics) SetActiveConnections(n int) {
	if m == nil {
		return
	}
	m.ActiveConnections.Set(float64(n))
}

func (m *HubMetrics) ObserveBroadcast() {
	if m == nil {
		return
	}
	m.BroadcastsTotal.Inc()
}

func (m *HubMetrics) ObserveSend(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := SendResultDelivered
	if err != nil {
		result = SendResultFailed
	}
	m.SendsTotal.WithLabelValues(result).Inc()
	m.SendDuration.Observe(d.Seconds())
}
