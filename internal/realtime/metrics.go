package realtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is nil-safe so components can run without a registry in tests.
type Metrics struct {
	connections   prometheus.Gauge
	onlineUsers   prometheus.Gauge
	handshakes    *prometheus.CounterVec
	events        *prometheus.CounterVec
	eventErrors   *prometheus.CounterVec
	eventLatency  *prometheus.HistogramVec
	fanout        *prometheus.CounterVec
	slowConsumers prometheus.Counter
	presenceFails prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gosocial_realtime_connections",
			Help: "Current number of authenticated websocket connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gosocial_realtime_online_users",
			Help: "Current number of users with at least one connection.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosocial_realtime_handshakes_total",
			Help: "Connection handshakes grouped by outcome.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosocial_realtime_events_total",
			Help: "Inbound client events by name.",
		}, []string{"event"}),
		eventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosocial_realtime_event_errors_total",
			Help: "Rejected or failed inbound events by name and reason.",
		}, []string{"event", "reason"}),
		eventLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gosocial_realtime_event_latency_seconds",
			Help:    "Time spent handling inbound events.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"event"}),
		fanout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gosocial_realtime_fanout_total",
			Help: "Outbound event deliveries by event name and result.",
		}, []string{"event", "result"}),
		slowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gosocial_realtime_slow_consumers_total",
			Help: "Connections closed because their send buffer was full.",
		}),
		presenceFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gosocial_realtime_presence_persist_failures_total",
			Help: "Failures persisting the online flag.",
		}),
	}

	reg.MustRegister(
		m.connections,
		m.onlineUsers,
		m.handshakes,
		m.events,
		m.eventErrors,
		m.eventLatency,
		m.fanout,
		m.slowConsumers,
		m.presenceFails,
	)
	return m
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) setOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(n))
}

func (m *Metrics) handshake(result string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeEvent(event string, started time.Time) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
	m.eventLatency.WithLabelValues(event).Observe(time.Since(started).Seconds())
}

func (m *Metrics) eventError(event, reason string) {
	if m == nil {
		return
	}
	m.eventErrors.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) delivered(event string) {
	if m == nil {
		return
	}
	m.fanout.WithLabelValues(event, "ok").Inc()
}

func (m *Metrics) dropped(event, result string) {
	if m == nil {
		return
	}
	m.fanout.WithLabelValues(event, result).Inc()
}

func (m *Metrics) slowConsumer() {
	if m == nil {
		return
	}
	m.slowConsumers.Inc()
}

func (m *Metrics) presenceFailure() {
	if m == nil {
		return
	}
	m.presenceFails.Inc()
}
