package obs

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	SessionsTotal  *prometheus.CounterVec // status=created|completed
	SessionsActive prometheus.Gauge

	QuotaDeniedTotal *prometheus.CounterVec // scope=user|ip

	StoreOpLatencyMS *prometheus.HistogramVec // op=set|get|del|quota

	StreamsActive prometheus.Gauge
	TicksTotal    prometheus.Counter
	ExpiredTotal  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_total",
				Help: "Total sessions by lifecycle event",
			},
			[]string{"status"},
		),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of currently active sessions",
		}),
		QuotaDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quota_denied_total",
				Help: "Total admission denials by scope",
			},
			[]string{"scope"},
		),
		StoreOpLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_op_latency_ms",
				Help:    "Latency of shared store operations (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms .. ~2048ms
			},
			[]string{"op"},
		),
		StreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timer_streams_active",
			Help: "Number of open countdown subscriptions",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timer_ticks_total",
			Help: "Total countdown ticks emitted",
		}),
		ExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timer_expired_total",
			Help: "Total expiry events emitted by the countdown broadcaster",
		}),
	}

	reg.MustRegister(
		m.SessionsTotal,
		m.SessionsActive,
		m.QuotaDeniedTotal,
		m.StoreOpLatencyMS,
		m.StreamsActive,
		m.TicksTotal,
		m.ExpiredTotal,
	)

	return m
}
