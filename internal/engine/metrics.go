package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: длительность полного цикла опроса
	PollDuration prometheus.Histogram

	// Traffic: сколько циклов прошло (по исходу)
	PollsTotal *prometheus.CounterVec

	// Errors: классификация сбоев внутри цикла
	FetchErrors *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState prometheus.Gauge

	// Текущее операционное состояние
	ActiveAlerts  prometheus.Gauge
	OpenIncidents prometheus.Gauge

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		PollDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetmon_poll_duration_seconds",
			Help:    "Histogram of poll cycle durations.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		PollsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fleetmon_polls_total",
			Help: "Total number of poll cycles by outcome.",
		}, []string{"outcome"}), // ok | failed | skipped

		FetchErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fleetmon_fetch_errors_total",
			Help: "Total number of per-step errors inside poll cycles.",
		}, []string{"step"}), // services | metrics | probe | usage | persist

		CircuitBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fleetmon_circuit_breaker_state",
			Help: "Current state of the fleet API circuit breaker (0=closed, 1=open).",
		}),

		ActiveAlerts: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fleetmon_active_alerts",
			Help: "Number of non-resolved alerts.",
		}),

		OpenIncidents: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fleetmon_open_incidents",
			Help: "Number of non-resolved incidents.",
		}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fleetmon_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),
	}
}
