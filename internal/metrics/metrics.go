package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: время обработки запросов Console API
	RequestDuration *prometheus.HistogramVec

	// Изменения коллекций: kind, op (create/update/status/delete), result (ok/invalid/not_found/error)
	Mutations *prometheus.CounterVec

	// Размер коллекций после последнего изменения
	Entities *prometheus.GaugeVec

	// Проверки интеграций: результат по статусу
	IntegrationChecks  *prometheus.CounterVec
	IntegrationLatency *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker хранилища (0 - closed, 1 - half-open, 2 - open)
	StorageBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge

	// Сигналы от других инстансов консоли
	ReloadsTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если реестр не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_request_duration_seconds",
			Help:    "Histogram of Console API request latencies.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route", "code"}),

		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_entity_mutations_total",
			Help: "Total number of collection mutations by result.",
		}, []string{"kind", "op", "result"}),

		Entities: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_entities",
			Help: "Current number of records per collection.",
		}, []string{"kind"}),

		IntegrationChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_integration_checks_total",
			Help: "Total number of integration health probes by resulting status.",
		}, []string{"kind", "status"}),

		IntegrationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_integration_probe_seconds",
			Help:    "Latency of integration health probes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		StorageBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_storage_circuit_breaker_state",
			Help: "Current state of the storage circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"breaker"}),

		AuditBufferFill: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),

		ReloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_collection_reloads_total",
			Help: "Collections reloaded after a change signal from another instance.",
		}, []string{"kind", "result"}),
	}
}
