package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: длительность диспетчеризации по типам действий
	DispatchDuration *prometheus.HistogramVec

	// Traffic: сколько действий прошло через движок
	ExecutionsTotal *prometheus.CounterVec

	// Errors: классификация отказов по коду
	FailuresTotal *prometheus.CounterVec

	// Saturation: заполненность очереди воркеров
	QueueDepth prometheus.Gauge

	// Состояние аварийного стопа (0 - снят, 1 - взведён)
	EmergencyStop prometheus.Gauge

	// Размер журнала исполнения
	HistorySize prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		DispatchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gestureflow_dispatch_duration_seconds",
			Help:    "Histogram of action dispatch latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"type"}),

		ExecutionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gestureflow_executions_total",
			Help: "Total number of dispatched actions.",
		}, []string{"type", "status"}),

		FailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gestureflow_failures_total",
			Help: "Total number of failures by error code.",
		}, []string{"code"}), // коды: VALIDATION_ERROR, EMERGENCY_STOP, EXECUTION_ERROR, none

		QueueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gestureflow_queue_depth",
			Help: "Current number of actions waiting in the execution queue.",
		}),

		EmergencyStop: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gestureflow_emergency_stop_engaged",
			Help: "Whether the emergency stop interlock is engaged (0/1).",
		}),

		HistorySize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gestureflow_history_size",
			Help: "Current number of entries in the execution history.",
		}),
	}
}
