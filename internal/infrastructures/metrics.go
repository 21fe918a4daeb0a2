package infrastructures

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the checkout collectors on a dedicated registry.
type Metrics struct {
	Registry              *prometheus.Registry
	Settlements           *prometheus.CounterVec
	SettlementDuration    *prometheus.HistogramVec
	ReconcilerPolls       *prometheus.CounterVec
	ReconcilerResolutions *prometheus.CounterVec
	OutboxPublished       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gsalt",
		Subsystem: "checkout",
		Name:      "settlements_total",
		Help:      "Settlement attempts by payment rail and result.",
	}, []string{"rail", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gsalt",
		Subsystem: "checkout",
		Name:      "settlement_duration_seconds",
		Help:      "Time spent settling and materializing a purchase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"rail"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gsalt",
		Subsystem: "checkout",
		Name:      "reconciler_polls_total",
		Help:      "Gateway status polls by result.",
	}, []string{"result"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gsalt",
		Subsystem: "checkout",
		Name:      "reconciler_resolutions_total",
		Help:      "Resolved external payment references by status.",
	}, []string{"status", "replayed"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gsalt",
		Subsystem: "checkout",
		Name:      "outbox_messages_total",
		Help:      "Outbox relay publish results.",
	}, []string{"result"})

	registry.MustRegister(
		settlements, duration, polls, resolutions, outbox,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:              registry,
		Settlements:           settlements,
		SettlementDuration:    duration,
		ReconcilerPolls:       polls,
		ReconcilerResolutions: resolutions,
		OutboxPublished:       outbox,
	}
}
