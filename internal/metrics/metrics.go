// Package metrics exposes Prometheus collectors for the job engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/store"
)

var (
	jobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_enqueued_total",
		Help: "Jobs that entered the queued state, including retries.",
	}, []string{"type"})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_completed_total",
		Help: "Jobs that finished successfully.",
	}, []string{"type"})

	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_failed_total",
		Help: "Jobs that reached the failed state, including ones later requeued.",
	}, []string{"type"})

	jobsRequeued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_requeued_total",
		Help: "Failed jobs that were requeued for retry.",
	}, []string{"type"})

	// AvailableSeats mirrors the seat counter as observed by the API.
	AvailableSeats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "available_seats",
		Help: "Last observed value of the seat counter.",
	})
)

// Observe is a store.Listener feeding the job counters.
func Observe(ev store.Event) {
	switch ev.To {
	case domain.Queued:
		if ev.From == domain.Failed {
			jobsRequeued.WithLabelValues(ev.Type).Inc()
		}
		jobsEnqueued.WithLabelValues(ev.Type).Inc()
	case domain.Complete:
		jobsCompleted.WithLabelValues(ev.Type).Inc()
	case domain.Failed:
		jobsFailed.WithLabelValues(ev.Type).Inc()
	}
}
