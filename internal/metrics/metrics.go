// Package metrics exports lifecycle counters and latencies to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

const namespace = "backoffice"

type Recorder struct {
	operations    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	compensations *prometheus.CounterVec
	reconciles    *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Lifecycle operations by entity kind, operation and result.",
		}, []string{"kind", "operation", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of lifecycle operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "operation"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "compensations_total",
			Help:      "Compensating identity provider deletes after a failed local insert.",
		}, []string{"kind", "result"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "reconciliation_tasks_total",
			Help:      "Reconciliation tasks recorded for the outbox worker.",
		}, []string{"kind", "type"}),
	}

	reg.MustRegister(r.operations, r.durations, r.compensations, r.reconciles)
	return r
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (r *Recorder) ObserveOperation(_ context.Context, kind domain.Kind, op string, err error, d time.Duration) {
	r.operations.WithLabelValues(string(kind), op, result(err == nil)).Inc()
	r.durations.WithLabelValues(string(kind), op).Observe(d.Seconds())
}

func (r *Recorder) ObserveCompensation(_ context.Context, kind domain.Kind, ok bool) {
	r.compensations.WithLabelValues(string(kind), result(ok)).Inc()
}

func (r *Recorder) ObserveReconciliation(_ context.Context, kind domain.Kind, taskType string) {
	r.reconciles.WithLabelValues(string(kind), taskType).Inc()
}
