// Package metrics exposes the daemon's Prometheus vectors, trimmed from the
// teacher's broader set down to what this system actually has: tasks,
// workers, queue depth, and HTTP request shape. No Redis/DLQ/WebSocket
// metrics exist here because those subsystems don't exist in this system.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ue_worker_pool_tasks_submitted_total",
			Help: "Total number of tasks submitted via POST /tasks",
		},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ue_worker_pool_tasks_completed_total",
			Help: "Total number of tasks reaching a terminal state",
		},
		[]string{"result"}, // completed|failed|canceled
	)

	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ue_worker_pool_task_duration_seconds",
			Help:    "Wall-clock time from task creation to completion",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16), // 1s to ~9h
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ue_worker_pool_queue_depth",
			Help: "Current number of tasks by status",
		},
		[]string{"status"},
	)

	WorkersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ue_worker_pool_workers_total",
			Help: "Current number of workers by status",
		},
		[]string{"status"},
	)

	ReconcileRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ue_worker_pool_reconcile_runs_total",
			Help: "Total number of reconciliation loop ticks executed",
		},
	)

	WorkerRespawns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ue_worker_pool_worker_respawns_total",
			Help: "Total number of workers spawned to replace a dead or missing slot",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ue_worker_pool_http_request_duration_seconds",
			Help:    "HTTP handler latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ue_worker_pool_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)
)

// RecordTaskSubmission increments the submitted-tasks counter.
func RecordTaskSubmission() {
	TasksSubmitted.Inc()
}

// RecordTaskCompletion increments the completed-tasks counter for result
// and observes the task's total duration.
func RecordTaskCompletion(result string, durationSeconds float64) {
	TasksCompleted.WithLabelValues(result).Inc()
	TaskDuration.Observe(durationSeconds)
}

// SetQueueDepth reports the current count of tasks in status.
func SetQueueDepth(status string, depth float64) {
	QueueDepth.WithLabelValues(status).Set(depth)
}

// SetWorkersTotal reports the current count of workers in status.
func SetWorkersTotal(status string, count float64) {
	WorkersTotal.WithLabelValues(status).Set(count)
}

// RecordHTTPRequest records one HTTP request's outcome and latency.
func RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}
