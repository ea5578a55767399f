package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler table metrics
	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_jobs_total",
			Help: "Total number of jobs by state",
		},
		[]string{"state"},
	)

	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_tasks_total",
			Help: "Total number of tasks by state",
		},
		[]string{"state"},
	)

	WorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_workers_total",
			Help: "Total number of registered workers",
		},
	)

	SlotsAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_slots_available",
			Help: "Number of coordinator slots currently unclaimed",
		},
	)

	SlotsClaimed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_slots_claimed",
			Help: "Number of coordinator slots currently bound to a running job",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Admission and assignment metrics
	AdmissionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_admission_latency_seconds",
			Help:    "Time taken to admit a job once a slot is claimed: queue its tasks and start its coordinator runner",
			Buckets: prometheus.DefBuckets,
		},
	)

	AssignmentLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_assignment_latency_seconds",
			Help:    "Time taken to bind a queued task to an idle worker and send it newtask",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobsAdmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_admitted_total",
			Help: "Total number of jobs admitted (a slot claimed and a coordinator process started)",
		},
	)

	JobsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_reaped_total",
			Help: "Total number of jobs reaped (coordinator exited, all tasks terminal)",
		},
	)

	TasksAssignedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_assigned_total",
			Help: "Total number of tasks handed to an idle worker",
		},
	)

	// Heartbeat and cancellation metrics
	HeartbeatsReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_heartbeats_received_total",
			Help: "Total number of worker_heartbeat messages received",
		},
	)

	TerminationsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_terminations_sent_total",
			Help: "Total number of heartbeat_terminate replies sent",
		},
	)

	// Coordinator runner metrics
	CoordinatorStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_coordinator_start_duration_seconds",
			Help:    "Time taken to spawn and confirm a coordinator process",
			Buckets: prometheus.DefBuckets,
		},
	)

	CoordinatorExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_coordinator_exits_total",
			Help: "Total number of coordinator process exits by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(SlotsAvailable)
	prometheus.MustRegister(SlotsClaimed)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(AdmissionLatency)
	prometheus.MustRegister(AssignmentLatency)
	prometheus.MustRegister(JobsAdmittedTotal)
	prometheus.MustRegister(JobsReapedTotal)
	prometheus.MustRegister(TasksAssignedTotal)
	prometheus.MustRegister(HeartbeatsReceivedTotal)
	prometheus.MustRegister(TerminationsSentTotal)
	prometheus.MustRegister(CoordinatorStartDuration)
	prometheus.MustRegister(CoordinatorExitsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
