/*
Package metrics defines and registers the scheduler's Prometheus
metrics and exposes them over HTTP for scraping.

# Metrics catalog

Table metrics (updated by pkg/scheduler's periodic collector):

  - scheduler_jobs_total{state}: jobs by lifecycle state
  - scheduler_tasks_total{state}: tasks by lifecycle state
  - scheduler_workers_total: registered workers
  - scheduler_slots_available / scheduler_slots_claimed: coordinator
    slot pool utilization

Event counters and latencies (updated inline by the handlers that
produce them):

  - scheduler_jobs_admitted_total / scheduler_jobs_reaped_total
  - scheduler_tasks_assigned_total
  - scheduler_admission_latency_seconds / scheduler_assignment_latency_seconds
  - scheduler_heartbeats_received_total / scheduler_terminations_sent_total
  - scheduler_coordinator_start_duration_seconds
  - scheduler_coordinator_exits_total{outcome}

API metrics (updated by pkg/scheduler for every API-channel request):

  - scheduler_api_requests_total{method,status}
  - scheduler_api_request_duration_seconds{method}

# Usage

	timer := metrics.NewTimer()
	// ... admit a job ...
	timer.ObserveDuration(metrics.AdmissionLatency)
	metrics.JobsAdmittedTotal.Inc()

	http.Handle("/metrics", metrics.Handler())

This package also exposes a small health-check registry
(RegisterComponent, GetHealth, GetReadiness) backing /health, /ready
and /live, independent of the Prometheus metrics above.
*/
package metrics
