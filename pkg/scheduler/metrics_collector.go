package scheduler

import (
	"context"
	"time"

	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// MetricsCollector ticks on its own goroutine and copies Scheduler
// table sizes into the Prometheus gauges. It never touches scheduler
// state directly — Snapshot is the only thing it calls — so it
// cannot violate the event loop's single-writer invariant.
type MetricsCollector struct {
	scheduler *Scheduler
	interval  time.Duration
}

// NewMetricsCollector builds a collector that samples every 15
// seconds.
func NewMetricsCollector(s *Scheduler) *MetricsCollector {
	return &MetricsCollector{scheduler: s, interval: 15 * time.Second}
}

// Run blocks, sampling until ctx is cancelled.
func (c *MetricsCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *MetricsCollector) collect() {
	snap := c.scheduler.Snapshot()

	for _, state := range []types.JobState{types.JobInitialized, types.JobQueued, types.JobRunning, types.JobTerminating} {
		metrics.JobsTotal.WithLabelValues(string(state)).Set(float64(snap.JobsByState[state]))
	}
	for _, state := range []types.TaskState{
		types.TaskInitialized, types.TaskQueued, types.TaskRunning,
		types.TaskCompleted, types.TaskTerminating, types.TaskTerminated,
	} {
		metrics.TasksTotal.WithLabelValues(string(state)).Set(float64(snap.TasksByState[state]))
	}
	metrics.WorkersTotal.Set(float64(snap.Workers))
	metrics.SlotsAvailable.Set(float64(snap.SlotsFree))
	metrics.SlotsClaimed.Set(float64(snap.SlotsClaimed))
}
