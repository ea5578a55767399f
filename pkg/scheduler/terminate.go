package scheduler

import (
	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// terminateJob is idempotent with respect to terminal states: calling
// it again on an already-terminating job leaves every table
// unchanged beyond the no-op MarkTerminating/MarkTerminated calls.
func (s *Scheduler) terminateJob(job *types.Job) {
	if job.State == types.JobQueued {
		s.removeQueuedJob(job.Name)
	}
	if job.State == types.JobRunning && job.Slot != nil {
		if runner, ok := s.slotRunnerMap[*job.Slot]; ok {
			runner.Terminate()
		}
	}

	job.MarkTerminating()

	for _, t := range job.Tasks {
		switch t.State {
		case types.TaskQueued:
			s.removeQueuedTask(t.Name)
			t.MarkTerminated()
		case types.TaskRunning:
			// The worker observes this via its next heartbeat and
			// stops the child; worker_terminate/worker_complete
			// completes the transition.
			t.MarkTerminating()
		case types.TaskTerminating:
			// leave — already in flight
		default:
			t.MarkTerminated()
		}
	}

	s.tryReap(job)
}

func (s *Scheduler) removeQueuedJob(name string) {
	for i, n := range s.queuedJobNames {
		if n == name {
			s.queuedJobNames = append(s.queuedJobNames[:i], s.queuedJobNames[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) removeQueuedTask(name string) {
	for i, t := range s.queuedTasks {
		if t.Name == name {
			s.queuedTasks = append(s.queuedTasks[:i], s.queuedTasks[i+1:]...)
			return
		}
	}
}

// tryReap removes job from Jobs and releases its slot once
// has_coordinator_process is false and every task has reached a
// terminal state. Safe to call after any state change that might
// satisfy the predicate. A job whose coordinator exits without ever
// reporting job_complete or job_terminate keeps
// HasCoordinatorProcess set and is never reaped; there is no
// coordinator-side heartbeat to detect that case.
func (s *Scheduler) tryReap(job *types.Job) {
	if job.HasCoordinatorProcess || !job.AllTasksTerminal() {
		return
	}

	if job.Slot != nil {
		slot := *job.Slot
		delete(s.slotRunnerMap, slot)
		s.slots.Release(slot)
		job.Slot = nil
	}

	delete(s.jobs, job.Name)
	s.archive.put(job)
	metrics.JobsReapedTotal.Inc()

	s.log.Info().Str("job_name", job.Name).Msg("scheduler: reaped job")
}
