package scheduler

import (
	"github.com/jirenz/dist-scheduler/pkg/coordinator"
	"github.com/jirenz/dist-scheduler/pkg/log"
	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// admissionLoop claims a slot (LIFO) for the oldest queued job (FIFO)
// until either pool is empty, starting one coordinator runner per
// admitted job.
func (s *Scheduler) admissionLoop() {
	for s.slots.Len() > 0 && len(s.queuedJobNames) > 0 {
		slot := s.slots.Claim()
		name := s.queuedJobNames[0]
		s.queuedJobNames = s.queuedJobNames[1:]

		job := s.jobs[name]
		timer := metrics.NewTimer()

		job.Slot = &slot
		job.MarkRunning()
		job.HasCoordinatorProcess = true
		for _, t := range job.Tasks {
			t.Slot = slot
			t.MarkQueued()
			s.queuedTasks = append(s.queuedTasks, t)
		}

		runner := coordinator.NewRunner(job, slot, s.systemAddr, coordinator.Config{
			CoordinatorBinary: s.coordinatorBinary,
		}, log.WithJobName(job.Name))
		s.slotRunnerMap[slot] = runner
		runner.Start(s.ctx)

		timer.ObserveDuration(metrics.AdmissionLatency)
		metrics.JobsAdmittedTotal.Inc()

		s.log.Info().Str("job_name", job.Name).Str("slot", slot.String()).Msg("scheduler: admitted job")
	}
}

// assignmentLoop binds a queued worker (LIFO) to a queued task (LIFO)
// until either pool is empty, dispatching newtask to the worker's
// stashed return address.
func (s *Scheduler) assignmentLoop() {
	for len(s.queuedWorkerOrder) > 0 && len(s.queuedTasks) > 0 {
		wIdx := len(s.queuedWorkerOrder) - 1
		identity := s.queuedWorkerOrder[wIdx]
		s.queuedWorkerOrder = s.queuedWorkerOrder[:wIdx]

		tIdx := len(s.queuedTasks) - 1
		task := s.queuedTasks[tIdx]
		s.queuedTasks = s.queuedTasks[:tIdx]

		timer := metrics.NewTimer()

		w := s.workers[identity]
		w.CurrentTask = task.Name
		task.MarkRunning()
		s.runningTasks[task.Name] = task

		job := s.jobs[task.Job]
		s.replySystem(identity, types.Envelope{Type: types.MsgNewTask, Data: task.NewTaskPayload(job)})

		timer.ObserveDuration(metrics.AssignmentLatency)
		metrics.TasksAssignedTotal.Inc()

		s.log.Info().Str("task_name", task.Name).Str("worker", string(identity)).Msg("scheduler: assigned task")
	}
}
