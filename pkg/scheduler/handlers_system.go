package scheduler

import (
	"fmt"
	"time"

	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

func (s *Scheduler) handleWorkerAvailable(in transport.Inbound) {
	w := s.registerWorker(in.From)
	w.Clear()
	s.queuedWorkerOrder = append(s.queuedWorkerOrder, in.From)
	// No reply yet — the reply is the newtask sent later by
	// assignmentLoop, once a task is available for this worker.
}

func (s *Scheduler) handleWorkerHeartbeat(in transport.Inbound) {
	w := s.registerWorker(in.From)
	taskName, ok := stringField(in.Env.Data, "task_name")
	if !ok {
		types.Violatef("worker_heartbeat from %s missing task_name", in.From)
	}

	task, exists := s.runningTasks[taskName]
	if !exists || w.CurrentTask != taskName {
		types.Violatef("worker %s heartbeat for task %s it does not own", in.From, taskName)
	}

	w.LastHeartbeat = time.Now()
	metrics.HeartbeatsReceivedTotal.Inc()

	if task.State == types.TaskTerminating {
		metrics.TerminationsSentTotal.Inc()
		s.replySystem(in.From, types.HeartbeatTerminateMessage())
		return
	}
	s.replySystem(in.From, types.AckMessage())
}

func (s *Scheduler) handleWorkerComplete(in transport.Inbound) {
	w := s.registerWorker(in.From)
	taskName, ok := stringField(in.Env.Data, "task_name")
	if !ok {
		types.Violatef("worker_complete from %s missing task_name", in.From)
	}

	task, exists := s.runningTasks[taskName]
	if !exists || w.CurrentTask != taskName {
		types.Violatef("worker %s reported completion of task %s it does not own", in.From, taskName)
	}

	task.MarkCompleted()
	delete(s.runningTasks, taskName)
	w.Clear()
	s.replySystem(in.From, types.AckMessage())

	if job, ok := s.jobs[task.Job]; ok {
		s.tryReap(job)
	}
}

func (s *Scheduler) handleWorkerTerminate(in transport.Inbound) {
	w := s.registerWorker(in.From)
	taskName, ok := stringField(in.Env.Data, "task_name")
	if !ok {
		types.Violatef("worker_terminate from %s missing task_name", in.From)
	}
	rc, _ := intField(in.Env.Data, "returncode")

	task, exists := s.runningTasks[taskName]
	if !exists || w.CurrentTask != taskName {
		types.Violatef("worker %s reported termination of task %s it does not own", in.From, taskName)
	}

	task.MarkTerminated()
	delete(s.runningTasks, taskName)
	w.Clear()
	s.replySystem(in.From, types.AckMessage())

	job, ok := s.jobs[task.Job]
	if !ok {
		return
	}
	if job.State != types.JobTerminating {
		job.Info = fmt.Sprintf("Worker side error (%d)", rc)
		s.terminateJob(job)
	}
	s.tryReap(job)
}

func (s *Scheduler) handleJobComplete(in transport.Inbound) {
	name, ok := stringField(in.Env.Data, "job_name")
	if !ok {
		types.Violatef("job_complete from %s missing job_name", in.From)
	}
	job, exists := s.jobs[name]
	if !exists {
		types.Violatef("job_complete for unknown job %s", name)
	}

	job.HasCoordinatorProcess = false
	job.Info = "Completed (0)"
	metrics.CoordinatorExitsTotal.WithLabelValues("success").Inc()
	s.replySystem(in.From, types.AckMessage())
	s.tryReap(job)
}

func (s *Scheduler) handleJobTerminate(in transport.Inbound) {
	name, ok := stringField(in.Env.Data, "job_name")
	if !ok {
		types.Violatef("job_terminate from %s missing job_name", in.From)
	}
	rc, _ := intField(in.Env.Data, "returncode")
	job, exists := s.jobs[name]
	if !exists {
		types.Violatef("job_terminate for unknown job %s", name)
	}

	job.HasCoordinatorProcess = false
	job.Info = fmt.Sprintf("Terminated (%d)", rc)
	metrics.CoordinatorExitsTotal.WithLabelValues("failure").Inc()
	s.terminateJob(job)
	s.replySystem(in.From, types.AckMessage())
}
