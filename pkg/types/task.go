package types

import (
	"strconv"
	"time"
)

// TaskState is a task's position in its lifecycle: initialized ->
// queued -> running -> completed, or any non-terminal state ->
// terminating -> terminated. terminating -> terminated is idempotent.
type TaskState string

const (
	TaskInitialized TaskState = "initialized"
	TaskQueued      TaskState = "queued"
	TaskRunning     TaskState = "running"
	TaskCompleted   TaskState = "completed"
	TaskTerminating TaskState = "terminating"
	TaskTerminated  TaskState = "terminated"
)

// Task is one worker's participation in a Job.
type Task struct {
	Name  string
	Job   string // owning job's name
	State TaskState
	Slot  Slot // inherited from the owning job at queueing time

	QueuedAt     time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	TerminatedAt time.Time
}

// NewTask constructs a task in the initialized state, named
// "{job}-{index}".
func NewTask(job string, index int) *Task {
	return &Task{
		Name:  taskName(job, index),
		Job:   job,
		State: TaskInitialized,
	}
}

func taskName(job string, index int) string {
	return job + "-" + strconv.Itoa(index)
}

// MarkQueued transitions initialized -> queued.
func (t *Task) MarkQueued() {
	if t.State != TaskInitialized {
		Violatef("task %s: cannot queue from state %s", t.Name, t.State)
	}
	t.State = TaskQueued
	t.QueuedAt = time.Now()
}

// MarkRunning transitions queued -> running.
func (t *Task) MarkRunning() {
	if t.State != TaskQueued {
		Violatef("task %s: cannot start from state %s", t.Name, t.State)
	}
	t.State = TaskRunning
	t.StartedAt = time.Now()
}

// MarkCompleted transitions running -> completed, on a worker_complete
// report.
func (t *Task) MarkCompleted() {
	if t.State != TaskRunning {
		Violatef("task %s: cannot complete from state %s", t.Name, t.State)
	}
	t.State = TaskCompleted
	t.CompletedAt = time.Now()
}

// MarkTerminating transitions any non-terminal state to terminating.
// Idempotent: a repeat call while already terminating/terminated is a
// no-op.
func (t *Task) MarkTerminating() {
	if t.State != TaskTerminating && t.State != TaskTerminated {
		t.State = TaskTerminating
		t.TerminatedAt = time.Now()
	}
}

// MarkTerminated transitions to terminated. Idempotent.
func (t *Task) MarkTerminated() {
	if t.State != TaskTerminated {
		t.State = TaskTerminated
		t.TerminatedAt = time.Now()
	}
}

// NewTaskPayload builds the payload of the newtask message sent to the
// worker bound to this task. The owning job supplies the
// context/input fields; the task supplies its own name and inherited
// slot.
func (t *Task) NewTaskPayload(job *Job) map[string]any {
	return map[string]any{
		"name":           t.Name,
		"context_folder": job.ContextFolder,
		"input_file":     job.InputFile,
		"context_name":   job.Name,
		"host":           t.Slot.Host,
		"port":           t.Slot.Port,
		"job_name":       job.Name,
	}
}

// TaskDetail is the projection returned by query_job.
type TaskDetail struct {
	Name         string     `json:"name" yaml:"name"`
	State        string     `json:"state" yaml:"state"`
	QueuedAt     *time.Time `json:"queued_at,omitempty" yaml:"queued_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty" yaml:"terminated_at,omitempty"`
}

// Detail is the pure projection of a task's current fields used by
// query_job.
func (t *Task) Detail() TaskDetail {
	d := TaskDetail{Name: t.Name, State: string(t.State)}
	if !t.QueuedAt.IsZero() {
		d.QueuedAt = &t.QueuedAt
	}
	if !t.StartedAt.IsZero() {
		d.StartedAt = &t.StartedAt
	}
	if !t.CompletedAt.IsZero() {
		d.CompletedAt = &t.CompletedAt
	}
	if !t.TerminatedAt.IsZero() {
		d.TerminatedAt = &t.TerminatedAt
	}
	return d
}
