package types

import "time"

// JobState is a job's position in its lifecycle.
type JobState string

const (
	JobInitialized JobState = "initialized"
	JobQueued      JobState = "queued"
	JobRunning     JobState = "running"
	JobTerminating JobState = "terminating"
)

// Job is a cooperative compute session: one coordinator process plus
// NumWorkers task processes.
type Job struct {
	Name string // globally unique across live jobs

	// Immutable inputs
	ContextFolder  string
	InputFile      string
	NumWorkers     int
	CoresPerWorker int

	// Assigned at admission
	Slot *Slot

	// Mutable
	State                 JobState
	QueuedAt              time.Time
	StartedAt             time.Time
	TerminatedAt          time.Time
	Info                  string
	HasCoordinatorProcess bool

	Tasks []*Task
}

// NewJob constructs a job with numWorkers tasks, all initialized.
func NewJob(name, contextFolder, inputFile string, numWorkers, coresPerWorker int) *Job {
	j := &Job{
		Name:           name,
		ContextFolder:  contextFolder,
		InputFile:      inputFile,
		NumWorkers:     numWorkers,
		CoresPerWorker: coresPerWorker,
		State:          JobInitialized,
	}
	j.Tasks = make([]*Task, numWorkers)
	for i := 0; i < numWorkers; i++ {
		j.Tasks[i] = NewTask(name, i)
	}
	return j
}

// MarkQueued transitions initialized -> queued.
func (j *Job) MarkQueued() {
	if j.State != JobInitialized {
		Violatef("job %s: cannot queue from state %s", j.Name, j.State)
	}
	j.State = JobQueued
	j.QueuedAt = time.Now()
}

// MarkRunning transitions queued -> running.
func (j *Job) MarkRunning() {
	if j.State != JobQueued {
		Violatef("job %s: cannot start from state %s", j.Name, j.State)
	}
	j.State = JobRunning
	j.StartedAt = time.Now()
}

// MarkTerminating transitions to terminating. Idempotent.
func (j *Job) MarkTerminating() {
	if j.State != JobTerminating {
		j.State = JobTerminating
		j.TerminatedAt = time.Now()
	}
}

// CountByState returns the number of tasks currently in the given state.
func (j *Job) CountByState(s TaskState) int {
	n := 0
	for _, t := range j.Tasks {
		if t.State == s {
			n++
		}
	}
	return n
}

// AllTasksTerminal reports whether every task has reached completed or
// terminated — half of the job reap predicate.
func (j *Job) AllTasksTerminal() bool {
	for _, t := range j.Tasks {
		if t.State != TaskCompleted && t.State != TaskTerminated {
			return false
		}
	}
	return true
}

// JobSummary is the projection returned by query_jobs.
type JobSummary struct {
	Name             string `json:"name" yaml:"name"`
	State            string `json:"state" yaml:"state"`
	QueuedTasks      int    `json:"queued_tasks" yaml:"queued_tasks"`
	RunningTasks     int    `json:"running_tasks" yaml:"running_tasks"`
	CompletedTasks   int    `json:"completed_tasks" yaml:"completed_tasks"`
	TerminatingTasks int    `json:"terminating_tasks" yaml:"terminating_tasks"`
	TerminatedTasks  int    `json:"terminated_tasks" yaml:"terminated_tasks"`
	TotalTasks       int    `json:"total_tasks" yaml:"total_tasks"`
	Info             string `json:"info" yaml:"info"`
}

// Summary is the pure projection used by query_jobs.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		Name:             j.Name,
		State:            string(j.State),
		QueuedTasks:      j.CountByState(TaskQueued),
		RunningTasks:     j.CountByState(TaskRunning),
		CompletedTasks:   j.CountByState(TaskCompleted),
		TerminatingTasks: j.CountByState(TaskTerminating),
		TerminatedTasks:  j.CountByState(TaskTerminated),
		TotalTasks:       len(j.Tasks),
		Info:             j.Info,
	}
}

// JobDetail is the projection returned by query_job.
type JobDetail struct {
	JobSummary    `yaml:",inline"`
	ContextFolder string       `json:"context_folder" yaml:"context_folder"`
	InputFile     string       `json:"input_file" yaml:"input_file"`
	QueuedAt      *time.Time   `json:"queued_at,omitempty" yaml:"queued_at,omitempty"`
	StartedAt     *time.Time   `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	TerminatedAt  *time.Time   `json:"terminated_at,omitempty" yaml:"terminated_at,omitempty"`
	Tasks         []TaskDetail `json:"tasks" yaml:"tasks"`
}

// Detail is the pure projection used by query_job.
func (j *Job) Detail() JobDetail {
	d := JobDetail{
		JobSummary:    j.Summary(),
		ContextFolder: j.ContextFolder,
		InputFile:     j.InputFile,
	}
	if !j.QueuedAt.IsZero() {
		d.QueuedAt = &j.QueuedAt
	}
	if !j.StartedAt.IsZero() {
		d.StartedAt = &j.StartedAt
	}
	if !j.TerminatedAt.IsZero() {
		d.TerminatedAt = &j.TerminatedAt
	}
	d.Tasks = make([]TaskDetail, len(j.Tasks))
	for i, t := range j.Tasks {
		d.Tasks[i] = t.Detail()
	}
	return d
}
