package types

import "time"

// Worker is a registered worker node. Its identity is the transport
// return address supplied by the message layer — the first
// worker-originated message from an unseen address implicitly
// registers a Worker record.
type Worker struct {
	Name          string // transport identity
	CurrentTask   string // "" when idle
	LastHeartbeat time.Time
}

// NewWorker registers a worker under the given transport identity.
func NewWorker(name string) *Worker {
	return &Worker{Name: name}
}

// Clear marks a worker idle, used on worker_complete/worker_terminate.
func (w *Worker) Clear() {
	w.CurrentTask = ""
}

// WorkerDetail is the projection returned by query_workers.
type WorkerDetail struct {
	Name          string     `json:"name" yaml:"name"`
	Task          string     `json:"task" yaml:"task"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty" yaml:"last_heartbeat,omitempty"`
}

// Detail is the pure projection used by query_workers.
func (w *Worker) Detail() WorkerDetail {
	d := WorkerDetail{Name: w.Name, Task: w.CurrentTask}
	if !w.LastHeartbeat.IsZero() {
		d.LastHeartbeat = &w.LastHeartbeat
	}
	return d
}
