package scheduler

import "github.com/jirenz/dist-scheduler/pkg/types"

// archive holds jobs at the moment they're reaped so query_job can
// still find a just-completed run. Bounded: once capacity is
// exceeded the oldest entry is evicted. This is a read-only side
// table the reap routine writes to — it never feeds back into Jobs,
// QueuedJobs or any other live table.
type archive struct {
	capacity int
	order    []string
	jobs     map[string]*types.Job
}

func newArchive(capacity int) *archive {
	return &archive{capacity: capacity, jobs: make(map[string]*types.Job)}
}

func (a *archive) put(job *types.Job) {
	if _, exists := a.jobs[job.Name]; !exists {
		a.order = append(a.order, job.Name)
	}
	a.jobs[job.Name] = job
	for len(a.order) > a.capacity {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.jobs, oldest)
	}
}

func (a *archive) get(name string) (*types.Job, bool) {
	job, ok := a.jobs[name]
	return job, ok
}
