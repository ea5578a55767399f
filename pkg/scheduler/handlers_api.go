package scheduler

import (
	"fmt"
	"sort"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

func (s *Scheduler) handleAssignJob(in transport.Inbound) {
	data := in.Env.Data
	if missing := requireFields(data, "context_name", "context_folder", "input_file", "num_workers"); len(missing) > 0 {
		s.replyAPI(in.From, types.ErrorMessage("missing required fields", missing...))
		return
	}

	name, _ := stringField(data, "context_name")
	folder, _ := stringField(data, "context_folder")
	inputFile, _ := stringField(data, "input_file")
	numWorkers, ok := intField(data, "num_workers")
	if !ok || numWorkers < 1 {
		s.replyAPI(in.From, types.ErrorMessage("num_workers must be a positive integer", "num_workers"))
		return
	}

	if _, exists := s.jobs[name]; exists {
		s.replyAPI(in.From, types.ErrorMessage(fmt.Sprintf("Duplicate job %s", name)))
		return
	}

	job := types.NewJob(name, folder, inputFile, numWorkers, s.coresPerWorker)
	job.MarkQueued()
	s.jobs[name] = job
	s.queuedJobNames = append(s.queuedJobNames, name)

	s.replyAPI(in.From, types.SuccessMessage(nil))
}

func (s *Scheduler) handleDeleteJob(in transport.Inbound) {
	if missing := requireFields(in.Env.Data, "job_name"); len(missing) > 0 {
		s.replyAPI(in.From, types.ErrorMessage("missing required fields", missing...))
		return
	}
	name, _ := stringField(in.Env.Data, "job_name")

	job, ok := s.jobs[name]
	if !ok {
		s.replyAPI(in.From, types.ErrorMessage(fmt.Sprintf("unknown job %s", name)))
		return
	}

	job.Info = "Terminated by User"
	s.terminateJob(job)
	s.replyAPI(in.From, types.SuccessMessage(nil))
}

func (s *Scheduler) handleQueryJobs(in transport.Inbound) {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]types.JobSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, s.jobs[name].Summary())
	}
	s.replyAPI(in.From, types.SuccessMessage(map[string]any{"jobs": summaries}))
}

func (s *Scheduler) handleQueryJob(in transport.Inbound) {
	if missing := requireFields(in.Env.Data, "job_name"); len(missing) > 0 {
		s.replyAPI(in.From, types.ErrorMessage("missing required fields", missing...))
		return
	}
	name, _ := stringField(in.Env.Data, "job_name")

	if job, ok := s.jobs[name]; ok {
		s.replyAPI(in.From, types.SuccessMessage(map[string]any{"detail": job.Detail()}))
		return
	}
	if job, ok := s.archive.get(name); ok {
		s.replyAPI(in.From, types.SuccessMessage(map[string]any{"detail": job.Detail()}))
		return
	}
	s.replyAPI(in.From, types.ErrorMessage(fmt.Sprintf("unknown job %s", name)))
}

func (s *Scheduler) handleQueryWorkers(in transport.Inbound) {
	ids := make([]string, 0, len(s.workers))
	for id := range s.workers {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	details := make([]types.WorkerDetail, 0, len(ids))
	for _, id := range ids {
		details = append(details, s.workers[transport.Identity(id)].Detail())
	}
	s.replyAPI(in.From, types.SuccessMessage(map[string]any{"workers": details}))
}
