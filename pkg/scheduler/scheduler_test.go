package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

func newTestScheduler(t *testing.T, slots []types.Slot, binary string) *Scheduler {
	t.Helper()
	s, err := New(Config{
		APIAddr:           "127.0.0.1:0",
		SystemAddr:        "127.0.0.1:0",
		Slots:             slots,
		CoresPerWorker:    1,
		CoordinatorBinary: binary,
	}, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func assignJobEnv(name, folder, inputFile string, numWorkers int) types.Envelope {
	return types.Envelope{
		Type: types.MsgAssignJob,
		Data: map[string]any{
			"context_name":   name,
			"context_folder": folder,
			"input_file":     inputFile,
			"num_workers":    numWorkers,
		},
	}
}

func TestHandleAssignJobDuplicateRejected(t *testing.T) {
	s := newTestScheduler(t, nil, "true")
	in := transport.Inbound{From: "client-1", Env: assignJobEnv("f", "/j", "a.in", 1)}

	s.handleAssignJob(in)
	require.Contains(t, s.jobs, "f")
	require.Equal(t, []string{"f"}, s.queuedJobNames)

	s.handleAssignJob(in)
	require.Len(t, s.queuedJobNames, 1, "a duplicate assign_job must not re-queue the job")
}

func TestHandleAssignJobMissingFieldsNoStateChange(t *testing.T) {
	s := newTestScheduler(t, nil, "true")
	in := transport.Inbound{From: "client-1", Env: types.Envelope{
		Type: types.MsgAssignJob,
		Data: map[string]any{"context_name": "g"},
	}}

	s.handleAssignJob(in)
	require.Empty(t, s.jobs)
	require.Empty(t, s.queuedJobNames)
}

func TestTerminateQueuedJobLeavesSlotPoolUnchanged(t *testing.T) {
	s := newTestScheduler(t, []types.Slot{{Host: "h", Port: 5000}}, "true")
	s.handleAssignJob(transport.Inbound{From: "c", Env: assignJobEnv("c-job", "/j", "a.in", 1)})
	require.Equal(t, 1, s.slots.Len())

	job := s.jobs["c-job"]
	s.handleDeleteJob(transport.Inbound{From: "c", Env: types.Envelope{
		Type: types.MsgDeleteJob,
		Data: map[string]any{"job_name": "c-job"},
	}})

	require.NotContains(t, s.jobs, "c-job")
	require.Empty(t, s.queuedJobNames)
	require.Equal(t, 1, s.slots.Len(), "slot pool must be untouched by deleting a never-admitted job")
	require.Equal(t, types.TaskTerminated, job.Tasks[0].State)
}

func TestAdmissionLoopQueuesTasksAndStartsRunner(t *testing.T) {
	s := newTestScheduler(t, []types.Slot{{Host: "127.0.0.1", Port: 14000}}, "true")
	s.ctx = context.Background()

	s.handleAssignJob(transport.Inbound{From: "c", Env: assignJobEnv("j1", t.TempDir(), "scene.in", 2)})
	s.admissionLoop()

	job := s.jobs["j1"]
	require.Equal(t, types.JobRunning, job.State)
	require.True(t, job.HasCoordinatorProcess)
	require.Equal(t, 0, s.slots.Len())
	require.Len(t, s.queuedTasks, 2)
	require.Contains(t, s.slotRunnerMap, types.Slot{Host: "127.0.0.1", Port: 14000})
}

func TestAssignmentLoopBindsLIFO(t *testing.T) {
	s := newTestScheduler(t, nil, "true")
	job := types.NewJob("j2", "/j", "a.in", 2, 1)
	s.jobs[job.Name] = job
	for _, task := range job.Tasks {
		task.Slot = types.Slot{Host: "h", Port: 1}
		task.MarkQueued()
		s.queuedTasks = append(s.queuedTasks, task)
	}
	s.registerWorker("w1")
	s.registerWorker("w2")
	s.queuedWorkerOrder = []transport.Identity{"w1", "w2"}

	s.assignmentLoop()

	require.Empty(t, s.queuedTasks)
	require.Empty(t, s.queuedWorkerOrder)
	require.Equal(t, "j2-1", s.workers["w2"].CurrentTask, "LIFO pop must bind the most recently queued worker first")
	require.Len(t, s.runningTasks, 2)
}

func TestHandleWorkerHeartbeatMismatchViolates(t *testing.T) {
	s := newTestScheduler(t, nil, "true")
	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*types.InvariantViolation)
		require.True(t, ok)
	}()
	s.handleWorkerHeartbeat(transport.Inbound{From: "ghost", Env: types.Envelope{
		Type: types.MsgWorkerHeartbeat,
		Data: map[string]any{"task_name": "nope"},
	}})
}

func TestQueryJobFallsBackToArchive(t *testing.T) {
	s := newTestScheduler(t, nil, "true")
	job := types.NewJob("archived", "/j", "a.in", 1, 1)
	job.MarkQueued()
	job.MarkRunning()
	job.Tasks[0].Slot = types.Slot{Host: "h", Port: 1}
	job.Tasks[0].MarkQueued()
	job.Tasks[0].MarkRunning()
	job.Tasks[0].MarkCompleted()
	job.HasCoordinatorProcess = false
	s.jobs[job.Name] = job
	s.tryReap(job)
	require.NotContains(t, s.jobs, job.Name)

	detailJob, ok := s.archive.get("archived")
	require.True(t, ok)
	require.Equal(t, "archived", detailJob.Name)
}

// TestHappyPathAdmitAssignCompleteReap drives a full scheduler over
// real TCP connections: one job, one worker, a coordinator binary
// that exits 0 immediately. Mirrors the single-worker slice of
// scenario S1.
func TestHappyPathAdmitAssignCompleteReap(t *testing.T) {
	s := newTestScheduler(t, []types.Slot{{Host: "127.0.0.1", Port: 15000}}, "true")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	apiClient, err := transport.Dial(s.APIAddr(), "")
	require.NoError(t, err)
	defer apiClient.Close()

	require.NoError(t, apiClient.Send(assignJobEnv("happy", t.TempDir(), "scene.in", 1)))
	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	reply, err := apiClient.Recv(recvCtx)
	recvCancel()
	require.NoError(t, err)
	require.Equal(t, types.MsgSuccess, reply.Type)

	worker, err := transport.Dial(s.SystemAddr(), "")
	require.NoError(t, err)
	defer worker.Close()

	require.NoError(t, worker.Send(types.Envelope{Type: types.MsgWorkerAvailable, Data: map[string]any{}}))

	recvCtx, recvCancel = context.WithTimeout(context.Background(), 2*time.Second)
	task, err := worker.Recv(recvCtx)
	recvCancel()
	require.NoError(t, err)
	require.Equal(t, types.MsgNewTask, task.Type)
	require.Equal(t, "happy", task.Data["job_name"])

	taskName := task.Data["name"].(string)
	require.NoError(t, worker.Send(types.Envelope{Type: types.MsgWorkerComplete, Data: map[string]any{"task_name": taskName}}))

	recvCtx, recvCancel = context.WithTimeout(context.Background(), 2*time.Second)
	ack, err := worker.Recv(recvCtx)
	recvCancel()
	require.NoError(t, err)
	require.Equal(t, types.MsgAck, ack.Type)

	require.Eventually(t, func() bool {
		return s.Snapshot().SlotsFree == 1
	}, 3*time.Second, 20*time.Millisecond, "job should be reaped and slot released once the coordinator reports completion")

	cancel()
	<-done
}
