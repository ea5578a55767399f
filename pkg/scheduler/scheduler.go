package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jirenz/dist-scheduler/pkg/coordinator"
	"github.com/jirenz/dist-scheduler/pkg/log"
	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// Config controls a Scheduler's listen addresses, slot pool and
// scheduler-wide constants. cores_per_worker is a scheduler-wide
// constant rather than a per-job parameter — worker resource
// heterogeneity is explicitly out of scope.
type Config struct {
	APIAddr           string
	SystemAddr        string
	Slots             []types.Slot
	CoresPerWorker    int
	CoordinatorBinary string

	// ArchiveCapacity bounds the terminal-job archive. Defaults to 200.
	ArchiveCapacity int
}

// Scheduler owns every table in §3 of the design and mutates them only
// from the Run goroutine.
type Scheduler struct {
	apiSrv     *transport.Server
	sysSrv     *transport.Server
	systemAddr string

	coresPerWorker    int
	coordinatorBinary string

	jobs              map[string]*types.Job
	queuedJobNames    []string // FIFO: append to end, pop from front
	queuedTasks       []*types.Task
	queuedWorkerOrder []transport.Identity // LIFO: append to end, pop from end
	runningTasks      map[string]*types.Task
	slots             *types.SlotPool
	slotRunnerMap     map[types.Slot]*coordinator.Runner
	workers           map[transport.Identity]*types.Worker
	archive           *archive

	snapMu sync.Mutex
	snap   Snapshot

	// apiMethod is the in-flight API request's message type, set by
	// handleAPI before dispatch so replyAPI can label the metrics it
	// records without threading the type through every handler.
	apiMethod string

	ctx context.Context
	log zerolog.Logger
}

// New starts both transport servers and returns a Scheduler ready for
// Run. The API and system channels are independent TCP endpoints; a
// listen failure on either tears the other down.
func New(cfg Config, logger zerolog.Logger) (*Scheduler, error) {
	apiSrv, err := transport.Listen(cfg.APIAddr, log.WithComponent("transport").With().Str("channel", "api").Logger())
	if err != nil {
		return nil, fmt.Errorf("scheduler: start api channel: %w", err)
	}
	sysSrv, err := transport.Listen(cfg.SystemAddr, log.WithComponent("transport").With().Str("channel", "system").Logger())
	if err != nil {
		_ = apiSrv.Close()
		return nil, fmt.Errorf("scheduler: start system channel: %w", err)
	}

	capacity := cfg.ArchiveCapacity
	if capacity <= 0 {
		capacity = 200
	}

	return &Scheduler{
		apiSrv:            apiSrv,
		sysSrv:            sysSrv,
		systemAddr:        sysSrv.Addr().String(),
		coresPerWorker:    cfg.CoresPerWorker,
		coordinatorBinary: cfg.CoordinatorBinary,
		jobs:              make(map[string]*types.Job),
		runningTasks:      make(map[string]*types.Task),
		slots:             types.NewSlotPool(cfg.Slots),
		slotRunnerMap:     make(map[types.Slot]*coordinator.Runner),
		workers:           make(map[transport.Identity]*types.Worker),
		archive:           newArchive(capacity),
		log:               logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// APIAddr returns the bound API channel address, useful when the
// configured address used port 0.
func (s *Scheduler) APIAddr() string { return s.apiSrv.Addr().String() }

// SystemAddr returns the bound system channel address.
func (s *Scheduler) SystemAddr() string { return s.systemAddr }

// Run is the single event loop. It blocks until ctx is cancelled or a
// handler panics with an invariant violation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	defer func() { _ = s.apiSrv.Close() }()
	defer func() { _ = s.sysSrv.Close() }()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("scheduler: event loop crashed on an invariant violation")
			panic(r)
		}
	}()

	s.refreshSnapshot()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-s.apiSrv.Recv():
			s.handleAPI(in)
			s.drain(s.apiSrv.Recv(), s.handleAPI)
			s.drain(s.sysSrv.Recv(), s.handleSystem)
		case in := <-s.sysSrv.Recv():
			s.handleSystem(in)
			s.drain(s.apiSrv.Recv(), s.handleAPI)
			s.drain(s.sysSrv.Recv(), s.handleSystem)
		}

		s.admissionLoop()
		s.assignmentLoop()
		s.refreshSnapshot()
	}
}

// drain handles every message already buffered on ch without blocking,
// matching the "repeat recv_nonblocking until empty" step of the
// original event loop.
func (s *Scheduler) drain(ch <-chan transport.Inbound, handle func(transport.Inbound)) {
	for {
		select {
		case in := <-ch:
			handle(in)
		default:
			return
		}
	}
}

func (s *Scheduler) handleAPI(in transport.Inbound) {
	timer := metrics.NewTimer()
	s.apiMethod = in.Env.Type.String()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, s.apiMethod)

	switch in.Env.Type {
	case types.MsgAssignJob:
		s.handleAssignJob(in)
	case types.MsgDeleteJob:
		s.handleDeleteJob(in)
	case types.MsgQueryJobs:
		s.handleQueryJobs(in)
	case types.MsgQueryJob:
		s.handleQueryJob(in)
	case types.MsgQueryWorkers:
		s.handleQueryWorkers(in)
	default:
		types.Violatef("unexpected message type %s on API channel", in.Env.Type)
	}
}

func (s *Scheduler) handleSystem(in transport.Inbound) {
	switch in.Env.Type {
	case types.MsgWorkerAvailable:
		s.handleWorkerAvailable(in)
	case types.MsgWorkerHeartbeat:
		s.handleWorkerHeartbeat(in)
	case types.MsgWorkerComplete:
		s.handleWorkerComplete(in)
	case types.MsgWorkerTerminate:
		s.handleWorkerTerminate(in)
	case types.MsgJobComplete:
		s.handleJobComplete(in)
	case types.MsgJobTerminate:
		s.handleJobTerminate(in)
	default:
		types.Violatef("unexpected message type %s on system channel", in.Env.Type)
	}
}

func (s *Scheduler) replyAPI(to transport.Identity, env types.Envelope) {
	status := "success"
	if env.Type == types.MsgError {
		status = "error"
	}
	metrics.APIRequestsTotal.WithLabelValues(s.apiMethod, status).Inc()

	if err := s.apiSrv.Send(to, env); err != nil {
		s.log.Error().Err(err).Str("peer", string(to)).Msg("scheduler: failed to send API reply")
	}
}

func (s *Scheduler) replySystem(to transport.Identity, env types.Envelope) {
	if err := s.sysSrv.Send(to, env); err != nil {
		s.log.Error().Err(err).Str("peer", string(to)).Msg("scheduler: failed to send system reply")
	}
}

func (s *Scheduler) registerWorker(id transport.Identity) *types.Worker {
	w, ok := s.workers[id]
	if !ok {
		w = types.NewWorker(string(id))
		s.workers[id] = w
	}
	return w
}
