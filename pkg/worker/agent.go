package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// pollInterval bounds how often the loop retries after signalling a
// kill, so it doesn't spin hot while waiting for the child to exit.
const pollInterval = 200 * time.Millisecond

// Config controls how an Agent dials the scheduler and spawns tasks.
type Config struct {
	// Name is this worker's stable identity. It pins the system
	// channel connection's transport.Identity (via Dial's name
	// option), so the scheduler recognizes a redialing worker as the
	// same peer across restarts instead of registering a new one.
	Name string
	// SystemAddr is the scheduler's system-channel address.
	SystemAddr string
	// TaskBinary is the executable spawned for each assigned task.
	TaskBinary string
	// HeartbeatInterval is how long the agent sleeps between
	// heartbeats while a task is running and the child hasn't exited.
	HeartbeatInterval time.Duration
	// CoresPerWorker is passed to the task binary as --nthreads.
	CoresPerWorker int
}

// Agent is a worker node: it asks the scheduler for at most one task
// at a time, spawns it as a child process, and reports the outcome.
type Agent struct {
	cfg    Config
	client *transport.Client
	log    zerolog.Logger

	currentTask *string
	proc        *exec.Cmd
	logFile     *os.File
	waitCh      chan error
}

// NewAgent constructs an Agent. Dial happens in Run.
func NewAgent(cfg Config, log zerolog.Logger) *Agent {
	return &Agent{
		cfg: cfg,
		log: log.With().Str("worker", cfg.Name).Logger(),
	}
}

// Run dials the scheduler and drives the agent's loop until ctx is
// cancelled or an unrecoverable transport error occurs.
func (a *Agent) Run(ctx context.Context) error {
	client, err := transport.Dial(a.cfg.SystemAddr, a.cfg.Name)
	if err != nil {
		return fmt.Errorf("worker: dial scheduler: %w", err)
	}
	a.client = client
	defer a.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if a.currentTask == nil {
			if err := a.awaitTask(ctx); err != nil {
				return err
			}
			continue
		}

		if exited, waitErr := a.childExited(); exited {
			a.reportOutcome(ctx, waitErr)
			continue
		}

		if err := a.heartbeat(ctx); err != nil {
			return err
		}
	}
}

// childExited performs a non-blocking check of whether the running
// child has exited, via the goroutine started in spawnTask.
func (a *Agent) childExited() (bool, error) {
	select {
	case err := <-a.waitCh:
		return true, err
	default:
		return false, nil
	}
}

// awaitTask sends worker_available and blocks — possibly for a long
// time, since there may be no work — until the scheduler replies with
// newtask.
func (a *Agent) awaitTask(ctx context.Context) error {
	reply, err := a.call(ctx, types.Envelope{Type: types.MsgWorkerAvailable, Data: map[string]any{}})
	if err != nil {
		return err
	}
	if reply.Type != types.MsgNewTask {
		types.Violatef("worker: expected newtask reply to worker_available, got %s", reply.Type)
	}
	return a.spawnTask(ctx, reply.Data)
}

func (a *Agent) spawnTask(ctx context.Context, data map[string]any) error {
	if missing := requireFields(data, "name", "context_folder", "input_file", "context_name", "host", "port", "job_name"); len(missing) > 0 {
		types.Violatef("worker: newtask missing fields %v", missing)
	}
	name, _ := stringField(data, "name")
	contextFolder, _ := stringField(data, "context_folder")
	inputFile, _ := stringField(data, "input_file")
	contextName, _ := stringField(data, "context_name")
	host, _ := stringField(data, "host")
	jobName, _ := stringField(data, "job_name")
	port, ok := intField(data, "port")
	if !ok {
		types.Violatef("worker: newtask field port has unexpected type")
	}

	taskLog := a.log.With().Str("job_name", jobName).Str("task_name", name).Logger()

	dir := filepath.Join(contextFolder, jobName+"-logs")
	if err := os.MkdirAll(dir, 0o777); err != nil {
		taskLog.Error().Err(err).Msg("worker: failed to create log directory, reporting failure")
		return a.reportFailedSpawn(ctx, name)
	}
	logFile, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		taskLog.Error().Err(err).Msg("worker: failed to open task log, reporting failure")
		return a.reportFailedSpawn(ctx, name)
	}

	argv := []string{
		a.cfg.TaskBinary,
		inputFile,
		"--dist-slave",
		"--dist-host", host,
		"--dist-port", strconv.Itoa(port),
		"--dist-context", contextName,
		"--nthreads", strconv.Itoa(a.cfg.CoresPerWorker),
	}
	taskLog.Info().Strs("argv", argv).Msg("worker: spawning task")

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = contextFolder
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		taskLog.Error().Err(err).Msg("worker: failed to start task process, reporting failure")
		return a.reportFailedSpawn(ctx, name)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	a.currentTask = &name
	a.proc = cmd
	a.logFile = logFile
	a.waitCh = waitCh
	return nil
}

// reportFailedSpawn reports a task that never managed to start as a
// returncode -1 termination, without ever recording it as current.
func (a *Agent) reportFailedSpawn(ctx context.Context, taskName string) error {
	reply, err := a.call(ctx, types.Envelope{
		Type: types.MsgWorkerTerminate,
		Data: map[string]any{"task_name": taskName, "returncode": -1},
	})
	if err != nil {
		return err
	}
	if reply.Type != types.MsgAck {
		types.Violatef("worker: expected ack after reporting failed spawn, got %s", reply.Type)
	}
	return nil
}

// heartbeat sends worker_heartbeat for the current task and acts on
// the reply: heartbeat_terminate kills the child (without clearing
// local state — the exit is picked up on the next loop iteration),
// ack sleeps for the configured interval.
func (a *Agent) heartbeat(ctx context.Context) error {
	reply, err := a.call(ctx, types.Envelope{
		Type: types.MsgWorkerHeartbeat,
		Data: map[string]any{"task_name": *a.currentTask},
	})
	if err != nil {
		return err
	}

	switch reply.Type {
	case types.MsgHeartbeatTerminate:
		a.log.Info().Str("task_name", *a.currentTask).Msg("worker: received heartbeat_terminate, killing child")
		if a.proc.Process != nil {
			if err := a.proc.Process.Kill(); err != nil {
				a.log.Warn().Err(err).Msg("worker: failed to kill child after heartbeat_terminate")
			}
		}
		return a.sleep(ctx, pollInterval)
	case types.MsgAck:
		return a.sleep(ctx, a.cfg.HeartbeatInterval)
	default:
		types.Violatef("worker: unexpected reply to worker_heartbeat: %s", reply.Type)
	}
	return nil
}

// reportOutcome reports a task whose child has exited: worker_complete
// on a zero return code, worker_terminate otherwise.
func (a *Agent) reportOutcome(ctx context.Context, waitErr error) {
	code := 0
	if waitErr != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	taskName := *a.currentTask
	if a.logFile != nil {
		a.logFile.Close()
	}
	a.currentTask = nil
	a.proc = nil
	a.logFile = nil
	a.waitCh = nil

	var env types.Envelope
	if code == 0 {
		a.log.Info().Str("task_name", taskName).Msg("worker: task completed")
		env = types.Envelope{Type: types.MsgWorkerComplete, Data: map[string]any{"task_name": taskName}}
	} else {
		a.log.Warn().Str("task_name", taskName).Int("returncode", code).Msg("worker: task terminated")
		env = types.Envelope{Type: types.MsgWorkerTerminate, Data: map[string]any{"task_name": taskName, "returncode": code}}
	}

	reply, err := a.call(ctx, env)
	if err != nil {
		a.log.Error().Err(err).Msg("worker: failed to report task outcome")
		return
	}
	if reply.Type != types.MsgAck {
		types.Violatef("worker: expected ack after reporting task outcome, got %s", reply.Type)
	}
}

func (a *Agent) call(ctx context.Context, env types.Envelope) (types.Envelope, error) {
	if err := a.client.Send(env); err != nil {
		return types.Envelope{}, fmt.Errorf("worker: send %s: %w", env.Type, err)
	}
	reply, err := a.client.Recv(ctx)
	if err != nil {
		return types.Envelope{}, fmt.Errorf("worker: recv reply to %s: %w", env.Type, err)
	}
	return reply, nil
}

func (a *Agent) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
