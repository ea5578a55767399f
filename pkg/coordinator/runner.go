package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// Config controls how a Runner invokes the compute binary. The binary
// itself is an opaque external dependency — this package only builds
// its argv and redirects its output.
type Config struct {
	// CoordinatorBinary is the executable spawned as the job's
	// coordinator process, e.g. "pbrt".
	CoordinatorBinary string
}

// Runner spawns and supervises one job's coordinator process.
type Runner struct {
	job        *types.Job
	slot       types.Slot
	systemAddr string
	binary     string
	log        zerolog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	once sync.Once
}

// NewRunner constructs a Runner for job, bound to slot, reporting
// completion back to the scheduler dialed at systemAddr.
func NewRunner(job *types.Job, slot types.Slot, systemAddr string, cfg Config, log zerolog.Logger) *Runner {
	return &Runner{
		job:        job,
		slot:       slot,
		systemAddr: systemAddr,
		binary:     cfg.CoordinatorBinary,
		log:        log.With().Str("job_name", job.Name).Logger(),
	}
}

// argv builds the coordinator's argument list.
func (r *Runner) argv() []string {
	nthreads := len(r.job.Tasks) * r.job.CoresPerWorker
	return []string{
		r.binary,
		r.job.InputFile,
		"--dist-master",
		"--dist-nworkers", strconv.Itoa(nthreads),
		"--dist-port", strconv.Itoa(r.slot.Port),
		"--dist-context", r.job.Name,
	}
}

// logDir returns (and creates, mode 0777) the job's log directory.
func logDir(contextFolder, jobName string) (string, error) {
	dir := filepath.Join(contextFolder, jobName+"-logs")
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", fmt.Errorf("coordinator: create log dir: %w", err)
	}
	// MkdirAll respects umask; match the original's explicit chmod.
	if err := os.Chmod(dir, 0o777); err != nil {
		return "", fmt.Errorf("coordinator: chmod log dir: %w", err)
	}
	return dir, nil
}

// Start launches the coordinator process on its own goroutine and
// returns immediately. The goroutine spawns the child, waits for it,
// and reports the outcome back to the scheduler's system channel.
func (r *Runner) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	dir, err := logDir(r.job.ContextFolder, r.job.Name)
	if err != nil {
		r.log.Error().Err(err).Msg("coordinator: failed to prepare log directory")
		r.reportTerminate(-1)
		return
	}

	logFile, err := os.Create(filepath.Join(dir, "coordinator.log"))
	if err != nil {
		r.log.Error().Err(err).Msg("coordinator: failed to open coordinator.log")
		r.reportTerminate(-1)
		return
	}
	defer logFile.Close()

	argv := r.argv()
	r.log.Info().Strs("argv", argv).Msg("coordinator: spawning process")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.job.ContextFolder
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	// Publish cmd and start it under the same lock, so terminate never
	// sees a cmd whose Process is still being set by Start.
	startTimer := metrics.NewTimer()
	r.mu.Lock()
	r.cmd = cmd
	err = cmd.Start()
	r.mu.Unlock()
	if err != nil {
		r.log.Error().Err(err).Msg("coordinator: failed to start process")
		r.reportTerminate(-1)
		return
	}
	startTimer.ObserveDuration(metrics.CoordinatorStartDuration)

	err = cmd.Wait()
	if err == nil {
		r.log.Info().Msg("coordinator: process exited 0")
		r.reportComplete()
		return
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	r.log.Warn().Int("returncode", code).Err(err).Msg("coordinator: process exited non-zero")
	r.reportTerminate(code)
}

func (r *Runner) reportComplete() {
	r.report(types.Envelope{
		Type: types.MsgJobComplete,
		Data: map[string]any{"job_name": r.job.Name},
	})
}

func (r *Runner) reportTerminate(returncode int) {
	r.report(types.Envelope{
		Type: types.MsgJobTerminate,
		Data: map[string]any{"job_name": r.job.Name, "returncode": returncode},
	})
}

// report dials the scheduler's system channel as an ordinary client,
// sends env, and asserts the reply is an ack — exactly the contract a
// worker agent uses, so the scheduler need not distinguish a
// coordinator runner's loopback connection from any other peer.
func (r *Runner) report(env types.Envelope) {
	client, err := transport.Dial(r.systemAddr, "")
	if err != nil {
		r.log.Error().Err(err).Msg("coordinator: failed to dial scheduler to report outcome")
		return
	}
	defer client.Close()

	if err := client.Send(env); err != nil {
		r.log.Error().Err(err).Msg("coordinator: failed to send outcome")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reply, err := client.Recv(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("coordinator: failed to receive ack for reported outcome")
		return
	}
	if reply.Type != types.MsgAck {
		r.log.Error().Str("reply_type", reply.Type.String()).Msg("coordinator: expected ack, got something else")
	}
}

// Terminate sends SIGTERM to the coordinator process. It tolerates
// being called before the process has been spawned — a short race
// window between Start's goroutine launch and cmd.Start() — by
// spinning until the process handle is set, and is idempotent: only
// the first call actually signals the process.
func (r *Runner) Terminate() {
	r.once.Do(func() {
		go r.terminate()
	})
}

func (r *Runner) terminate() {
	for {
		r.mu.Lock()
		cmd := r.cmd
		r.mu.Unlock()
		if cmd != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	r.mu.Lock()
	proc := r.cmd.Process
	r.mu.Unlock()
	if proc == nil {
		return
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		r.log.Warn().Err(err).Msg("coordinator: failed to signal process, trying Kill")
		_ = proc.Kill()
	}
}
