package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

func TestRunnerArgv(t *testing.T) {
	job := types.NewJob("render-1", "/ctx", "scene.in", 2, 4)
	r := NewRunner(job, types.Slot{Host: "127.0.0.1", Port: 14000}, "127.0.0.1:0", Config{CoordinatorBinary: "pbrt"}, zerolog.Nop())

	want := []string{
		"pbrt", "scene.in",
		"--dist-master",
		"--dist-nworkers", "8",
		"--dist-port", "14000",
		"--dist-context", "render-1",
	}
	require.Equal(t, want, r.argv())
}

func TestLogDirCreatesWithPermissions(t *testing.T) {
	ctx := t.TempDir()
	dir, err := logDir(ctx, "render-2")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(ctx, "render-2-logs"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestRunnerReportsJobComplete(t *testing.T) {
	srv, err := transport.Listen("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer srv.Close()

	job := types.NewJob("render-3", t.TempDir(), "scene.in", 1, 1)
	r := NewRunner(job, types.Slot{Host: "127.0.0.1", Port: 1}, srv.Addr().String(), Config{CoordinatorBinary: "true"}, zerolog.Nop())

	go r.reportComplete()

	var in transport.Inbound
	select {
	case in = <-srv.Recv():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job_complete")
	}
	require.Equal(t, types.MsgJobComplete, in.Env.Type)
	require.Equal(t, "render-3", in.Env.Data["job_name"])

	require.NoError(t, srv.Send(in.From, types.AckMessage()))
	time.Sleep(50 * time.Millisecond) // let the runner goroutine observe the ack before the test ends
}

func TestRunnerTerminateToleratesPreSpawnRace(t *testing.T) {
	job := types.NewJob("render-4", t.TempDir(), "scene.in", 1, 1)
	r := NewRunner(job, types.Slot{Host: "127.0.0.1", Port: 1}, "127.0.0.1:0", Config{CoordinatorBinary: "sleep"}, zerolog.Nop())

	// Terminate called before Start/run has set r.cmd must not panic or
	// block the caller; the goroutine it starts waits until a process
	// handle appears.
	done := make(chan struct{})
	go func() {
		r.Terminate()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go r.run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Terminate did not return after process spawned")
	}

	// Second call must be a no-op, not a second signal.
	r.Terminate()
}
