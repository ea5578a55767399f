package api

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

func TestCLIJobsPrintsYAML(t *testing.T) {
	addr := fakeScheduler(t, types.SuccessMessage(map[string]any{"jobs": []any{}}))

	root := NewCLI()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"--server", addr, "jobs"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "jobs:")
}

func TestCLIDeleteJobSurfacesError(t *testing.T) {
	srv, err := transport.Listen("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer srv.Close()
	go func() {
		in := <-srv.Recv()
		_ = srv.Send(in.From, types.ErrorMessage("unknown job missing"))
	}()

	root := NewCLI()
	root.SetArgs([]string{"--server", srv.Addr().String(), "delete-job", "missing"})
	err = root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown job missing")
}
