package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// fakeScheduler answers exactly one request with a canned reply,
// standing in for pkg/scheduler's API channel.
func fakeScheduler(t *testing.T, reply types.Envelope) string {
	t.Helper()
	srv, err := transport.Listen("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	go func() {
		in := <-srv.Recv()
		_ = srv.Send(in.From, reply)
	}()
	return srv.Addr().String()
}

func TestHTTPBridgeListJobsSuccess(t *testing.T) {
	addr := fakeScheduler(t, types.SuccessMessage(map[string]any{"jobs": []any{}}))
	bridge := NewHTTPBridge(addr)

	req := httptest.NewRequest("GET", "/jobs", nil)
	rec := httptest.NewRecorder()
	bridge.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "jobs")
}

func TestHTTPBridgeCreateJobErrorReply(t *testing.T) {
	addr := fakeScheduler(t, types.ErrorMessage("Duplicate job x"))
	bridge := NewHTTPBridge(addr)

	req := httptest.NewRequest("POST", "/jobs/x", strings.NewReader(`{"context_folder":"/j","input_file":"a.in","num_workers":2}`))
	rec := httptest.NewRecorder()
	bridge.Handler().ServeHTTP(rec, req)

	require.Equal(t, 400, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Duplicate job x", body["reason"])
}

func TestHTTPBridgeDeleteJobUnreachableScheduler(t *testing.T) {
	bridge := NewHTTPBridge("127.0.0.1:1")

	req := httptest.NewRequest("DELETE", "/jobs/x", nil)
	rec := httptest.NewRecorder()
	bridge.Handler().ServeHTTP(rec, req)

	require.Equal(t, 502, rec.Code)
}
