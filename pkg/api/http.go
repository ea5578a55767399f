package api

import (
	"encoding/json"
	"net/http"

	"github.com/jirenz/dist-scheduler/pkg/types"
)

// HTTPBridge exposes the scheduler's API channel over plain HTTP/JSON,
// the second of the two equivalent front-ends. Like the CLI, it holds
// no state between requests.
type HTTPBridge struct {
	schedulerAddr string
	mux           *http.ServeMux
}

// NewHTTPBridge builds a bridge dialing the scheduler at addr.
func NewHTTPBridge(addr string) *HTTPBridge {
	b := &HTTPBridge{schedulerAddr: addr, mux: http.NewServeMux()}
	b.mux.HandleFunc("GET /jobs", b.listJobs)
	b.mux.HandleFunc("GET /jobs/{name}", b.getJob)
	b.mux.HandleFunc("POST /jobs/{name}", b.createJob)
	b.mux.HandleFunc("DELETE /jobs/{name}", b.deleteJob)
	b.mux.HandleFunc("GET /workers", b.listWorkers)
	return b
}

// Handler returns the http.Handler for embedding in an http.Server.
func (b *HTTPBridge) Handler() http.Handler {
	return b.mux
}

func (b *HTTPBridge) listJobs(w http.ResponseWriter, r *http.Request) {
	b.respond(w, call(b.schedulerAddr, types.Envelope{Type: types.MsgQueryJobs, Data: map[string]any{}}))
}

func (b *HTTPBridge) getJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	b.respond(w, call(b.schedulerAddr, types.Envelope{
		Type: types.MsgQueryJob,
		Data: map[string]any{"job_name": name},
	}))
}

func (b *HTTPBridge) listWorkers(w http.ResponseWriter, r *http.Request) {
	b.respond(w, call(b.schedulerAddr, types.Envelope{Type: types.MsgQueryWorkers, Data: map[string]any{}}))
}

// createJobRequest is the POST /jobs/{name} body: everything assign_job
// needs besides the name, which comes from the path.
type createJobRequest struct {
	ContextFolder string `json:"context_folder"`
	InputFile     string `json:"input_file"`
	NumWorkers    int    `json:"num_workers"`
}

func (b *HTTPBridge) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	b.respond(w, call(b.schedulerAddr, types.Envelope{
		Type: types.MsgAssignJob,
		Data: map[string]any{
			"context_name":   r.PathValue("name"),
			"context_folder": req.ContextFolder,
			"input_file":     req.InputFile,
			"num_workers":    req.NumWorkers,
		},
	}))
}

func (b *HTTPBridge) deleteJob(w http.ResponseWriter, r *http.Request) {
	b.respond(w, call(b.schedulerAddr, types.Envelope{
		Type: types.MsgDeleteJob,
		Data: map[string]any{"job_name": r.PathValue("name")},
	}))
}

// respond writes reply.Data as the JSON body: 200 on success, 400 on
// a scheduler-level error reply, 502 if the scheduler itself couldn't
// be reached.
func (b *HTTPBridge) respond(w http.ResponseWriter, reply types.Envelope, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	status := http.StatusOK
	if reply.Type == types.MsgError {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(reply.Data)
}
