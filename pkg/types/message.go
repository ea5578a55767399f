package types

// MessageType is the closed set of message types exchanged between
// workers, coordinator runners, API clients and the scheduler.
type MessageType int

const (
	// Worker-originated
	MsgWorkerAvailable MessageType = iota
	MsgWorkerHeartbeat
	MsgWorkerComplete
	MsgWorkerTerminate

	// Coordinator-runner-originated (loopback onto the system channel)
	MsgJobComplete
	MsgJobTerminate

	// Scheduler-originated, system channel
	MsgNewTask
	MsgHeartbeatTerminate

	// API-originated
	MsgAssignJob
	MsgDeleteJob
	MsgQueryJobs
	MsgQueryJob
	MsgQueryWorkers

	// Scheduler-originated replies, both channels
	MsgAck
	MsgSuccess
	MsgError
)

var messageTypeNames = map[MessageType]string{
	MsgWorkerAvailable:    "worker_available",
	MsgWorkerHeartbeat:    "worker_heartbeat",
	MsgWorkerComplete:     "worker_complete",
	MsgWorkerTerminate:    "worker_terminate",
	MsgJobComplete:        "job_complete",
	MsgJobTerminate:       "job_terminate",
	MsgNewTask:            "newtask",
	MsgHeartbeatTerminate: "heartbeat_terminate",
	MsgAssignJob:          "assign_job",
	MsgDeleteJob:          "delete_job",
	MsgQueryJobs:          "query_jobs",
	MsgQueryJob:           "query_job",
	MsgQueryWorkers:       "query_workers",
	MsgAck:                "ack",
	MsgSuccess:            "success",
	MsgError:              "error",
}

// String implements fmt.Stringer for log lines and error messages.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsFromWorker reports whether a message of this type is sent by a
// worker agent, which implicitly registers the sender's transport
// identity as a Worker on first sight.
func (t MessageType) IsFromWorker() bool {
	switch t {
	case MsgWorkerAvailable, MsgWorkerHeartbeat, MsgWorkerComplete, MsgWorkerTerminate:
		return true
	default:
		return false
	}
}

// Envelope is the wire form of every message: a type tag plus a
// string-keyed payload. Payload schema is per-type; see the message
// constructors below and the handlers in pkg/scheduler.
type Envelope struct {
	Type MessageType
	Data map[string]any
}

// AckMessage is the scheduler's acknowledgement reply.
func AckMessage() Envelope {
	return Envelope{Type: MsgAck, Data: map[string]any{}}
}

// ErrorMessage is the scheduler's reply to an invalid or rejected
// request. reason is a human-readable explanation; fields, when
// non-empty, lists the payload keys the request was missing.
func ErrorMessage(reason string, fields ...string) Envelope {
	data := map[string]any{"reason": reason}
	if len(fields) > 0 {
		data["fields"] = fields
	}
	return Envelope{Type: MsgError, Data: data}
}

// SuccessMessage is the scheduler's reply to a successful API request.
func SuccessMessage(data map[string]any) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{Type: MsgSuccess, Data: data}
}

// HeartbeatTerminateMessage is the scheduler's cooperative cancellation
// signal, sent only in reply to a worker's heartbeat for a task that
// has been flagged terminating.
func HeartbeatTerminateMessage() Envelope {
	return Envelope{Type: MsgHeartbeatTerminate, Data: map[string]any{}}
}
