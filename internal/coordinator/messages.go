// Package coordinator assigns whole proof jobs to worker provers over a
// bidirectional TCP stream, tracks each job through its state machine, and
// exposes a loopback-only admin surface (§4.9).
package coordinator

import "google.golang.org/protobuf/types/known/timestamppb"

// ProverMsgType tags the closed set of messages a worker sends the
// coordinator. A oneof-style sum type in the reference, expressed here as a
// tagged struct rather than an interface so gob can encode it without
// per-variant registration.
type ProverMsgType int

const (
	MsgRegister ProverMsgType = iota
	MsgReconnect
	MsgHeartbeatAck
	MsgExecuteTaskResponse
	MsgError
)

// ProverMessage is one frame sent worker -> coordinator. Only the field
// matching Type is populated.
type ProverMessage struct {
	Type                ProverMsgType
	Register            *RegisterRequest
	Reconnect           *ReconnectRequest
	ExecuteTaskResponse *ExecuteTaskResponsePayload
	Error               *ErrorPayload
}

// RegisterRequest is the handshake every new connection must open with.
type RegisterRequest struct {
	WorkerID string
	Capacity int
}

// ReconnectRequest resumes a previously registered worker's connection.
type ReconnectRequest struct {
	WorkerID string
}

// ExecuteTaskResponsePayload carries phase 1 or phase 2 output back for a
// job the coordinator assigned. Payload is an opaque blob: the coordinator
// routes it without understanding challenge/proof encoding, which lives in
// the orchestrator/backend layer (§6 external interfaces).
type ExecuteTaskResponsePayload struct {
	JobID   string
	Success bool
	Payload []byte
}

// ErrorPayload reports a worker-side failure not tied to a specific job.
type ErrorPayload struct {
	Message string
}

// CoordinatorMsgType tags the closed set of messages the coordinator sends
// a worker.
type CoordinatorMsgType int

const (
	MsgRegisterResponse CoordinatorMsgType = iota
	MsgExecuteTask
	MsgHeartbeat
	MsgShutdown
)

// CoordinatorMessage is one frame sent coordinator -> worker.
type CoordinatorMessage struct {
	Type             CoordinatorMsgType
	RegisterResponse *RegisterResponsePayload
	ExecuteTask      *ExecuteTaskPayload
	Heartbeat        *HeartbeatPayload
	Shutdown         *ShutdownPayload
}

// RegisterResponsePayload answers a Register or Reconnect request.
type RegisterResponsePayload struct {
	ProverID     string
	Accepted     bool
	Message      string
	RegisteredAt *timestamppb.Timestamp
}

// ExecuteTaskPayload assigns one job to the worker that receives it.
// Challenges is nil for a fresh phase 1 assignment and set when the
// coordinator is asking the worker to run phase 2 over gathered challenges.
type ExecuteTaskPayload struct {
	JobID      string
	Inputs     []byte
	Challenges []byte
}

// HeartbeatPayload is an empty liveness ping.
type HeartbeatPayload struct{}

// ShutdownPayload asks the worker to disconnect cleanly.
type ShutdownPayload struct {
	Reason string
}
