package coordinator

import (
	"context"
	"encoding/gob"
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/0xPolygonHermez/zisk-sub004/internal/log"
	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// TaskHandler runs one assigned job's inputs (and, for a phase 2
// assignment, the gathered challenges) to completion, returning the opaque
// result payload the coordinator routes back to whichever caller asked for
// job_status. Implemented by the orchestrator in a full deployment.
type TaskHandler func(ctx context.Context, task ExecuteTaskPayload) (result []byte, err error)

// Worker is a prover-side connection to a Coordinator: it registers, runs
// whatever jobs the coordinator assigns via handler, and answers heartbeats.
type Worker struct {
	id      string
	addr    string
	handler TaskHandler
	logger  *log.Logger

	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder
}

// NewWorker builds a worker identified by id that dials addr and runs
// handler for every job the coordinator assigns.
func NewWorker(id, addr string, handler TaskHandler, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Worker{id: id, addr: addr, handler: handler, logger: logger.WithComponent("worker")}
}

// Run dials addr, registers with capacity, and serves jobs until ctx is
// cancelled or the connection is lost. A lost connection is not retried
// here; the caller decides whether to reconnect.
func (w *Worker) Run(ctx context.Context, capacity int) error {
	conn, err := net.Dial("tcp", w.addr)
	if err != nil {
		return err
	}
	w.conn = conn
	defer conn.Close()

	w.enc = gob.NewEncoder(conn)
	w.dec = gob.NewDecoder(conn)

	if err := w.enc.Encode(ProverMessage{Type: MsgRegister, Register: &RegisterRequest{WorkerID: w.id, Capacity: capacity}}); err != nil {
		return err
	}

	var resp CoordinatorMessage
	if err := w.dec.Decode(&resp); err != nil {
		return err
	}
	if resp.Type != MsgRegisterResponse || resp.RegisterResponse == nil || !resp.RegisterResponse.Accepted {
		return ziskerr.PermissionDenied("coordinator rejected registration")
	}
	w.logger.Info("registered with coordinator", zap.String("prover_id", resp.RegisterResponse.ProverID))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg CoordinatorMessage
		if err := w.dec.Decode(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := w.handleMessage(ctx, msg); err != nil {
			return err
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg CoordinatorMessage) error {
	switch msg.Type {
	case MsgHeartbeat:
		return w.enc.Encode(ProverMessage{Type: MsgHeartbeatAck})
	case MsgShutdown:
		w.logger.Info("coordinator requested shutdown", zap.String("reason", shutdownReason(msg.Shutdown)))
		return errShutdownRequested
	case MsgExecuteTask:
		if msg.ExecuteTask == nil {
			return nil
		}
		return w.runTask(ctx, *msg.ExecuteTask)
	default:
		return nil
	}
}

func shutdownReason(s *ShutdownPayload) string {
	if s == nil {
		return ""
	}
	return s.Reason
}

var errShutdownRequested = errors.New("coordinator requested shutdown")

func (w *Worker) runTask(ctx context.Context, task ExecuteTaskPayload) error {
	result, err := w.handler(ctx, task)
	if err != nil {
		return w.enc.Encode(ProverMessage{
			Type: MsgExecuteTaskResponse,
			ExecuteTaskResponse: &ExecuteTaskResponsePayload{
				JobID:   task.JobID,
				Success: false,
				Payload: []byte(err.Error()),
			},
		})
	}
	return w.enc.Encode(ProverMessage{
		Type: MsgExecuteTaskResponse,
		ExecuteTaskResponse: &ExecuteTaskResponsePayload{
			JobID:   task.JobID,
			Success: true,
			Payload: result,
		},
	})
}

