package coordinator

import (
	"context"
	"encoding/gob"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/0xPolygonHermez/zisk-sub004/internal/config"
	"github.com/0xPolygonHermez/zisk-sub004/internal/log"
	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// proverConn is one registered worker's live connection: its outbound
// channel gives the select-style read/write loop backpressure the same way
// the reference's bounded mpsc channel does.
type proverConn struct {
	id       string
	capacity int
	conn     net.Conn
	outbound chan CoordinatorMessage

	mu     sync.Mutex
	load   int
	jobIDs map[string]bool
}

// Coordinator assigns whole proof jobs to worker provers over TCP, exactly
// tracking each job through the Pending/Assigned/Phase1Done/Phase2Done/Failed
// state machine (§4.9).
type Coordinator struct {
	cfg    *config.Config
	logger *log.Logger

	mu      sync.Mutex
	provers map[string]*proverConn
	jobs    map[string]*Job
	pending []string // job ids waiting for a worker, FIFO

	activeConnections int32
	startedAt         time.Time
	listener          net.Listener
}

// New builds a Coordinator bound to the given configuration. The returned
// value is not listening until ListenAndServe is called.
func New(cfg *config.Config, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Coordinator{
		cfg:     cfg,
		logger:  logger.WithComponent("coordinator"),
		provers: map[string]*proverConn{},
		jobs:    map[string]*Job{},
	}
}

// ListenAndServe accepts connections on cfg.ListenAddr until ctx is
// cancelled or the listener fails.
func (c *Coordinator) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", c.cfg.ListenAddr)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.listener = l
	c.startedAt = time.Now()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go c.handleConn(conn)
	}
}

// Addr returns the coordinator's bound listen address, valid only after
// ListenAndServe has started accepting.
func (c *Coordinator) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

func (c *Coordinator) handleConn(conn net.Conn) {
	defer conn.Close()

	max := int32(c.cfg.MaxConnections)
	if max > 0 && atomic.LoadInt32(&c.activeConnections) >= max {
		enc := gob.NewEncoder(conn)
		reason := ziskerr.ResourceExhausted("maximum concurrent connections reached").Error()
		_ = enc.Encode(CoordinatorMessage{Type: MsgShutdown, Shutdown: &ShutdownPayload{Reason: reason}})
		return
	}
	atomic.AddInt32(&c.activeConnections, 1)
	defer atomic.AddInt32(&c.activeConnections, -1)

	dec := gob.NewDecoder(conn)
	enc := gob.NewEncoder(conn)

	var first ProverMessage
	if err := dec.Decode(&first); err != nil {
		return
	}

	var pc *proverConn
	var message string
	switch {
	case first.Type == MsgRegister && first.Register != nil:
		pc = c.registerProver(first.Register.WorkerID, first.Register.Capacity, conn)
		message = "Registration successful"
	case first.Type == MsgReconnect && first.Reconnect != nil:
		pc = c.reconnectProver(first.Reconnect.WorkerID, conn)
		message = "Reconnection successful"
	default:
		_ = enc.Encode(CoordinatorMessage{
			Type:     MsgShutdown,
			Shutdown: &ShutdownPayload{Reason: ziskerr.InvalidArgumentf("first stream message must be Register or Reconnect").Error()},
		})
		return
	}

	_ = enc.Encode(CoordinatorMessage{
		Type: MsgRegisterResponse,
		RegisterResponse: &RegisterResponsePayload{
			ProverID:     pc.id,
			Accepted:     true,
			Message:      message,
			RegisteredAt: timestamppb.Now(),
		},
	})
	c.logger.Info("prover registered, starting message loop", zap.String("worker_id", pc.id))

	defer c.unregisterProver(pc.id)

	done := make(chan struct{})
	go c.writePump(enc, pc, done)

	heartbeatStop := make(chan struct{})
	defer close(heartbeatStop)
	go c.heartbeatLoop(pc, heartbeatStop)

	for {
		var msg ProverMessage
		if err := dec.Decode(&msg); err != nil {
			break
		}
		if err := c.handleStreamMessage(pc, msg); err != nil {
			break
		}
	}

	close(pc.outbound)
	<-done
}

// heartbeatLoop periodically offers a Heartbeat on pc's outbound channel
// until stop fires. A full or closed channel just drops the tick: the next
// one covers for it.
func (c *Coordinator) heartbeatLoop(pc *proverConn, stop chan struct{}) {
	interval := time.Duration(c.cfg.HeartbeatSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case pc.outbound <- CoordinatorMessage{Type: MsgHeartbeat, Heartbeat: &HeartbeatPayload{}}:
			default:
			}
		}
	}
}

func (c *Coordinator) writePump(enc *gob.Encoder, pc *proverConn, done chan struct{}) {
	defer close(done)
	for msg := range pc.outbound {
		if err := enc.Encode(msg); err != nil {
			return
		}
	}
}

func (c *Coordinator) registerProver(workerID string, capacity int, conn net.Conn) *proverConn {
	if capacity < 1 {
		capacity = 1
	}
	pc := &proverConn{id: workerID, capacity: capacity, conn: conn, outbound: make(chan CoordinatorMessage, 16), jobIDs: map[string]bool{}}
	c.mu.Lock()
	c.provers[workerID] = pc
	c.mu.Unlock()
	c.assign()
	return pc
}

func (c *Coordinator) reconnectProver(workerID string, conn net.Conn) *proverConn {
	c.mu.Lock()
	existing, ok := c.provers[workerID]
	c.mu.Unlock()
	if ok {
		existing.mu.Lock()
		existing.conn = conn
		existing.mu.Unlock()
		return existing
	}
	return c.registerProver(workerID, 1, conn)
}

// unregisterProver drops the connection and applies the JobLost policy to
// every job it was carrying.
func (c *Coordinator) unregisterProver(workerID string) {
	c.mu.Lock()
	pc, ok := c.provers[workerID]
	if ok {
		delete(c.provers, workerID)
	}
	var jobs []*Job
	if ok {
		for id := range pc.jobIDs {
			if j, exists := c.jobs[id]; exists {
				jobs = append(jobs, j)
			}
		}
	}
	c.mu.Unlock()

	for _, j := range jobs {
		if err := j.onWorkerLost(workerID); err != nil {
			c.logger.Warn("job lost on worker disconnect", zap.String("job_id", j.ID), zap.Error(err))
		}
	}
	c.assign()
}

func (c *Coordinator) handleStreamMessage(pc *proverConn, msg ProverMessage) error {
	switch msg.Type {
	case MsgHeartbeatAck:
		return nil
	case MsgError:
		if msg.Error != nil {
			c.logger.Warn("prover reported error", zap.String("worker_id", pc.id), zap.String("message", msg.Error.Message))
		}
		return nil
	case MsgExecuteTaskResponse:
		return c.handleExecuteTaskResponse(pc, msg.ExecuteTaskResponse)
	default:
		return ziskerr.InvalidArgumentf("unexpected message type %d", msg.Type)
	}
}

func (c *Coordinator) handleExecuteTaskResponse(pc *proverConn, resp *ExecuteTaskResponsePayload) error {
	if resp == nil {
		return ziskerr.InvalidArgumentf("nil ExecuteTaskResponse")
	}
	c.mu.Lock()
	job, ok := c.jobs[resp.JobID]
	c.mu.Unlock()
	if !ok {
		return ziskerr.InvalidArgumentf("unknown job %s", resp.JobID)
	}
	if !resp.Success {
		job.fail(string(resp.Payload))
		c.freeSlot(pc, job.ID)
		c.assign()
		return nil
	}

	switch job.snapshot().State {
	case JobAssigned:
		job.completePhase1(resp.Payload)
	case JobPhase1Done:
		job.completePhase2(resp.Payload)
		c.freeSlot(pc, job.ID)
		c.assign()
	}
	return nil
}

func (c *Coordinator) freeSlot(pc *proverConn, jobID string) {
	pc.mu.Lock()
	delete(pc.jobIDs, jobID)
	pc.load--
	pc.mu.Unlock()
}

// SubmitJob enqueues a new job and immediately attempts to assign it to an
// idle worker.
func (c *Coordinator) SubmitJob(inputs []byte) *Job {
	j := newJob(inputs)
	c.mu.Lock()
	c.jobs[j.ID] = j
	c.pending = append(c.pending, j.ID)
	c.mu.Unlock()
	c.assign()
	return j
}

// assign hands out as many pending jobs as there is idle worker capacity
// for. Called after every event that can change either side of that
// balance: a new job, a new/returning worker, or a job finishing.
func (c *Coordinator) assign() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		var target *proverConn
		for _, pc := range c.provers {
			pc.mu.Lock()
			free := pc.load < pc.capacity
			pc.mu.Unlock()
			if free {
				target = pc
				break
			}
		}
		if target == nil {
			c.mu.Unlock()
			return
		}
		jobID := c.pending[0]
		c.pending = c.pending[1:]
		job := c.jobs[jobID]
		c.mu.Unlock()

		job.assign(target.id)
		target.mu.Lock()
		target.load++
		target.jobIDs[jobID] = true
		target.mu.Unlock()

		select {
		case target.outbound <- CoordinatorMessage{Type: MsgExecuteTask, ExecuteTask: &ExecuteTaskPayload{JobID: jobID, Inputs: job.Inputs}}:
		default:
			// outbound buffer full or closed: leave the job Assigned: the
			// worker-lost cleanup path reverts it to Pending if the
			// connection is actually gone.
		}
	}
}

// JobByID returns the current snapshot of one job, or ok=false if unknown.
func (c *Coordinator) JobByID(id string) (Job, bool) {
	c.mu.Lock()
	j, ok := c.jobs[id]
	c.mu.Unlock()
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}
