package coordinator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zisk-sub004/internal/config"
	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

func TestJobOnWorkerLost(t *testing.T) {
	j := newJob([]byte("in"))
	j.assign("worker-a")

	if err := j.onWorkerLost("worker-a"); err != nil {
		t.Fatalf("unexpected error reverting Assigned job: %v", err)
	}
	if snap := j.snapshot(); snap.State != JobPending {
		t.Fatalf("expected Pending after worker loss before Phase1Done, got %s", snap.State)
	}

	j.assign("worker-b")
	j.completePhase1([]byte("challenges"))
	err := j.onWorkerLost("worker-b")
	if err == nil {
		t.Fatal("expected JobLost error after Phase1Done")
	}
	var zerr *ziskerr.Error
	if !asZiskErr(err, &zerr) || zerr.Kind != ziskerr.KindJobLost {
		t.Fatalf("expected KindJobLost, got %v", err)
	}
	if snap := j.snapshot(); snap.State != JobFailed {
		t.Fatalf("expected Failed, got %s", snap.State)
	}
}

func asZiskErr(err error, target **ziskerr.Error) bool {
	e, ok := err.(*ziskerr.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestJobOnWorkerLostWrongWorker(t *testing.T) {
	j := newJob([]byte("in"))
	j.assign("worker-a")
	if err := j.onWorkerLost("worker-other"); err != nil {
		t.Fatalf("unrelated worker loss must not affect job: %v", err)
	}
	if snap := j.snapshot(); snap.State != JobAssigned {
		t.Fatalf("expected unchanged Assigned state, got %s", snap.State)
	}
}

func TestIsLoopbackRequest(t *testing.T) {
	local := httptest.NewRequest("GET", "/status_info", nil)
	local.RemoteAddr = "127.0.0.1:54321"
	if !isLoopbackRequest(local) {
		t.Fatal("expected 127.0.0.1 to be treated as loopback")
	}

	remote := httptest.NewRequest("GET", "/status_info", nil)
	remote.RemoteAddr = "8.8.8.8:54321"
	if isLoopbackRequest(remote) {
		t.Fatal("expected non-loopback address to be rejected")
	}
}

func TestAdminGuardRejectsNonLoopback(t *testing.T) {
	c := New(config.Default(), nil)
	mux := c.AdminMux()

	req := httptest.NewRequest("GET", "/status_info", nil)
	req.RemoteAddr = "8.8.8.8:1"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != 403 {
		t.Fatalf("expected 403 for non-loopback caller, got %d", rec.Code)
	}

	req2 := httptest.NewRequest("GET", "/status_info", nil)
	req2.RemoteAddr = "127.0.0.1:1"
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)
	if rec2.Code != 200 {
		t.Fatalf("expected 200 for loopback caller, got %d", rec2.Code)
	}
}

// TestAssignJobToWorker exercises a full register -> assign -> phase1
// round trip over a real loopback TCP connection.
func TestAssignJobToWorker(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.MaxConnections = 4
	cfg.HeartbeatSeconds = 60

	c := New(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.ListenAndServe(ctx)

	addr := waitForAddr(t, c)

	received := make(chan ExecuteTaskPayload, 1)
	handler := func(_ context.Context, task ExecuteTaskPayload) ([]byte, error) {
		received <- task
		return []byte("challenges"), nil
	}
	w := NewWorker("worker-1", addr, handler, nil)
	wctx, wcancel := context.WithCancel(context.Background())
	defer wcancel()
	go w.Run(wctx, 2)

	waitForProver(t, c, "worker-1")

	job := c.SubmitJob([]byte("inputs"))

	select {
	case task := <-received:
		if task.JobID != job.ID {
			t.Fatalf("worker received job %s, want %s", task.JobID, job.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("worker never received the assigned task")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if snap, ok := c.JobByID(job.ID); ok && snap.State == JobPhase1Done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap, _ := c.JobByID(job.ID)
	t.Fatalf("job never reached Phase1Done, last state %s", snap.State)
}

func TestMaxConnectionsRejectsExtraProver(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.MaxConnections = 1
	cfg.HeartbeatSeconds = 60

	c := New(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.ListenAndServe(ctx)
	addr := waitForAddr(t, c)

	noop := func(_ context.Context, _ ExecuteTaskPayload) ([]byte, error) { return nil, nil }

	w1 := NewWorker("worker-1", addr, noop, nil)
	w1ctx, w1cancel := context.WithCancel(context.Background())
	defer w1cancel()
	go w1.Run(w1ctx, 1)
	waitForProver(t, c, "worker-1")

	w2 := NewWorker("worker-2", addr, noop, nil)
	err := w2.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected second connection over max_connections to be rejected")
	}
}

func waitForAddr(t *testing.T, c *Coordinator) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := c.Addr(); a != nil {
			return a.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("coordinator never started listening")
	return ""
}

func waitForProver(t *testing.T, c *Coordinator, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, p := range c.ProversList() {
			if p.ID == id {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("prover %s never registered", id)
}
