package coordinator

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// StatusInfo summarizes coordinator health for the status_info admin call.
type StatusInfo struct {
	ActiveConnections int           `json:"active_connections"`
	MaxConnections    int           `json:"max_connections"`
	Uptime            time.Duration `json:"uptime"`
}

// ProverSummary is one row of the provers_list admin call.
type ProverSummary struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
	Load     int    `json:"load"`
}

// JobSummary is one row of the jobs_list admin call / the job_status result.
type JobSummary struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Worker     string    `json:"worker,omitempty"`
	FailReason string    `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SystemStatus bundles StatusInfo with the prover and job rosters, matching
// the reference's combined system_status call.
type SystemStatus struct {
	Status  StatusInfo      `json:"status"`
	Provers []ProverSummary `json:"provers"`
	Jobs    []JobSummary    `json:"jobs"`
}

// StatusInfo reports the coordinator's current connection load.
func (c *Coordinator) StatusInfo() StatusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	uptime := time.Duration(0)
	if !c.startedAt.IsZero() {
		uptime = time.Since(c.startedAt)
	}
	return StatusInfo{
		ActiveConnections: int(c.activeConnections),
		MaxConnections:    c.cfg.MaxConnections,
		Uptime:            uptime,
	}
}

// ProversList reports every currently registered worker.
func (c *Coordinator) ProversList() []ProverSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ProverSummary, 0, len(c.provers))
	for _, pc := range c.provers {
		pc.mu.Lock()
		out = append(out, ProverSummary{ID: pc.id, Capacity: pc.capacity, Load: pc.load})
		pc.mu.Unlock()
	}
	return out
}

// JobsList reports every job the coordinator has ever tracked.
func (c *Coordinator) JobsList() []JobSummary {
	c.mu.Lock()
	jobs := make([]*Job, 0, len(c.jobs))
	for _, j := range c.jobs {
		jobs = append(jobs, j)
	}
	c.mu.Unlock()

	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, summarize(j.snapshot()))
	}
	return out
}

// JobStatus reports one job by id.
func (c *Coordinator) JobStatus(id string) (JobSummary, error) {
	j, ok := c.JobByID(id)
	if !ok {
		return JobSummary{}, ziskerr.InvalidArgumentf("unknown job %s", id)
	}
	return summarize(j), nil
}

// SystemStatus bundles status, provers and jobs in one call.
func (c *Coordinator) SystemStatus() SystemStatus {
	return SystemStatus{Status: c.StatusInfo(), Provers: c.ProversList(), Jobs: c.JobsList()}
}

// StartProof submits inputs as a new job, the admin equivalent of a prover
// submitting work directly.
func (c *Coordinator) StartProof(inputs []byte) JobSummary {
	j := c.SubmitJob(inputs)
	return summarize(j.snapshot())
}

func summarize(j Job) JobSummary {
	return JobSummary{ID: j.ID, State: j.State.String(), Worker: j.Worker, FailReason: j.FailReason, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt}
}

// AdminMux returns an http.Handler exposing status_info, jobs_list,
// provers_list, job_status, system_status and start_proof, each rejecting
// non-loopback callers with permission_denied (§4.9).
func (c *Coordinator) AdminMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status_info", c.adminGuard(c.handleStatusInfo))
	mux.HandleFunc("/jobs_list", c.adminGuard(c.handleJobsList))
	mux.HandleFunc("/provers_list", c.adminGuard(c.handleProversList))
	mux.HandleFunc("/job_status", c.adminGuard(c.handleJobStatus))
	mux.HandleFunc("/system_status", c.adminGuard(c.handleSystemStatus))
	mux.HandleFunc("/start_proof", c.adminGuard(c.handleStartProof))
	return mux
}

// adminGuard rejects any request whose remote address isn't loopback before
// delegating to next, matching validate_admin_request in the reference.
func (c *Coordinator) adminGuard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRequest(r) {
			http.Error(w, ziskerr.PermissionDenied("admin endpoints are restricted to loopback sources").Error(), http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func isLoopbackRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (c *Coordinator) handleStatusInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, c.StatusInfo())
}

func (c *Coordinator) handleJobsList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, c.JobsList())
}

func (c *Coordinator) handleProversList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, c.ProversList())
}

func (c *Coordinator) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	summary, err := c.JobStatus(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, summary)
}

func (c *Coordinator) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, c.SystemStatus())
}

func (c *Coordinator) handleStartProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "start_proof requires POST", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, c.StartProof(body))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
