package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// JobState is one point in a job's lifecycle: Pending -> Assigned ->
// Phase1Done -> Phase2Done, or Failed from any of those (§4.9).
type JobState int

const (
	JobPending JobState = iota
	JobAssigned
	JobPhase1Done
	JobPhase2Done
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "Pending"
	case JobAssigned:
		return "Assigned"
	case JobPhase1Done:
		return "Phase1Done"
	case JobPhase2Done:
		return "Phase2Done"
	case JobFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Job is one proof-generation request the coordinator is tracking. Inputs,
// Challenges and Proof are opaque blobs the worker and backend interpret;
// the coordinator only routes and tracks them.
type Job struct {
	mu sync.Mutex

	ID         string
	State      JobState
	Worker     string
	Inputs     []byte
	Challenges []byte
	Proof      []byte
	FailReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// newJob allocates a fresh Pending job with a random ID.
func newJob(inputs []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		State:     JobPending,
		Inputs:    inputs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// assign transitions Pending -> Assigned(worker).
func (j *Job) assign(worker string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Worker = worker
	j.State = JobAssigned
	j.UpdatedAt = time.Now()
}

// completePhase1 transitions Assigned -> Phase1Done(challenges).
func (j *Job) completePhase1(challenges []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Challenges = challenges
	j.State = JobPhase1Done
	j.UpdatedAt = time.Now()
}

// completePhase2 transitions Phase1Done -> Phase2Done(proof).
func (j *Job) completePhase2(proof []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Proof = proof
	j.State = JobPhase2Done
	j.UpdatedAt = time.Now()
}

// fail transitions any state -> Failed.
func (j *Job) fail(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.State = JobFailed
	j.FailReason = reason
	j.UpdatedAt = time.Now()
}

// revertToPending puts an Assigned job (one whose worker vanished before
// contributions were accepted) back in the queue for reassignment.
func (j *Job) revertToPending() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Worker = ""
	j.State = JobPending
	j.UpdatedAt = time.Now()
}

// snapshot copies the fields job_status/jobs_list need without holding the
// lock across the caller's use of the result.
func (j *Job) snapshot() Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Job{
		ID:         j.ID,
		State:      j.State,
		Worker:     j.Worker,
		FailReason: j.FailReason,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

// onWorkerLost applies the JobLost policy decided for this implementation:
// a job already past Phase1Done is not resumable by a different worker, so
// it is failed outright; one still Assigned simply re-enters Pending.
func (j *Job) onWorkerLost(worker string) error {
	j.mu.Lock()
	same := j.Worker == worker
	state := j.State
	j.mu.Unlock()
	if !same {
		return nil
	}
	switch state {
	case JobAssigned:
		j.revertToPending()
		return nil
	case JobPhase1Done:
		err := ziskerr.JobLost(j.ID)
		j.fail(err.Error())
		return err
	default:
		return nil
	}
}
