package orchestrator

import "crypto/sha256"

// AirInstance is one finished witness: the concrete rows a secondary (or
// main) state machine produced for one plan, ready to ship to the STARK
// backend.
type AirInstance struct {
	AirGroupID int
	AirID      int
	SegmentID  int
	NumRows    int
	// Digest stands in for the actual trace commitment this air instance
	// would carry; the backend itself is external (§6), so only enough
	// shape is kept here to drive a deterministic Backend implementation.
	Digest [32]byte
}

// Challenge is the fixed-size value the STARK backend returns per
// instance after phase 1 (§6 "Challenge").
type Challenge [4]uint64

// Proof is the final aggregated result phase 2 returns.
type Proof struct {
	Bytes []byte
}

// Backend is generate_proof_from_lib (§6), treated as external: the
// orchestrator's job is to assemble correct phase_inputs and route
// results, not to implement STARK folding itself.
type Backend interface {
	// Contributions runs phase 1 against the assembled air instances,
	// returning one challenge per instance in instance order.
	Contributions(instances []AirInstance) ([]Challenge, error)

	// Internal runs phase 2 against the all-gathered challenges, returning
	// the final proof.
	Internal(challenges []Challenge) (*Proof, error)
}

// stubBackend is a deterministic, hash-based stand-in for the real STARK
// backend: enough to exercise the orchestrator's phase-1/phase-2 wiring
// and its own tests without linking an actual prover. Never used outside
// this module's default wiring in New.
type stubBackend struct{}

func (stubBackend) Contributions(instances []AirInstance) ([]Challenge, error) {
	out := make([]Challenge, len(instances))
	for i, inst := range instances {
		h := sha256.Sum256(inst.Digest[:])
		var c Challenge
		for j := range c {
			c[j] = beU64(h[j*8 : j*8+8])
		}
		out[i] = c
	}
	return out, nil
}

func (stubBackend) Internal(challenges []Challenge) (*Proof, error) {
	h := sha256.New()
	for _, c := range challenges {
		for _, w := range c {
			var b [8]byte
			putBeU64(b[:], w)
			h.Write(b[:])
		}
	}
	return &Proof{Bytes: h.Sum(nil)}, nil
}

func beU64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func putBeU64(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
