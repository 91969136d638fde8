// Package plan turns per-chunk secondary-SM counters into the set of STARK
// air-instance plans a prover must run: how many instances each opcode
// family needs, and which chunks' rows land in which instance.
package plan

// ChunkID identifies one emulator chunk.
type ChunkID int

// SegmentID identifies one plan within its air group, assigned in emission
// order.
type SegmentID int

// InstanceType distinguishes a regular proving instance from the one
// table-only instance every air group may carry (constants, ROM, etc.).
type InstanceType int

const (
	InstanceRegular InstanceType = iota
	InstanceTable
)

// CheckPointKind selects which of CheckPoint's fields is populated.
type CheckPointKind int

const (
	CheckPointNone CheckPointKind = iota
	CheckPointSingle
	CheckPointMultiple
)

// CheckPoint records which chunk(s) a plan's rows are collected from.
type CheckPoint struct {
	Kind   CheckPointKind
	Chunk  ChunkID
	Chunks []ChunkID
}

func SingleCheckPoint(c ChunkID) CheckPoint {
	return CheckPoint{Kind: CheckPointSingle, Chunk: c}
}

func MultipleCheckPoint(cs []ChunkID) CheckPoint {
	return CheckPoint{Kind: CheckPointMultiple, Chunks: cs}
}

// Plan is one STARK air instance to be proven: which air, which segment
// within it, and which chunk(s) to re-derive its input rows from.
type Plan struct {
	AirGroupID int
	AirID      int
	SegmentID  *SegmentID
	Type       InstanceType
	CheckPoint CheckPoint

	// MemAlign carries the per-chunk byte-level split a memory-alignment
	// plan needs at collection time; nil for every other kind of plan.
	MemAlign map[ChunkID]*MemAlignCheckPoint
}
