package plan

// SimplePlanner bins one state machine's per-chunk row counts into
// fixed-size instances: a chunk's rows fill what is left of the current
// instance and the rest opens a new one, so a chunk whose rows straddle an
// instance boundary is listed in both instances' checkpoints. Unlike
// MemAlignPlanner there is only one row type and one processing order, and
// no per-chunk skip/count is recorded — every non-memory-alignment
// secondary state machine (Binary, BinaryExtended, Arith, Arith32,
// ArithAm32, Keccak, ...) uses one of these.
type SimplePlanner struct {
	airGroupID  int
	airID       int
	numRows     uint64
	maxInstance int

	rowsAvailable uint64
	chunks        []ChunkID
	plans         []*Plan
}

func NewSimplePlanner(airGroupID, airID int, numRows uint64, maxInstances int) *SimplePlanner {
	return &SimplePlanner{airGroupID: airGroupID, airID: airID, numRows: numRows, maxInstance: maxInstances}
}

// AddChunk assigns rows rows of chunkID's work to the current instance,
// opening additional instances as needed. A chunk's rows are split across
// instances whenever they do not fit in what remains of the current one;
// once maxInstances instances are open, rows that do not fit are dropped.
func (p *SimplePlanner) AddChunk(chunkID ChunkID, rows uint64) {
	if rows == 0 {
		return
	}
	if len(p.chunks) == 0 && p.rowsAvailable == 0 {
		p.openInstance()
	}
	for rows > 0 {
		if p.rowsAvailable == 0 {
			p.closeInstance()
			if !p.openInstance() {
				return
			}
		}
		take := rows
		if take > p.rowsAvailable {
			take = p.rowsAvailable
		}
		p.rowsAvailable -= take
		rows -= take
		if len(p.chunks) == 0 || p.chunks[len(p.chunks)-1] != chunkID {
			p.chunks = append(p.chunks, chunkID)
		}
	}
}

func (p *SimplePlanner) openInstance() bool {
	if p.maxInstance > 0 && len(p.plans)+boolToInt(p.rowsAvailable > 0 || len(p.chunks) > 0) >= p.maxInstance {
		return false
	}
	p.rowsAvailable = p.numRows
	p.chunks = nil
	return true
}

func (p *SimplePlanner) closeInstance() {
	if len(p.chunks) == 0 {
		return
	}
	sid := SegmentID(len(p.plans))
	chunks := p.chunks
	p.chunks = nil
	p.plans = append(p.plans, &Plan{
		AirGroupID: p.airGroupID,
		AirID:      p.airID,
		SegmentID:  &sid,
		Type:       InstanceRegular,
		CheckPoint: MultipleCheckPoint(chunks),
	})
}

// Close flushes the last open instance and returns every plan produced.
func (p *SimplePlanner) Close() []*Plan {
	p.closeInstance()
	out := p.plans
	p.plans = nil
	return out
}
