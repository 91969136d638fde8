package plan

// Memory-alignment row accounting. Each of the five row types has a fixed
// row cost in the MemAlignment air: full_5 costs 5 rows, full_3 costs 3,
// full_2 costs 2, and byte-granularity reads/writes that go through the
// dedicated byte airs cost 1 row each. Which accesses land in which type is
// decided by statemachine's classifyMemAccess. These constants
// and the five-type cost/order model below are transcribed from
// mem_align_planner.rs's four MemAlignInstanceCounter constructions.
const (
	costFull5     = 5
	costFull3     = 3
	costFull2     = 2
	costReadByte  = 1
	costWriteByte = 1

	rowsWriteByte      = 3
	rowsReadByte       = 2
	worseFragmentation = 4
)

// Row-type indices shared by every MemAlignInstanceCounter's collectData/
// used/costs arrays.
const (
	maFull5 = iota
	maFull3
	maFull2
	maReadByte
	maWriteByte
	maTypeCount
)

// MemAlignCounts is one chunk's tally of memory-alignment operations, as
// produced by the counting pass over that chunk's MEM_BUS_ID events.
type MemAlignCounts struct {
	Full5     uint64
	Full2     uint64
	Full3     uint64
	ReadByte  uint64
	WriteByte uint64
}

func (m MemAlignCounts) array() [maTypeCount]uint64 {
	return [maTypeCount]uint64{m.Full5, m.Full3, m.Full2, m.ReadByte, m.WriteByte}
}

// CollectCounter is the (skip, count) pair an input collector needs to find
// its first row of interest and how many to take, without resimulating the
// whole chunk.
type CollectCounter struct {
	Skip  uint64
	Count uint64
}

type collectData struct {
	skip  uint64
	count uint64
}

func (d *collectData) add(count, skip uint64) {
	if d.count == 0 {
		d.skip = skip
		d.count = count
		return
	}
	d.count += count
}

func (d collectData) counter() CollectCounter {
	return CollectCounter{Skip: d.skip, Count: d.count}
}

// MemAlignCheckPoint records, per type, which rows of one chunk a
// memory-alignment instance needs to collect.
type MemAlignCheckPoint struct {
	AirID     int
	ChunkID   ChunkID
	Full5     CollectCounter
	Full3     CollectCounter
	Full2     CollectCounter
	ReadByte  CollectCounter
	WriteByte CollectCounter
}

// MemAlignInstanceCounter greedily fills fixed-row-count instances from a
// stream of per-chunk (type, count) totals, opening a new instance whenever
// the current one runs out of rows for the next unit of work, and emitting
// one Plan per closed instance. Ported from
// mem_align_instance_counter.rs's MemAlignInstanceCounter.
type MemAlignInstanceCounter struct {
	airID              int
	numRows            uint64
	rowsAvailable      uint64
	instancesAvailable int
	costs              [maTypeCount]uint64
	order              []int

	chunks      []ChunkID
	checkpoints map[ChunkID]*MemAlignCheckPoint
	collectData [maTypeCount]collectData
	used        [maTypeCount]uint64

	plans []*Plan
}

func newMemAlignInstanceCounter(airID int, numRows uint64, maxInstances int, costs [maTypeCount]uint64, order []int) *MemAlignInstanceCounter {
	return &MemAlignInstanceCounter{
		airID:              airID,
		numRows:            numRows,
		instancesAvailable: maxInstances,
		costs:              costs,
		order:              order,
		checkpoints:        map[ChunkID]*MemAlignCheckPoint{},
	}
}

// addToInstance distributes one chunk's per-type pending counts across
// whatever instances are needed, in the counter's configured processing
// order, closing and opening instances as rows run out. totals holds the
// chunk's full per-type counts (used to compute each CollectCounter's skip);
// pendings is mutated down to zero as rows are consumed.
func (c *MemAlignInstanceCounter) addToInstance(chunkID ChunkID, totals, pendings *[maTypeCount]uint64) {
	changed := false
	for _, i := range c.order {
		cost := c.costs[i]
		if cost == 0 {
			continue
		}
		for pendings[i] > 0 {
			if c.rowsAvailable < cost {
				if changed {
					c.closeChunk(chunkID)
					changed = false
				}
				if !c.closeAndOpenInstance() {
					return
				}
			}
			if cost*pendings[i] <= c.rowsAvailable {
				c.collectData[i].add(pendings[i], totals[i]-pendings[i])
				c.used[i] += pendings[i]
				c.rowsAvailable -= cost * pendings[i]
				pendings[i] = 0
				changed = true
				continue
			}
			partial := c.rowsAvailable / cost
			if partial == 0 {
				// unreachable given the rowsAvailable < cost check above,
				// which always forces an instance with rowsAvailable >= cost
				// before this branch runs
				return
			}
			c.collectData[i].add(partial, totals[i]-pendings[i])
			c.used[i] += partial
			c.rowsAvailable -= cost * partial
			pendings[i] -= partial
			changed = true
		}
	}
	if changed {
		c.closeChunk(chunkID)
	}
}

func (c *MemAlignInstanceCounter) closeChunk(chunkID ChunkID) {
	cp := &MemAlignCheckPoint{
		AirID:     c.airID,
		ChunkID:   chunkID,
		Full5:     c.collectData[maFull5].counter(),
		Full3:     c.collectData[maFull3].counter(),
		Full2:     c.collectData[maFull2].counter(),
		ReadByte:  c.collectData[maReadByte].counter(),
		WriteByte: c.collectData[maWriteByte].counter(),
	}
	c.checkpoints[chunkID] = cp
	c.collectData = [maTypeCount]collectData{}
	c.chunks = append(c.chunks, chunkID)
}

func (c *MemAlignInstanceCounter) closeAndOpenInstance() bool {
	c.closeInstance()
	return c.openNewInstance()
}

func (c *MemAlignInstanceCounter) openNewInstance() bool {
	if c.instancesAvailable == 0 {
		return false
	}
	c.rowsAvailable = c.numRows
	c.instancesAvailable--
	c.chunks = nil
	return true
}

func (c *MemAlignInstanceCounter) closeInstance() {
	if len(c.chunks) == 0 {
		return
	}
	sid := SegmentID(len(c.plans))
	cps := c.checkpoints
	c.checkpoints = map[ChunkID]*MemAlignCheckPoint{}
	chunks := c.chunks
	c.chunks = nil
	c.plans = append(c.plans, &Plan{
		AirID:      c.airID,
		SegmentID:  &sid,
		Type:       InstanceRegular,
		CheckPoint: MultipleCheckPoint(chunks),
		MemAlign:   cps,
	})
}

// closeAllInstances flushes whatever instance is still open at the end of a
// run; call once after the last AddChunk.
func (c *MemAlignInstanceCounter) closeAllInstances() { c.closeInstance() }

func (c *MemAlignInstanceCounter) drainPlans() []*Plan {
	out := c.plans
	c.plans = nil
	return out
}

// MemAlignPlanner owns the four MemAlignInstanceCounters (a general-purpose
// "full" instance that accepts all five access types, plus three
// specialized byte-granularity instances) and decides, chunk by chunk, how
// many dedicated byte instances are worth opening versus folding byte
// traffic into full instances. Ported from mem_align_planner.rs's
// MemAlignPlanner.
type MemAlignPlanner struct {
	full      *MemAlignInstanceCounter
	readByte  *MemAlignInstanceCounter
	writeByte *MemAlignInstanceCounter
	byte_     *MemAlignInstanceCounter

	totalFullRows  uint64
	totalReadByte  uint64
	totalWriteByte uint64
}

// NewMemAlignPlanner builds a planner for the given air IDs and per-air row
// budgets. maxInstances bounds how many instances of each kind the planner
// may open; a real run sizes this from the process's configured instance
// budget for the corresponding air.
func NewMemAlignPlanner(fullAirID, readByteAirID, writeByteAirID, byteAirID int, numRows uint64, maxInstances int) *MemAlignPlanner {
	return &MemAlignPlanner{
		full:      newMemAlignInstanceCounter(fullAirID, numRows, maxInstances, [maTypeCount]uint64{costFull5, costFull3, costFull2, costReadByte, costWriteByte}, []int{maFull5, maFull3, maFull2, maReadByte, maWriteByte}),
		readByte:  newMemAlignInstanceCounter(readByteAirID, numRows, maxInstances, [maTypeCount]uint64{0, 0, 0, costReadByte, 0}, []int{maReadByte}),
		writeByte: newMemAlignInstanceCounter(writeByteAirID, numRows, maxInstances, [maTypeCount]uint64{0, 0, 0, 0, costWriteByte}, []int{maWriteByte}),
		byte_:     newMemAlignInstanceCounter(byteAirID, numRows, maxInstances, [maTypeCount]uint64{0, 0, 0, costReadByte, costWriteByte}, []int{maWriteByte, maReadByte}),
	}
}

// Strategy names which dedicated byte instances are worth opening, picked
// from calculateStrategyFromTotals's comparison of fragmentation rows in the
// full instances against the cost of a dedicated byte instance.
type Strategy struct {
	Name           string
	ByteInstances  int
	ReadInstances  int
	WriteInstances int
	FullInstances  int
}

// calculateStrategyFromTotals ports the seven-branch decision tree from
// MemAlignPlanner::calculate_strategy_from_totals: given the aggregate
// row demand, it decides whether read_byte/write_byte traffic is cheaper
// to route through dedicated single-purpose instances, a combined byte
// instance, or left folded into the general-purpose full instances.
func calculateStrategyFromTotals(numRows, fullRows, readByte, writeByte uint64, fullInstancesOpen int) Strategy {
	// Rows a full instance wastes per instance in the worst case when byte
	// traffic is folded in rather than routed to a dedicated byte air.
	fullFreeRows := uint64(0)
	if fullInstancesOpen > 0 {
		used := fullRows % numRows
		if used != 0 {
			fullFreeRows = numRows - used
		}
	}
	if fullFreeRows > worseFragmentation*uint64(fullInstancesOpen) {
		fullFreeRows -= worseFragmentation * uint64(fullInstancesOpen)
	} else {
		fullFreeRows = 0
	}

	pReadByte := readByte % numRows
	pWriteByte := writeByte % numRows

	switch {
	case pReadByte == 0 && pWriteByte == 0:
		return Strategy{Name: "+0"}
	case pReadByte > 0 && pWriteByte == 0 && pReadByte <= fullFreeRows:
		return Strategy{Name: "+0"}
	case pWriteByte > 0 && pReadByte == 0 && pWriteByte <= fullFreeRows:
		return Strategy{Name: "+0"}
	case pReadByte > 0 && pWriteByte == 0:
		return Strategy{Name: "+read_byte", ReadInstances: 1}
	case pWriteByte > 0 && pReadByte == 0:
		return Strategy{Name: "+write_byte", WriteInstances: 1}
	case pReadByte*rowsReadByte+pWriteByte*rowsWriteByte <= numRows:
		return Strategy{Name: "+byte", ByteInstances: 1}
	case pReadByte+pWriteByte <= fullFreeRows:
		return Strategy{Name: "+byte +0", ByteInstances: 1}
	default:
		return Strategy{Name: "+read_byte +write_byte", ReadInstances: 1, WriteInstances: 1}
	}
}

// AddChunk folds one chunk's memory-alignment totals into the planner.
// Byte-granularity traffic (read_byte/write_byte) is routed to the
// dedicated instance(s) named by the Strategy computed from the running
// totals, this chunk included; under the "+0" strategy it goes to the
// general-purpose full instances with everything else. Byte rows a
// dedicated counter cannot place once its instance budget is spent are
// dropped, not moved to the full instances.
func (p *MemAlignPlanner) AddChunk(chunkID ChunkID, counts MemAlignCounts) {
	p.totalFullRows += counts.Full5*costFull5 + counts.Full3*costFull3 + counts.Full2*costFull2
	p.totalReadByte += counts.ReadByte
	p.totalWriteByte += counts.WriteByte

	totals := counts.array()
	fullPending := totals
	bytePending := [maTypeCount]uint64{}

	strategy := calculateStrategyFromTotals(p.full.numRows, p.totalFullRows, p.totalReadByte, p.totalWriteByte, max1(len(p.full.plans)+boolToInt(p.full.rowsAvailable > 0)))

	switch strategy.Name {
	case "+read_byte":
		bytePending[maReadByte] = totals[maReadByte]
		fullPending[maReadByte] = 0
		p.readByte.addToInstance(chunkID, &totals, &bytePending)
	case "+write_byte":
		wp := [maTypeCount]uint64{}
		wp[maWriteByte] = totals[maWriteByte]
		fullPending[maWriteByte] = 0
		p.writeByte.addToInstance(chunkID, &totals, &wp)
	case "+byte", "+byte +0":
		bp := [maTypeCount]uint64{maReadByte: totals[maReadByte], maWriteByte: totals[maWriteByte]}
		fullPending[maReadByte] = 0
		fullPending[maWriteByte] = 0
		p.byte_.addToInstance(chunkID, &totals, &bp)
	case "+read_byte +write_byte":
		rp := [maTypeCount]uint64{maReadByte: totals[maReadByte]}
		wp := [maTypeCount]uint64{maWriteByte: totals[maWriteByte]}
		fullPending[maReadByte] = 0
		fullPending[maWriteByte] = 0
		p.readByte.addToInstance(chunkID, &totals, &rp)
		p.writeByte.addToInstance(chunkID, &totals, &wp)
	}

	p.full.addToInstance(chunkID, &totals, &fullPending)
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close flushes any still-open instances and returns every plan the
// planner has produced, in the fixed order the reference emits them:
// read_byte, write_byte, byte, full.
func (p *MemAlignPlanner) Close() []*Plan {
	p.readByte.closeAllInstances()
	p.writeByte.closeAllInstances()
	p.byte_.closeAllInstances()
	p.full.closeAllInstances()

	var out []*Plan
	out = append(out, p.readByte.drainPlans()...)
	out = append(out, p.writeByte.drainPlans()...)
	out = append(out, p.byte_.drainPlans()...)
	out = append(out, p.full.drainPlans()...)
	return out
}
