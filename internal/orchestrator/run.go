// Package orchestrator coordinates A (rom) → B (emulator) + D (databus) →
// F (plan) → E (statemachine) → the external STARK backend, per §4.8's two
// phase contributions/internal protocol.
package orchestrator

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sort"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/0xPolygonHermez/zisk-sub004/internal/databus"
	"github.com/0xPolygonHermez/zisk-sub004/internal/distctx"
	"github.com/0xPolygonHermez/zisk-sub004/internal/emulator"
	"github.com/0xPolygonHermez/zisk-sub004/internal/plan"
	"github.com/0xPolygonHermez/zisk-sub004/internal/progress"
	"github.com/0xPolygonHermez/zisk-sub004/internal/rom"
	"github.com/0xPolygonHermez/zisk-sub004/internal/statemachine"
)

// Options configures one end-to-end prove run (§4.8 phase 0/1/2).
type Options struct {
	ELF         []byte
	ChunkSize   uint64
	MaxSteps    uint64
	RomCacheDir string // "" disables ROM disk caching

	// Dctx is the distribution context that owns instance ownership. nil
	// defaults to a single-process context (distctx.New()).
	Dctx *distctx.Ctx

	// Backend is the external STARK backend (§6). nil defaults to
	// stubBackend, a deterministic hash-based stand-in.
	Backend Backend

	// Reporter surfaces phase/chunk/instance progress. nil defaults to a
	// no-op reporter.
	Reporter progress.Reporter
}

type noopReporter struct{}

func (noopReporter) Phase(string)           {}
func (noopReporter) Chunk(int, int)         {}
func (noopReporter) Instance(int, int)      {}
func (noopReporter) Done()                  {}
func (noopReporter) Fail(error)              {}
func (noopReporter) Close()                 {}

// chunkCounters bundles everything the counting pass (phase 1 step 1)
// learns about one chunk: the coarse per-family row totals the planners
// consume, plus the per-opcode totals an InputCollector needs to carve out
// its own window once a plan has been decided.
type chunkCounters struct {
	rom  emulator.Counters
	mem  plan.MemAlignCounts
	ops  map[zisk_OpFamily]map[uint8]uint64
}

// zisk_OpFamily is a small local alias so this file doesn't need to import
// the zisk package just to name its OpType constants in a map key; the
// values used below are statemachine.Engine's own family tags.
type zisk_OpFamily int

const (
	famBinary zisk_OpFamily = iota
	famBinaryE
	famArith
	famArith32
	famArithAm32
	famKeccak
)

var families = []struct {
	fam        zisk_OpFamily
	airGroupID int
	newEngine  func() *statemachine.Engine
}{
	{famBinary, AirGroupBinary, statemachine.NewBinary},
	{famBinaryE, AirGroupBinaryExtended, statemachine.NewBinaryExtended},
	{famArith, AirGroupArith, statemachine.NewArith},
	{famArith32, AirGroupArith32, statemachine.NewArith32},
	{famArithAm32, AirGroupArithAm32, statemachine.NewArithAm32},
	{famKeccak, AirGroupKeccak, statemachine.NewKeccak},
}

// Execute runs one complete prove job end to end: phase 0 (ROM), phase 1
// (contributions) and phase 2 (internal), returning the final proof.
func Execute(opts Options) (*Proof, error) {
	dctx := opts.Dctx
	if dctx == nil {
		dctx = distctx.New()
	}
	backend := opts.Backend
	if backend == nil {
		backend = stubBackend{}
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = noopReporter{}
	}
	defer reporter.Close()

	reporter.Phase("build-rom")
	r, err := buildROM(opts.ELF, opts.RomCacheDir)
	if err != nil {
		reporter.Fail(err)
		return nil, err
	}

	reporter.Phase("emulate")
	result, err := emulator.Run(r, emulator.Options{ChunkSize: opts.ChunkSize, MaxSteps: opts.MaxSteps})
	if err != nil {
		reporter.Fail(err)
		return nil, err
	}
	chunks := result.Chunks
	reporter.Chunk(len(chunks), len(chunks))

	reporter.Phase("count")
	counters, err := countChunks(r, chunks)
	if err != nil {
		reporter.Fail(err)
		return nil, err
	}

	reporter.Phase("plan")
	plans := buildPlans(chunks, counters)

	reporter.Phase("instances")
	type owned struct {
		globalIdx int
		plan      *plan.Plan
	}
	var mine []owned
	for _, p := range plans {
		isMine, globalIdx := dctx.AddInstance(p.AirGroupID, p.AirID, weightOf(p))
		if isMine {
			mine = append(mine, owned{globalIdx: globalIdx, plan: p})
		}
	}
	dctx.Close()

	reporter.Phase("compute-witness")
	byGlobal := map[int]AirInstance{}
	var mu errgroup.Group
	results := make([]AirInstance, len(mine))
	errs := make([]error, len(mine))
	for i, o := range mine {
		i, o := i, o
		mu.Go(func() error {
			inst, err := computeWitness(r, chunks, counters, o.plan)
			results[i] = inst
			errs[i] = err
			return err
		})
	}
	if err := mu.Wait(); err != nil {
		var combined error
		for _, e := range errs {
			combined = multierr.Append(combined, e)
		}
		reporter.Fail(combined)
		return nil, combined
	}
	for i, o := range mine {
		byGlobal[o.globalIdx] = results[i]
		reporter.Instance(o.plan.AirGroupID, o.plan.AirID)
	}

	myOrdered := make([]AirInstance, 0, len(dctx.MyInstances))
	for _, g := range dctx.MyInstances {
		myOrdered = append(myOrdered, byGlobal[g])
	}

	reporter.Phase("contributions")
	myChallenges, err := backend.Contributions(myOrdered)
	if err != nil {
		reporter.Fail(err)
		return nil, err
	}

	flat := flattenChallenges(myChallenges)
	allFlat := dctx.DistributeRoots(flat)
	allChallenges := unflattenChallenges(allFlat)

	reporter.Phase("internal")
	proof, err := backend.Internal(allChallenges)
	if err != nil {
		reporter.Fail(err)
		return nil, err
	}

	reporter.Done()
	return proof, nil
}

// weightOf estimates an instance's relative cost for OwnersWeight load
// balancing as the number of chunks its checkpoint covers: a single-chunk
// plan weighs 1 and a multi-chunk plan (the main table included) weighs one
// per chunk.
func weightOf(p *plan.Plan) uint64 {
	switch p.CheckPoint.Kind {
	case plan.CheckPointSingle:
		return 1
	case plan.CheckPointMultiple:
		return uint64(len(p.CheckPoint.Chunks))
	default:
		return 1
	}
}

// countChunks runs the counting pass (§4.8 phase 1 step 1) over every chunk
// in parallel, preserving chunk order in the returned slice: each chunk's
// counters are independent of every other chunk's, so an errgroup fans the
// work out across the pool described in §5.
func countChunks(r *rom.Rom, chunks []*emulator.Trace) ([]chunkCounters, error) {
	out := make([]chunkCounters, len(chunks))
	var g errgroup.Group
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			cc, err := countChunk(r, c)
			out[i] = cc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func countChunk(r *rom.Rom, c *emulator.Trace) (chunkCounters, error) {
	bus := databus.New()
	romMem := databus.NewCounterDevice(c.ChunkID)
	bus.Register(databus.RomBusID, romMem)
	bus.Register(databus.MemBusID, romMem)

	memAlign := statemachine.NewMemoryCounter()
	bus.Register(databus.MemBusID, memAlign)

	opCounters := map[zisk_OpFamily]*statemachine.Counter{}
	for _, f := range families {
		eng := f.newEngine()
		opCounters[f.fam] = eng.NewCounter()
		bus.Register(databus.OperationBusID, opCounters[f.fam])
	}

	if err := databus.Replay(r, c, bus); err != nil {
		return chunkCounters{}, err
	}
	bus.Close()

	ops := map[zisk_OpFamily]map[uint8]uint64{}
	for fam, cnt := range opCounters {
		ops[fam] = cnt.Totals()
	}
	return chunkCounters{rom: romMem.Counters(), mem: memAlign.Totals(), ops: ops}, nil
}

// buildPlans runs the planner (§4.6) over every chunk's counters in chunk
// order, producing the Main per-chunk instances, one Main table instance,
// one SimplePlanner per opcode family, and the memory-alignment planner's
// four air shapes, in that fixed registration order — the order every
// process in a distributed run must agree on (§5's "the builder is
// deterministic given the ELF and input").
func buildPlans(chunks []*emulator.Trace, counters []chunkCounters) []*plan.Plan {
	var out []*plan.Plan

	for i := range chunks {
		out = append(out, &plan.Plan{
			AirGroupID: AirGroupMain,
			AirID:      AirGroupMain,
			Type:       plan.InstanceRegular,
			CheckPoint: plan.SingleCheckPoint(plan.ChunkID(i)),
		})
	}
	out = append(out, &plan.Plan{
		AirGroupID: AirGroupMain,
		AirID:      AirGroupMain,
		Type:       plan.InstanceTable,
		CheckPoint: plan.MultipleCheckPoint(chunkIDRange(len(chunks))),
	})

	for _, f := range families {
		sp := plan.NewSimplePlanner(f.airGroupID, f.airGroupID, RowBudget, MaxInstances)
		for i, cc := range counters {
			var rows uint64
			for _, n := range cc.ops[f.fam] {
				rows += n
			}
			sp.AddChunk(plan.ChunkID(i), rows)
		}
		out = append(out, sp.Close()...)
	}

	mp := plan.NewMemAlignPlanner(AirGroupMemFull, AirGroupMemReadByte, AirGroupMemWriteByte, AirGroupMemByte, RowBudget, MaxInstances)
	for i, cc := range counters {
		mp.AddChunk(plan.ChunkID(i), cc.mem)
	}
	out = append(out, mp.Close()...)

	return out
}

func chunkIDRange(n int) []plan.ChunkID {
	out := make([]plan.ChunkID, n)
	for i := range out {
		out[i] = plan.ChunkID(i)
	}
	return out
}

// computeWitness materializes one air instance's concrete rows (§4.8 phase
// 1 steps 4-5) and digests them into an AirInstance ready for the STARK
// backend. The real backend would receive the full row matrix; only a
// deterministic digest is kept here since trace-column layout is external
// (§1 non-goals).
func computeWitness(r *rom.Rom, chunks []*emulator.Trace, counters []chunkCounters, p *plan.Plan) (AirInstance, error) {
	switch {
	case p.AirGroupID == AirGroupMain && p.Type == plan.InstanceTable:
		return computeMainTable(r, chunks)
	case p.AirGroupID == AirGroupMain:
		return computeMainChunk(r, chunks[p.CheckPoint.Chunk])
	case p.MemAlign != nil:
		return computeMemAlignWitness(r, chunks, p)
	default:
		return computeFamilyWitness(r, chunks, counters, p)
	}
}

// computeMainChunk certifies one chunk's own execution trace: the Main SM
// instance the spec says exists "one per chunk."
func computeMainChunk(r *rom.Rom, c *emulator.Trace) (AirInstance, error) {
	h := sha256.New()
	bus := databus.New()
	bus.RegisterOmni(hashDevice{h: h})
	if err := databus.Replay(r, c, bus); err != nil {
		return AirInstance{}, err
	}
	bus.Close()
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return AirInstance{AirGroupID: AirGroupMain, AirID: AirGroupMain, SegmentID: c.ChunkID, NumRows: int(c.StepsRun), Digest: digest}, nil
}

// computeMainTable aggregates every chunk's own main digest into the
// global table instance (§4.8 phase 1 step 6: "Register tables (global SM
// state aggregated across ranks) after instances").
func computeMainTable(r *rom.Rom, chunks []*emulator.Trace) (AirInstance, error) {
	h := sha256.New()
	for _, c := range chunks {
		inst, err := computeMainChunk(r, c)
		if err != nil {
			return AirInstance{}, err
		}
		h.Write(inst.Digest[:])
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return AirInstance{AirGroupID: AirGroupMain, AirID: AirGroupMain, NumRows: len(chunks), Digest: digest}, nil
}

// hashDevice feeds every bus event's step/pc/opcode tuple into a running
// digest, standing in for the Main SM's actual trace-column encoding.
type hashDevice struct{ h io.Writer }

func (d hashDevice) ProcessData(_ databus.BusID, ev databus.Event, _ *[]databus.PendingEvent) bool {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], ev.Step)
	binary.LittleEndian.PutUint64(buf[8:16], ev.PC)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(ev.Opcode))
	d.h.Write(buf[:])
	return true
}

func (d hashDevice) OnClose() {}

// computeFamilyWitness rebuilds one SimplePlanner-produced instance's
// concrete rows by replaying every chunk the plan claims and collecting
// every row of this family the chunk produced.
//
// SimplePlanner's checkpoints carry no per-chunk skip/count, so a chunk
// whose rows the planner split across two instances (whenever its rows
// straddle an instance's row budget) contributes all of its rows to each
// of those instances here.
func computeFamilyWitness(r *rom.Rom, chunks []*emulator.Trace, counters []chunkCounters, p *plan.Plan) (AirInstance, error) {
	var fam zisk_OpFamily
	var newEngine func() *statemachine.Engine
	for _, f := range families {
		if f.airGroupID == p.AirGroupID {
			fam, newEngine = f.fam, f.newEngine
			break
		}
	}

	eng := newEngine()
	var rows []statemachine.Row
	for _, chunkID := range checkpointChunks(p.CheckPoint) {
		c := chunks[chunkID]
		totals := counters[chunkID].ops[fam]
		skip := map[uint8]uint64{}
		ic := eng.NewInputCollector(skip, totals)
		bus := databus.New()
		bus.Register(databus.OperationBusID, ic)
		if err := databus.Replay(r, c, bus); err != nil {
			return AirInstance{}, err
		}
		bus.Close()
		rows = append(rows, ic.Rows()...)
	}

	h := sha256.New()
	for _, row := range rows {
		var buf [40]byte
		binary.LittleEndian.PutUint64(buf[0:8], row.Step)
		binary.LittleEndian.PutUint64(buf[8:16], row.A)
		binary.LittleEndian.PutUint64(buf[16:24], row.B)
		binary.LittleEndian.PutUint64(buf[24:32], row.C)
		buf[32] = row.Opcode
		h.Write(buf[:])
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	segID := 0
	if p.SegmentID != nil {
		segID = int(*p.SegmentID)
	}
	return AirInstance{AirGroupID: p.AirGroupID, AirID: p.AirID, SegmentID: segID, NumRows: len(rows), Digest: digest}, nil
}

// computeMemAlignWitness rebuilds one memory-alignment instance's concrete
// rows from its exact per-chunk, per-type checkpoints (§4.6's
// MemAlignCheckPoint), which — unlike SimplePlanner's plans — always
// record the precise skip/count window even when a chunk's traffic is
// split across instances.
func computeMemAlignWitness(r *rom.Rom, chunks []*emulator.Trace, p *plan.Plan) (AirInstance, error) {
	var rows []statemachine.MemRow
	chunkIDs := checkpointChunks(p.CheckPoint)
	sort.Slice(chunkIDs, func(i, j int) bool { return chunkIDs[i] < chunkIDs[j] })
	for _, chunkID := range chunkIDs {
		cp := p.MemAlign[chunkID]
		if cp == nil {
			continue
		}
		c := chunks[chunkID]
		ic := statemachine.NewMemoryInputCollector(cp)
		bus := databus.New()
		bus.Register(databus.MemBusID, ic)
		if err := databus.Replay(r, c, bus); err != nil {
			return AirInstance{}, err
		}
		bus.Close()
		rows = append(rows, ic.Rows()...)
	}

	h := sha256.New()
	for _, row := range rows {
		var buf [25]byte
		binary.LittleEndian.PutUint64(buf[0:8], row.Step)
		binary.LittleEndian.PutUint64(buf[8:16], row.Addr)
		binary.LittleEndian.PutUint64(buf[16:24], row.Value)
		if row.IsWrite {
			buf[24] = 1
		}
		h.Write(buf[:])
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	segID := 0
	if p.SegmentID != nil {
		segID = int(*p.SegmentID)
	}
	return AirInstance{AirGroupID: p.AirGroupID, AirID: p.AirID, SegmentID: segID, NumRows: len(rows), Digest: digest}, nil
}

func checkpointChunks(cp plan.CheckPoint) []plan.ChunkID {
	switch cp.Kind {
	case plan.CheckPointSingle:
		return []plan.ChunkID{cp.Chunk}
	case plan.CheckPointMultiple:
		return cp.Chunks
	default:
		return nil
	}
}

func flattenChallenges(cs []Challenge) []uint64 {
	out := make([]uint64, 0, len(cs)*4)
	for _, c := range cs {
		out = append(out, c[0], c[1], c[2], c[3])
	}
	return out
}

func unflattenChallenges(flat []uint64) []Challenge {
	out := make([]Challenge, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[i*4:i*4+4])
	}
	return out
}
