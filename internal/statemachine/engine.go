// Package statemachine implements the Counter and InputCollector roles
// every secondary state machine plays against a chunk's databus events:
// first a cheap tally of how many rows each internal variant needs, then –
// once the planner has handed back skip/count checkpoints – a second pass
// that records the concrete operand tuples for just the rows that instance
// will actually fill.
package statemachine

import (
	"github.com/0xPolygonHermez/zisk-sub004/internal/databus"
	"github.com/0xPolygonHermez/zisk-sub004/internal/zisk"
)

// Row is one concrete operation an InputCollector recorded: the operand
// tuple a witness generator needs to fill one row of an air.
type Row struct {
	Step   uint64
	PC     uint64
	Opcode uint8
	A, B   uint64
	C      uint64
	Flag   bool
}

// Engine is the opcode-keyed SM shape shared by Binary, BinaryExtended,
// Arith, Arith32, ArithAm32 and Keccak: every variant the SM recognizes is
// one opcode of a fixed zisk.OpType family, and its cost model is a
// per-opcode row count (0 disables that variant in a specialized instance
// shape, per spec §4.5's "Variants may be disabled (cost 0)").
type Engine struct {
	family zisk.OpType
	costs  map[uint8]uint64
}

func NewEngine(family zisk.OpType, costs map[uint8]uint64) *Engine {
	return &Engine{family: family, costs: costs}
}

func (e *Engine) handles(ev databus.Event) bool {
	if zisk.OpType(ev.OpType) != e.family {
		return false
	}
	_, ok := e.costs[ev.Opcode]
	return ok
}

// Counter tallies, per opcode, how many rows one chunk will need.
type Counter struct {
	eng    *Engine
	totals map[uint8]uint64
}

func (e *Engine) NewCounter() *Counter {
	return &Counter{eng: e, totals: map[uint8]uint64{}}
}

func (c *Counter) ProcessData(busID databus.BusID, ev databus.Event, _ *[]databus.PendingEvent) bool {
	if busID != databus.OperationBusID || !c.eng.handles(ev) {
		return true
	}
	c.totals[ev.Opcode]++
	return true
}

func (c *Counter) OnClose() {}

// Totals returns the per-opcode operation counts seen so far.
func (c *Counter) Totals() map[uint8]uint64 { return c.totals }

// RowCost sums totals[op] * cost[op] across every opcode in this family —
// the number a planner needs to decide how many instances to open.
func (c *Counter) RowCost() uint64 {
	var sum uint64
	for op, n := range c.totals {
		sum += n * c.eng.costs[op]
	}
	return sum
}

// InputCollector replays a chunk a second time, recording the concrete
// operand tuple of each row between skip and skip+count for its opcode,
// per the planner's checkpoint for that (chunk, variant) pair.
type InputCollector struct {
	eng   *Engine
	skip  map[uint8]uint64
	count map[uint8]uint64
	seen  map[uint8]uint64
	rows  []Row
}

func (e *Engine) NewInputCollector(skip, count map[uint8]uint64) *InputCollector {
	return &InputCollector{eng: e, skip: skip, count: count, seen: map[uint8]uint64{}}
}

func (ic *InputCollector) ProcessData(busID databus.BusID, ev databus.Event, _ *[]databus.PendingEvent) bool {
	if busID != databus.OperationBusID || !ic.eng.handles(ev) {
		return true
	}
	seen := ic.seen[ev.Opcode]
	ic.seen[ev.Opcode] = seen + 1

	skip := ic.skip[ev.Opcode]
	cnt := ic.count[ev.Opcode]
	if seen < skip || seen >= skip+cnt {
		return true
	}
	ic.rows = append(ic.rows, Row{Step: ev.Step, PC: ev.PC, Opcode: ev.Opcode, A: ev.A, B: ev.B, C: ev.C, Flag: ev.Flag})
	return true
}

func (ic *InputCollector) OnClose() {}

// Rows returns the operand tuples collected for this instance.
func (ic *InputCollector) Rows() []Row { return ic.rows }
