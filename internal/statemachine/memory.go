package statemachine

import (
	"github.com/0xPolygonHermez/zisk-sub004/internal/databus"
	"github.com/0xPolygonHermez/zisk-sub004/internal/plan"
)

// classifyMemAccess buckets one memory event into the memory-alignment
// planner's five row types. Byte-width accesses always go through the
// dedicated byte airs; everything 2 bytes or wider goes through a "full"
// shape, priced by how much of an 8-byte word it disturbs: aligned accesses
// are cheapest (full_2), a misaligned access that still fits in one word is
// full_3, and one that spans a word boundary is the worst case, full_5.
// This span-based cost assignment is a documented simplification of the
// reference's exact alignment arithmetic (not fully recoverable from the
// retrieved excerpt of mem_align_planner.rs) that preserves its essential
// property: more boundary-crossing costs strictly more rows.
func classifyMemAccess(ev databus.Event) (isByte bool, mem plan.MemAlignCounts) {
	if ev.Width == 1 {
		if ev.IsWrite {
			return true, plan.MemAlignCounts{WriteByte: 1}
		}
		return true, plan.MemAlignCounts{ReadByte: 1}
	}
	off := ev.Addr % 8
	switch {
	case off == 0:
		return false, plan.MemAlignCounts{Full2: 1}
	case off+ev.Width <= 8:
		return false, plan.MemAlignCounts{Full3: 1}
	default:
		return false, plan.MemAlignCounts{Full5: 1}
	}
}

// MemoryCounter tallies one chunk's memory-alignment row demand across the
// five types the planner distributes among full/read_byte/write_byte/byte
// instances.
type MemoryCounter struct {
	totals plan.MemAlignCounts
}

func NewMemoryCounter() *MemoryCounter { return &MemoryCounter{} }

func (c *MemoryCounter) ProcessData(busID databus.BusID, ev databus.Event, _ *[]databus.PendingEvent) bool {
	if busID != databus.MemBusID {
		return true
	}
	_, counts := classifyMemAccess(ev)
	c.totals.Full5 += counts.Full5
	c.totals.Full3 += counts.Full3
	c.totals.Full2 += counts.Full2
	c.totals.ReadByte += counts.ReadByte
	c.totals.WriteByte += counts.WriteByte
	return true
}

func (c *MemoryCounter) OnClose() {}

// Totals returns the chunk's accumulated MemAlignCounts, ready to hand to
// MemAlignPlanner.AddChunk.
func (c *MemoryCounter) Totals() plan.MemAlignCounts { return c.totals }

// MemoryInputCollector records the concrete (addr, width, value) tuple of
// every memory access between skip and skip+count for its type, per the
// checkpoint a MemAlignPlanner produced for this chunk.
type MemoryInputCollector struct {
	checkpoint *plan.MemAlignCheckPoint
	seen       plan.MemAlignCounts
	rows       []MemRow
}

// MemRow is one concrete memory access an InputCollector recorded.
type MemRow struct {
	Step    uint64
	PC      uint64
	Addr    uint64
	Width   uint64
	Value   uint64
	IsWrite bool
}

func NewMemoryInputCollector(cp *plan.MemAlignCheckPoint) *MemoryInputCollector {
	return &MemoryInputCollector{checkpoint: cp}
}

func (ic *MemoryInputCollector) ProcessData(busID databus.BusID, ev databus.Event, _ *[]databus.PendingEvent) bool {
	if busID != databus.MemBusID {
		return true
	}
	isByte, counts := classifyMemAccess(ev)
	var skip, count, seen uint64
	switch {
	case isByte && counts.ReadByte == 1:
		skip, count = ic.checkpoint.ReadByte.Skip, ic.checkpoint.ReadByte.Count
		seen = ic.seen.ReadByte
		ic.seen.ReadByte++
	case isByte && counts.WriteByte == 1:
		skip, count = ic.checkpoint.WriteByte.Skip, ic.checkpoint.WriteByte.Count
		seen = ic.seen.WriteByte
		ic.seen.WriteByte++
	case counts.Full2 == 1:
		skip, count = ic.checkpoint.Full2.Skip, ic.checkpoint.Full2.Count
		seen = ic.seen.Full2
		ic.seen.Full2++
	case counts.Full3 == 1:
		skip, count = ic.checkpoint.Full3.Skip, ic.checkpoint.Full3.Count
		seen = ic.seen.Full3
		ic.seen.Full3++
	default:
		skip, count = ic.checkpoint.Full5.Skip, ic.checkpoint.Full5.Count
		seen = ic.seen.Full5
		ic.seen.Full5++
	}
	if seen < skip || seen >= skip+count {
		return true
	}
	ic.rows = append(ic.rows, MemRow{Step: ev.Step, PC: ev.PC, Addr: ev.Addr, Width: ev.Width, Value: ev.Value, IsWrite: ev.IsWrite})
	return true
}

func (ic *MemoryInputCollector) OnClose() {}

func (ic *MemoryInputCollector) Rows() []MemRow { return ic.rows }
