package databus

import (
	"github.com/0xPolygonHermez/zisk-sub004/internal/emulator"
	"github.com/0xPolygonHermez/zisk-sub004/internal/zisk"
)

// CounterDevice tallies, for one chunk, how many rows each secondary state
// machine will need once it certifies that chunk's operations. It is the Go
// analogue of the reference's per-family *Counter types (MainCounter,
// BinaryCounter, ArithCounterInputGen, ...), collapsed into one device since
// the counting pass only needs totals, not per-row detail (the planner
// consumes exactly these totals, §4.6).
type CounterDevice struct {
	counters emulator.Counters
}

// NewCounterDevice returns a counter bound to chunkID, ready to register on
// both OperationBusID and MemBusID.
func NewCounterDevice(chunkID int) *CounterDevice {
	return &CounterDevice{counters: emulator.Counters{ChunkID: chunkID}}
}

// ProcessData implements BusDevice.
func (c *CounterDevice) ProcessData(busID BusID, ev Event, _ *[]PendingEvent) bool {
	switch busID {
	case RomBusID:
		c.counters.Main++
	case OperationBusID:
		switch zisk.OpType(ev.OpType) {
		case zisk.OpBinary:
			c.counters.Binary++
		case zisk.OpBinaryE:
			c.counters.BinaryE++
		case zisk.OpArith:
			c.counters.Arith++
		case zisk.OpArithA32:
			c.counters.ArithA32++
		case zisk.OpArithAm32:
			c.counters.ArithAm32++
		case zisk.OpKeccak:
			c.counters.Keccak++
		}
	case MemBusID:
		switch {
		case ev.Width == 8 && ev.Addr%8 == 0:
			c.counters.MemFull++
		case ev.Width == 1:
			if ev.IsWrite {
				c.counters.MemWriteByte++
			} else {
				c.counters.MemReadByte++
			}
		default:
			c.counters.MemFull++
		}
	}
	return true
}

// OnClose implements BusDevice; counting needs no teardown step.
func (c *CounterDevice) OnClose() {}

// Counters returns the tallies accumulated so far.
func (c *CounterDevice) Counters() emulator.Counters { return c.counters }
