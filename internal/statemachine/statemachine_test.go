package statemachine_test

import (
	"testing"

	"github.com/0xPolygonHermez/zisk-sub004/internal/databus"
	"github.com/0xPolygonHermez/zisk-sub004/internal/statemachine"
	"github.com/0xPolygonHermez/zisk-sub004/internal/zisk"
)

// TestCounterInputCollectorConsistency is the counter/collector consistency
// property from the testable-properties list: the union of an
// InputCollector's skip/count window across all instances for a variant
// must reproduce exactly what the Counter tallied for that variant.
func TestCounterInputCollectorConsistency(t *testing.T) {
	eng := statemachine.NewBinary()
	addOp, err := zisk.ByName("add")
	if err != nil {
		t.Fatalf("ByName(add): %v", err)
	}

	counter := eng.NewCounter()
	events := make([]databus.Event, 0, 10)
	for i := 0; i < 10; i++ {
		ev := databus.Event{BusID: databus.OperationBusID, Opcode: addOp.Code, OpType: int(zisk.OpBinary), Step: uint64(i), A: uint64(i), B: 1, C: uint64(i) + 1}
		events = append(events, ev)
		counter.ProcessData(databus.OperationBusID, ev, nil)
	}
	if counter.Totals()[addOp.Code] != 10 {
		t.Fatalf("counted %d adds, want 10", counter.Totals()[addOp.Code])
	}

	// Split into two instances: rows [0,6) and [6,10).
	ic1 := eng.NewInputCollector(map[uint8]uint64{addOp.Code: 0}, map[uint8]uint64{addOp.Code: 6})
	ic2 := eng.NewInputCollector(map[uint8]uint64{addOp.Code: 6}, map[uint8]uint64{addOp.Code: 4})
	for _, ev := range events {
		ic1.ProcessData(databus.OperationBusID, ev, nil)
		ic2.ProcessData(databus.OperationBusID, ev, nil)
	}
	if len(ic1.Rows())+len(ic2.Rows()) != 10 {
		t.Fatalf("collected %d+%d rows, want 10 total", len(ic1.Rows()), len(ic2.Rows()))
	}
	if ic1.Rows()[0].Step != 0 || ic2.Rows()[0].Step != 6 {
		t.Fatalf("window boundaries wrong: ic1[0].Step=%d ic2[0].Step=%d", ic1.Rows()[0].Step, ic2.Rows()[0].Step)
	}
}

func TestEngineIgnoresOtherFamilies(t *testing.T) {
	eng := statemachine.NewArithAm32()
	mulOp, _ := zisk.ByName("mulu")
	addOp, _ := zisk.ByName("add")

	counter := eng.NewCounter()
	counter.ProcessData(databus.OperationBusID, databus.Event{Opcode: mulOp.Code, OpType: int(zisk.OpArithAm32)}, nil)
	counter.ProcessData(databus.OperationBusID, databus.Event{Opcode: addOp.Code, OpType: int(zisk.OpBinary)}, nil)

	if counter.Totals()[mulOp.Code] != 1 {
		t.Fatalf("want 1 mulu counted, got %d", counter.Totals()[mulOp.Code])
	}
	if counter.Totals()[addOp.Code] != 0 {
		t.Fatalf("cross-family event leaked into ArithAm32 counter: %d", counter.Totals()[addOp.Code])
	}
}
