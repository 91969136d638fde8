package databus

import (
	"fmt"

	"github.com/0xPolygonHermez/zisk-sub004/internal/emulator"
	"github.com/0xPolygonHermez/zisk-sub004/internal/rom"
	"github.com/0xPolygonHermez/zisk-sub004/internal/zisk"
)

// Replay re-walks one recorded chunk against its Rom, publishing the same
// OPERATION_BUS_ID / MEM_BUS_ID events the live emulator pass would have
// produced, but without touching real memory: every address-space read the
// live pass performed is already captured in trace.MemReads, in order, so
// replay only needs to pop from that list rather than hold any live
// register or RAM state. This is what lets the counting and
// input-collection passes (§4.4) run as cheap re-derivations of a chunk
// instead of a second full interpreter.
func Replay(r *rom.Rom, trace *emulator.Trace, bus *DataBus) error {
	pc := trace.StartPC
	step := trace.StartStep
	var lastC uint64
	readIdx := 0

	pop := func() (uint64, error) {
		if readIdx >= len(trace.MemReads) {
			return 0, fmt.Errorf("databus: chunk %d exhausted its recorded reads at step %d", trace.ChunkID, step)
		}
		v := trace.MemReads[readIdx]
		readIdx++
		return v, nil
	}

	for s := uint64(0); s < trace.StepsRun; s++ {
		inst, ok := r.GetInstruction(pc)
		if !ok {
			return fmt.Errorf("databus: chunk %d: no instruction at pc %#x", trace.ChunkID, pc)
		}

		// One RomBusID event per step regardless of op family: this is what
		// the Main state machine certifies (every row of the execution
		// trace), distinct from the per-family OperationBusID events below.
		bus.Write(RomBusID, Event{BusID: RomBusID, Step: step, PC: pc, Opcode: inst.Op})

		a, err := replaySrc(inst.ASrc, inst.AOffsetImm0, lastC, step, pop)
		if err != nil {
			return err
		}
		b, err := replaySrcB(inst, lastC, step, pop)
		if err != nil {
			return err
		}

		var c uint64
		var flag bool
		switch {
		case inst.IsLoad:
			v, err := pop()
			if err != nil {
				return err
			}
			bus.Write(MemBusID, Event{BusID: MemBusID, Step: step, PC: pc, Addr: a + b, Width: inst.IndWidth, Value: v})
			if inst.LoadSigned {
				v = emulator.SignExtend(v, inst.IndWidth)
			}
			c = v
		case inst.IsStore:
			v, err := pop()
			if err != nil {
				return err
			}
			bus.Write(MemBusID, Event{BusID: MemBusID, Step: step, PC: pc, Addr: rom.SysAddr + inst.StoreSrcReg*8, Width: 8, Value: v})
			bus.Write(MemBusID, Event{BusID: MemBusID, Step: step, PC: pc, Addr: a + b, Width: inst.IndWidth, Value: v, IsWrite: true})
			c = v
		default:
			c, flag, err = zisk.Execute(inst.Op, a, b)
			if err != nil {
				return err
			}
		}

		if inst.IsExternalOp {
			bus.Write(OperationBusID, Event{
				BusID: OperationBusID, Step: step, PC: pc,
				Opcode: inst.Op, OpType: int(opType(inst.Op)),
				A: a, B: b, C: c, Flag: flag,
			})
		}

		if inst.Store == rom.StoreMem {
			storeVal := c
			if inst.StoreRA {
				storeVal = pc + inst.InstLen
			}
			addr := uint64(inst.StoreOffset)
			width := inst.IndWidth
			if addr >= rom.SysAddr && addr < rom.SysAddr+emulator.NumRegs*8 {
				width = 8
			}
			bus.Write(MemBusID, Event{BusID: MemBusID, Step: step, PC: pc, Addr: addr, Width: width, Value: storeVal, IsWrite: true})
		}

		lastC = c
		if inst.SetPC {
			pc = c
		} else if flag {
			pc += uint64(inst.JmpOffset1)
		} else {
			pc += uint64(inst.JmpOffset2)
		}
		step++
	}
	return nil
}

func replaySrc(src, offsetImm, lastC, step uint64, pop func() (uint64, error)) (uint64, error) {
	switch src {
	case rom.SrcMem:
		return pop()
	case rom.SrcImm:
		return offsetImm, nil
	case rom.SrcLastC:
		return lastC, nil
	case rom.SrcStep:
		return step, nil
	default:
		return 0, nil
	}
}

func replaySrcB(inst *rom.Inst, lastC, step uint64, pop func() (uint64, error)) (uint64, error) {
	if inst.BSrc == rom.SrcInd {
		return inst.BOffsetImm0, nil
	}
	return replaySrc(inst.BSrc, inst.BOffsetImm0, lastC, step, pop)
}

func opType(code uint8) zisk.OpType {
	op, err := zisk.ByCode(code)
	if err != nil {
		return zisk.OpInternal
	}
	return op.Type
}
