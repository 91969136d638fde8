package databus_test

import (
	"testing"

	"github.com/0xPolygonHermez/zisk-sub004/internal/databus"
	"github.com/0xPolygonHermez/zisk-sub004/internal/emulator"
	"github.com/0xPolygonHermez/zisk-sub004/internal/rom"
)

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}
func encodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}
func asmAddi(rd, rs1 uint32, imm int32) uint32 { return encodeI(0x13, rd, 0, rs1, imm) }
func asmMul(rd, rs1, rs2 uint32) uint32        { return encodeR(0x33, rd, 0, rs1, rs2, 0x01) }
func asmEbreak() uint32                        { return 1<<20 | 0x73 }

func assemble(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		putLE32(buf[4*i:4*i+4], w)
	}
	return buf
}

// TestChunkReplayFidelity reruns a completed chunk through the player and
// checks that the events it derives agree with direct execution: one Main
// row per step, the two addi on the Binary family and the single mul on
// ArithAm32.
func TestChunkReplayFidelity(t *testing.T) {
	code := assemble(
		asmAddi(5, 0, 6),
		asmAddi(6, 0, 7),
		asmMul(7, 5, 6),
		asmEbreak(),
	)
	r, err := rom.BuildFromCode(rom.RomAddr, code)
	if err != nil {
		t.Fatalf("BuildFromCode: %v", err)
	}

	res, err := emulator.Run(r, emulator.Options{ChunkSize: 1024, MaxSteps: 1000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(res.Chunks))
	}
	if res.FinalRegs[7] != 42 {
		t.Fatalf("x7 = %d, want 42", res.FinalRegs[7])
	}

	bus := databus.New()
	counter := databus.NewCounterDevice(res.Chunks[0].ChunkID)
	bus.Register(databus.RomBusID, counter)
	bus.Register(databus.OperationBusID, counter)
	bus.Register(databus.MemBusID, counter)

	if err := databus.Replay(r, res.Chunks[0], bus); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	bus.Close()

	got := counter.Counters()
	if got.Main != 4 {
		t.Errorf("Main = %d, want 4 (one row per step)", got.Main)
	}
	if got.Binary != 2 {
		t.Errorf("Binary = %d, want 2 (the two addi)", got.Binary)
	}
	if got.ArithAm32 != 1 {
		t.Errorf("ArithAm32 = %d, want 1 (the mul)", got.ArithAm32)
	}
}

// A chunk boundary must not corrupt replay: each chunk's own StartPC/
// StartStep/MemReads slice must be independently replayable.
func TestChunkReplayAcrossBoundary(t *testing.T) {
	words := make([]uint32, 0, 9)
	for i := 0; i < 6; i++ {
		words = append(words, asmAddi(1, 1, 1))
	}
	words = append(words, asmEbreak())
	code := assemble(words...)

	r, err := rom.BuildFromCode(rom.RomAddr, code)
	if err != nil {
		t.Fatalf("BuildFromCode: %v", err)
	}
	res, err := emulator.Run(r, emulator.Options{ChunkSize: 3, MaxSteps: 1000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(res.Chunks))
	}
	for _, c := range res.Chunks {
		bus := databus.New()
		counter := databus.NewCounterDevice(c.ChunkID)
		bus.Register(databus.RomBusID, counter)
		bus.Register(databus.OperationBusID, counter)
		bus.Register(databus.MemBusID, counter)
		if err := databus.Replay(r, c, bus); err != nil {
			t.Fatalf("Replay chunk %d: %v", c.ChunkID, err)
		}
	}
}
