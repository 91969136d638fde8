package emulator_test

import (
	"testing"

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
func asmDivu(rd, rs1, rs2 uint32) uint32        { return encodeR(0x33, rd, 5, rs1, rs2, 0x01) }
func asmEbreak() uint32                         { return 1<<20 | 0x73 }

func assemble(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		putLE32(buf[4*i:4*i+4], w)
	}
	return buf
}

// scenario A: a minimal two-instruction program that halts immediately,
// with no memory reads recorded.
func TestRunMinimalHalt(t *testing.T) {
	code := assemble(asmAddi(0, 0, 0), asmEbreak())
	r, err := rom.BuildFromCode(rom.RomAddr, code)
	if err != nil {
		t.Fatalf("BuildFromCode: %v", err)
	}

	res, err := emulator.Run(r, emulator.Options{ChunkSize: 1024, MaxSteps: 1000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Terminated {
		t.Fatal("expected termination on ebreak")
	}
	if res.StepsRun != 2 {
		t.Errorf("StepsRun = %d, want 2", res.StepsRun)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(res.Chunks))
	}
	chunk := res.Chunks[0]
	if !chunk.End {
		t.Error("chunk.End should be true")
	}
	if chunk.StartPC != rom.RomAddr {
		t.Errorf("StartPC = %#x, want %#x", chunk.StartPC, rom.RomAddr)
	}
	if len(chunk.MemReads) != 0 {
		t.Errorf("want no mem reads for a register-only program, got %d", len(chunk.MemReads))
	}
}

// scenario B: division by zero must yield (MAX_U64, true), per the fixed
// by-zero convention (§8), not a trap.
func TestRunDivisionByZero(t *testing.T) {
	// x5 = 10; x6 = 0; x7 = x5 divu x6; ebreak
	code := assemble(
		asmAddi(5, 0, 10),
		asmAddi(6, 0, 0),
		asmDivu(7, 5, 6),
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
	if !res.Terminated {
		t.Fatal("expected termination")
	}
	if res.FinalRegs[7] != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("x7 = %#x, want MAX_U64", res.FinalRegs[7])
	}
}

// Chunking must split a run into fixed-size fragments, with only the final
// chunk carrying End=true.
func TestRunChunkSplitting(t *testing.T) {
	words := make([]uint32, 0, 9)
	for i := 0; i < 8; i++ {
		words = append(words, asmAddi(1, 1, 1))
	}
	words = append(words, asmEbreak())
	code := assemble(words...)

	r, err := rom.BuildFromCode(rom.RomAddr, code)
	if err != nil {
		t.Fatalf("BuildFromCode: %v", err)
	}

	res, err := emulator.Run(r, emulator.Options{ChunkSize: 4, MaxSteps: 1000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Chunks) != 3 {
		t.Fatalf("want 3 chunks (4+4+1 steps), got %d", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		wantEnd := i == len(res.Chunks)-1
		if c.End != wantEnd {
			t.Errorf("chunk %d End = %v, want %v", i, c.End, wantEnd)
		}
	}
	if res.FinalRegs[1] != 8 {
		t.Errorf("x1 = %d, want 8", res.FinalRegs[1])
	}
}

// MaxSteps must be enforced as a hard ceiling when the program never halts.
func TestRunMaxStepsExceeded(t *testing.T) {
	code := assemble(asmAddi(1, 1, 1), asmAddi(1, 1, 1))
	// Two addi's forming an infinite loop would need a backward branch;
	// instead exercise the ceiling directly against a short straight-line
	// program with a MaxSteps lower than its instruction count.
	r, err := rom.BuildFromCode(rom.RomAddr, code)
	if err != nil {
		t.Fatalf("BuildFromCode: %v", err)
	}
	_, err = emulator.Run(r, emulator.Options{ChunkSize: 1024, MaxSteps: 1})
	if err == nil {
		t.Fatal("expected EmulationNotComplete error")
	}
}
