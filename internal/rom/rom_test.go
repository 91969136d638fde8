package rom

import "testing"

// minimalProgram returns a minimal two-instruction program:
// addi x0, x0, 0 ; ebreak -- scenario A's seed program (§8).
func minimalProgram() []byte {
	// addi x0, x0, 0: imm=0 rs1=0 funct3=0 rd=0 opcode=0x13
	addi := uint32(0x13)
	// ebreak: imm=1 rs1=0 funct3=0 rd=0 opcode=0x73
	ebreak := uint32(1<<20 | 0x73)

	buf := make([]byte, 8)
	putLE32(buf[0:4], addi)
	putLE32(buf[4:8], ebreak)
	return buf
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestDecodeMinimalProgram(t *testing.T) {
	data := minimalProgram()
	aligned, nonAligned, err := decodeStream(RomAddr, data)
	if err != nil {
		t.Fatalf("decodeStream error: %v", err)
	}
	if len(nonAligned) != 0 {
		t.Errorf("want no non-aligned instructions, got %d", len(nonAligned))
	}
	if len(aligned) != 2 {
		t.Fatalf("want 2 aligned instructions, got %d", len(aligned))
	}
	last := aligned[RomAddr+4]
	if last == nil || !last.End {
		t.Errorf("second instruction should be the halt (ebreak)")
	}
}

func TestFillArraysRoutesGetInstruction(t *testing.T) {
	data := minimalProgram()
	aligned, nonAligned, err := decodeStream(RomAddr, data)
	if err != nil {
		t.Fatal(err)
	}
	r := &Rom{}
	if err := r.fillArrays(aligned, nonAligned); err != nil {
		t.Fatal(err)
	}
	inst, ok := r.GetInstruction(RomAddr)
	if !ok || inst.PAddr != RomAddr {
		t.Fatalf("GetInstruction(RomAddr) = %v, %v", inst, ok)
	}
	inst2, ok := r.GetInstruction(RomAddr + 4)
	if !ok || !inst2.End {
		t.Fatalf("GetInstruction(RomAddr+4) should be the halt instruction")
	}
	if _, ok := r.GetInstruction(RomAddr - 4); ok {
		t.Errorf("GetInstruction(RomAddr-4) should fail: no entry-range instruction was decoded")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data := minimalProgram()
	aligned, nonAligned, err := decodeStream(RomAddr, data)
	if err != nil {
		t.Fatal(err)
	}
	r := &Rom{ROData: []DataSection{{Addr: 0x5000, Data: []byte{1, 2, 3, 4}}}}
	if err := r.fillArrays(aligned, nonAligned); err != nil {
		t.Fatal(err)
	}

	encoded, err := r.SaveToJSON()
	if err != nil {
		t.Fatalf("SaveToJSON error: %v", err)
	}
	r2, err := LoadFromJSON(encoded)
	if err != nil {
		t.Fatalf("LoadFromJSON error: %v", err)
	}

	inst, ok := r2.GetInstruction(RomAddr)
	if !ok || inst.Op != r.RomInstructions[0].Op {
		t.Errorf("round-tripped instruction mismatch at RomAddr")
	}
	if len(r2.ROData) != 1 || r2.ROData[0].Addr != 0x5000 || len(r2.ROData[0].Data) != 4 {
		t.Errorf("round-tripped roData mismatch: %+v", r2.ROData)
	}
}

func TestBinRoundTrip(t *testing.T) {
	data := minimalProgram()
	aligned, nonAligned, err := decodeStream(RomAddr, data)
	if err != nil {
		t.Fatal(err)
	}
	r := &Rom{}
	if err := r.fillArrays(aligned, nonAligned); err != nil {
		t.Fatal(err)
	}

	bin := r.SaveToBin()
	r2, err := LoadFromBin(bin)
	if err != nil {
		t.Fatalf("LoadFromBin error: %v", err)
	}
	inst, ok := r2.GetInstruction(RomAddr + 4)
	if !ok || !inst.End {
		t.Errorf("round-tripped halt instruction missing or wrong")
	}
}

func TestOpcodeBijectionViaLowering(t *testing.T) {
	data := minimalProgram()
	aligned, _, err := decodeStream(RomAddr, data)
	if err != nil {
		t.Fatal(err)
	}
	first := aligned[RomAddr]
	if first.OpStr != "add" {
		t.Errorf("addi x0,x0,0 should lower to an add op (writes to x0 are later discarded by the emulator), got %q", first.OpStr)
	}
}
