package rom

import "github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"

// decoded is an intermediate RISC-V instruction shape before lowering.
type decoded struct {
	mnemonic string
	rd, rs1, rs2 uint64
	imm      int64
	width    uint64 // memory access width in bytes, loads/stores only
	signed   bool
	instrLen uint64 // encoded instruction length: 2 (compressed) or 4
}

// decodeStream walks a byte range in 4-byte (standard) and 2-byte
// (compressed) units, producing one lowered Inst per decoded
// RISC-V instruction, and reports which program counters were non-aligned
// (used to size rom_na_instructions, §4.1).
func decodeStream(baseAddr uint64, data []byte) (aligned map[uint64]*Inst, nonAligned map[uint64]*Inst, err error) {
	aligned = map[uint64]*Inst{}
	nonAligned = map[uint64]*Inst{}

	off := 0
	for off < len(data) {
		pc := baseAddr + uint64(off)
		if off+2 > len(data) {
			break
		}
		low16 := uint16(data[off]) | uint16(data[off+1])<<8

		isCompressed := low16&0b11 != 3
		var width int
		var d decoded
		if isCompressed {
			width = 2
			d, err = decodeCompressed(low16)
		} else {
			if off+4 > len(data) {
				return nil, nil, ziskerr.RomBuildf("truncated instruction at %#x", pc)
			}
			raw := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
			width = 4
			d, err = decodeStandard(raw)
		}
		if err != nil {
			return nil, nil, ziskerr.RomBuildf("decode failure at %#x: %v", pc, err)
		}
		d.instrLen = uint64(width)

		inst, buildErr := lower(pc, d)
		if buildErr != nil {
			return nil, nil, buildErr
		}

		if pc&0b11 == 0 && width == 4 {
			aligned[pc] = inst
		} else {
			nonAligned[pc] = inst
		}

		off += width
	}
	return aligned, nonAligned, nil
}

func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

// decodeStandard decodes a 32-bit RV64IM instruction into the common
// (mnemonic, rd, rs1, rs2, imm) shape. Covers the base integer set, the M
// extension, loads/stores, branches, and jumps -- the instruction families
// the ROM builder must lower per §4.1.
func decodeStandard(raw uint32) (decoded, error) {
	opcode := raw & 0x7f
	rd := uint64((raw >> 7) & 0x1f)
	funct3 := (raw >> 12) & 0x7
	rs1 := uint64((raw >> 15) & 0x1f)
	rs2 := uint64((raw >> 20) & 0x1f)
	funct7 := (raw >> 25) & 0x7f

	switch opcode {
	case 0x37: // LUI
		return decoded{mnemonic: "lui", rd: rd, imm: int64(raw & 0xFFFFF000)}, nil
	case 0x17: // AUIPC
		return decoded{mnemonic: "auipc", rd: rd, imm: int64(raw & 0xFFFFF000)}, nil
	case 0x6f: // JAL
		imm := (raw>>31&1)<<20 | (raw>>12&0xff)<<12 | (raw>>20&1)<<11 | (raw >> 21 & 0x3ff) << 1
		return decoded{mnemonic: "jal", rd: rd, imm: signExtend(imm, 21)}, nil
	case 0x67: // JALR
		imm := raw >> 20
		return decoded{mnemonic: "jalr", rd: rd, rs1: rs1, imm: signExtend(imm, 12)}, nil
	case 0x63: // branches
		imm := (raw>>31&1)<<12 | (raw>>7&1)<<11 | (raw>>25&0x3f)<<5 | (raw >> 8 & 0xf) << 1
		names := map[uint32]string{0: "beq", 1: "bne", 4: "blt", 5: "bge", 6: "bltu", 7: "bgeu"}
		name, ok := names[funct3]
		if !ok {
			return decoded{}, ziskerr.RomBuildf("unknown branch funct3 %d", funct3)
		}
		return decoded{mnemonic: name, rs1: rs1, rs2: rs2, imm: signExtend(imm, 13)}, nil
	case 0x03: // loads
		imm := signExtend(raw>>20, 12)
		names := map[uint32]struct {
			n      string
			w      uint64
			signed bool
		}{
			0: {"lb", 1, true}, 1: {"lh", 2, true}, 2: {"lw", 4, true}, 3: {"ld", 8, true},
			4: {"lbu", 1, false}, 5: {"lhu", 2, false}, 6: {"lwu", 4, false},
		}
		e, ok := names[funct3]
		if !ok {
			return decoded{}, ziskerr.RomBuildf("unknown load funct3 %d", funct3)
		}
		return decoded{mnemonic: e.n, rd: rd, rs1: rs1, imm: imm, width: e.w, signed: e.signed}, nil
	case 0x23: // stores
		immLo := raw >> 7 & 0x1f
		immHi := raw >> 25 & 0x7f
		imm := signExtend(immHi<<5|immLo, 12)
		names := map[uint32]struct {
			n string
			w uint64
		}{0: {"sb", 1}, 1: {"sh", 2}, 2: {"sw", 4}, 3: {"sd", 8}}
		e, ok := names[funct3]
		if !ok {
			return decoded{}, ziskerr.RomBuildf("unknown store funct3 %d", funct3)
		}
		return decoded{mnemonic: e.n, rs1: rs1, rs2: rs2, imm: imm, width: e.w}, nil
	case 0x13, 0x1b: // OP-IMM / OP-IMM-32
		imm := signExtend(raw>>20, 12)
		w := opcode == 0x1b
		shamt := raw >> 20 & 0x3f
		switch funct3 {
		case 0:
			return decoded{mnemonic: mname("addi", w), rd: rd, rs1: rs1, imm: imm}, nil
		case 1:
			return decoded{mnemonic: mname("slli", w), rd: rd, rs1: rs1, imm: int64(shamt)}, nil
		case 2:
			return decoded{mnemonic: "slti", rd: rd, rs1: rs1, imm: imm}, nil
		case 3:
			return decoded{mnemonic: "sltiu", rd: rd, rs1: rs1, imm: imm}, nil
		case 4:
			return decoded{mnemonic: mname("xori", w), rd: rd, rs1: rs1, imm: imm}, nil
		case 5:
			if funct7&0x20 != 0 {
				return decoded{mnemonic: mname("srai", w), rd: rd, rs1: rs1, imm: int64(shamt)}, nil
			}
			return decoded{mnemonic: mname("srli", w), rd: rd, rs1: rs1, imm: int64(shamt)}, nil
		case 6:
			return decoded{mnemonic: mname("ori", w), rd: rd, rs1: rs1, imm: imm}, nil
		case 7:
			return decoded{mnemonic: mname("andi", w), rd: rd, rs1: rs1, imm: imm}, nil
		}
		return decoded{}, ziskerr.RomBuildf("unknown op-imm funct3 %d", funct3)
	case 0x33, 0x3b: // OP / OP-32 (base + M extension)
		w := opcode == 0x3b
		if funct7 == 0x01 { // M extension
			names := map[uint32]string{0: "mul", 1: "mulh", 2: "mulhsu", 3: "mulhu", 4: "div", 5: "divu", 6: "rem", 7: "remu"}
			name, ok := names[funct3]
			if !ok {
				return decoded{}, ziskerr.RomBuildf("unknown M-ext funct3 %d", funct3)
			}
			return decoded{mnemonic: mname(name, w), rd: rd, rs1: rs1, rs2: rs2}, nil
		}
		switch funct3 {
		case 0:
			if funct7&0x20 != 0 {
				return decoded{mnemonic: mname("sub", w), rd: rd, rs1: rs1, rs2: rs2}, nil
			}
			return decoded{mnemonic: mname("add", w), rd: rd, rs1: rs1, rs2: rs2}, nil
		case 1:
			return decoded{mnemonic: mname("sll", w), rd: rd, rs1: rs1, rs2: rs2}, nil
		case 2:
			return decoded{mnemonic: "slt", rd: rd, rs1: rs1, rs2: rs2}, nil
		case 3:
			return decoded{mnemonic: "sltu", rd: rd, rs1: rs1, rs2: rs2}, nil
		case 4:
			return decoded{mnemonic: "xor", rd: rd, rs1: rs1, rs2: rs2}, nil
		case 5:
			if funct7&0x20 != 0 {
				return decoded{mnemonic: mname("sra", w), rd: rd, rs1: rs1, rs2: rs2}, nil
			}
			return decoded{mnemonic: mname("srl", w), rd: rd, rs1: rs1, rs2: rs2}, nil
		case 6:
			return decoded{mnemonic: "or", rd: rd, rs1: rs1, rs2: rs2}, nil
		case 7:
			return decoded{mnemonic: "and", rd: rd, rs1: rs1, rs2: rs2}, nil
		}
		return decoded{}, ziskerr.RomBuildf("unknown op funct3 %d", funct3)
	case 0x0f: // FENCE / FENCE.I -- treated as a no-op internal flag
		return decoded{mnemonic: "flag"}, nil
	case 0x73: // ECALL / EBREAK / Zicsr
		if raw>>20 == 1 {
			return decoded{mnemonic: "ebreak"}, nil
		}
		return decoded{mnemonic: "ecall"}, nil
	}
	return decoded{}, ziskerr.RomBuildf("unknown opcode %#x", opcode)
}

func mname(base string, w bool) string {
	if w {
		return base + "w"
	}
	return base
}

// decodeCompressed lifts a 16-bit RVC encoding to its base-ISA equivalent
// shape (e.g. c.addi4spn rd', nzuimm == addi rd, x2, nzuimm), covering the
// common quadrant-0/1/2 subset.
func decodeCompressed(instr uint16) (decoded, error) {
	op := instr & 0b11
	funct3 := (instr >> 13) & 0b111

	rdRs1q := uint64((instr>>7)&0x7) + 8
	rs2q := uint64((instr>>2)&0x7) + 8
	rdRs1 := uint64((instr >> 7) & 0x1f)

	switch op {
	case 0b00:
		switch funct3 {
		case 0b000: // c.addi4spn
			nzuimm := ((instr>>5)&1)<<3 | ((instr>>6)&1)<<2 | ((instr>>7)&0xf)<<6 | ((instr>>11)&0x3)<<4
			if nzuimm == 0 {
				return decoded{}, ziskerr.RomBuildf("reserved c.addi4spn")
			}
			return decoded{mnemonic: "addi", rd: rdRs1q, rs1: 2, imm: int64(nzuimm)}, nil
		case 0b010: // c.lw
			imm := ((instr>>6)&1)<<2 | ((instr>>10)&0x7)<<3 | ((instr>>5)&1)<<6
			return decoded{mnemonic: "lw", rd: rdRs1q, rs1: rs2qBase(instr), imm: int64(imm), width: 4, signed: true}, nil
		case 0b011: // c.ld
			imm := ((instr>>10)&0x7)<<3 | ((instr>>5)&0x3)<<6
			return decoded{mnemonic: "ld", rd: rdRs1q, rs1: rs2qBase(instr), imm: int64(imm), width: 8, signed: true}, nil
		case 0b110: // c.sw
			imm := ((instr>>6)&1)<<2 | ((instr>>10)&0x7)<<3 | ((instr>>5)&1)<<6
			return decoded{mnemonic: "sw", rs1: rs2qBase(instr), rs2: rdRs1q, imm: int64(imm), width: 4}, nil
		case 0b111: // c.sd
			imm := ((instr>>10)&0x7)<<3 | ((instr>>5)&0x3)<<6
			return decoded{mnemonic: "sd", rs1: rs2qBase(instr), rs2: rdRs1q, imm: int64(imm), width: 8}, nil
		}
	case 0b01:
		switch funct3 {
		case 0b000: // c.addi / c.nop
			imm := cImm6(instr)
			return decoded{mnemonic: "addi", rd: rdRs1, rs1: rdRs1, imm: imm}, nil
		case 0b001: // c.addiw
			imm := cImm6(instr)
			return decoded{mnemonic: "addiw", rd: rdRs1, rs1: rdRs1, imm: imm}, nil
		case 0b010: // c.li
			imm := cImm6(instr)
			return decoded{mnemonic: "addi", rd: rdRs1, rs1: 0, imm: imm}, nil
		case 0b011: // c.lui / c.addi16sp
			if rdRs1 == 2 {
				imm := cAddi16spImm(instr)
				return decoded{mnemonic: "addi", rd: 2, rs1: 2, imm: imm}, nil
			}
			imm := cImm6(instr) << 12
			return decoded{mnemonic: "lui", rd: rdRs1, imm: imm}, nil
		case 0b100:
			funct2 := (instr >> 10) & 0x3
			switch funct2 {
			case 0b00: // c.srli
				return decoded{mnemonic: "srli", rd: rdRs1q, rs1: rdRs1q, imm: int64(cShamt(instr))}, nil
			case 0b01: // c.srai
				return decoded{mnemonic: "srai", rd: rdRs1q, rs1: rdRs1q, imm: int64(cShamt(instr))}, nil
			case 0b10: // c.andi
				return decoded{mnemonic: "andi", rd: rdRs1q, rs1: rdRs1q, imm: cImm6(instr)}, nil
			case 0b11:
				funct6b := (instr >> 5) & 0x3
				names := map[uint16]string{0: "sub", 1: "xor", 2: "or", 3: "and"}
				if (instr>>12)&1 == 1 {
					namesW := map[uint16]string{0: "subw", 1: "addw"}
					if n, ok := namesW[funct6b&1]; ok {
						return decoded{mnemonic: n, rd: rdRs1q, rs1: rdRs1q, rs2: rs2q}, nil
					}
				}
				return decoded{mnemonic: names[funct6b], rd: rdRs1q, rs1: rdRs1q, rs2: rs2q}, nil
			}
		case 0b101: // c.j
			return decoded{mnemonic: "jal", rd: 0, imm: cJImm(instr)}, nil
		case 0b110: // c.beqz
			return decoded{mnemonic: "beq", rs1: rdRs1q, rs2: 0, imm: cBImm(instr)}, nil
		case 0b111: // c.bnez
			return decoded{mnemonic: "bne", rs1: rdRs1q, rs2: 0, imm: cBImm(instr)}, nil
		}
	case 0b10:
		switch funct3 {
		case 0b000: // c.slli
			return decoded{mnemonic: "slli", rd: rdRs1, rs1: rdRs1, imm: int64(cShamt(instr))}, nil
		case 0b010: // c.lwsp
			imm := ((instr>>4)&0x7)<<2 | ((instr>>12)&1)<<5 | ((instr>>2)&0x3)<<6
			return decoded{mnemonic: "lw", rd: rdRs1, rs1: 2, imm: int64(imm), width: 4, signed: true}, nil
		case 0b011: // c.ldsp
			imm := ((instr>>5)&0x3)<<3 | ((instr>>12)&1)<<5 | ((instr>>2)&0x7)<<6
			return decoded{mnemonic: "ld", rd: rdRs1, rs1: 2, imm: int64(imm), width: 8, signed: true}, nil
		case 0b100:
			bit12 := (instr >> 12) & 1
			rs2 := uint64((instr >> 2) & 0x1f)
			if bit12 == 0 {
				if rs2 == 0 { // c.jr
					return decoded{mnemonic: "jalr", rd: 0, rs1: rdRs1, imm: 0}, nil
				}
				// c.mv
				return decoded{mnemonic: "add", rd: rdRs1, rs1: 0, rs2: rs2}, nil
			}
			if rs2 == 0 {
				if rdRs1 == 0 {
					return decoded{mnemonic: "ebreak"}, nil
				}
				// c.jalr
				return decoded{mnemonic: "jalr", rd: 1, rs1: rdRs1, imm: 0}, nil
			}
			// c.add
			return decoded{mnemonic: "add", rd: rdRs1, rs1: rdRs1, rs2: rs2}, nil
		case 0b110: // c.swsp
			imm := ((instr>>9)&0xf)<<2 | ((instr>>7)&0x3)<<6
			return decoded{mnemonic: "sw", rs1: 2, rs2: uint64((instr >> 2) & 0x1f), imm: int64(imm), width: 4}, nil
		case 0b111: // c.sdsp
			imm := ((instr>>10)&0x7)<<3 | ((instr>>7)&0x7)<<6
			return decoded{mnemonic: "sd", rs1: 2, rs2: uint64((instr >> 2) & 0x1f), imm: int64(imm), width: 8}, nil
		}
	}
	return decoded{}, ziskerr.RomBuildf("unrecognized compressed instruction %#04x", instr)
}

func rs2qBase(instr uint16) uint64 { return uint64((instr>>7)&0x7) + 8 }

func cImm6(instr uint16) int64 {
	v := ((instr >> 2) & 0x1f) | ((instr >> 12) & 1 << 5)
	return signExtend(uint32(v), 6)
}

func cShamt(instr uint16) uint64 {
	return uint64(((instr >> 2) & 0x1f) | ((instr >> 12) & 1 << 5))
}

func cAddi16spImm(instr uint16) int64 {
	v := ((instr>>6)&1)<<4 | ((instr>>2)&1)<<5 | ((instr>>5)&1)<<6 | ((instr>>3)&0x3)<<7 | ((instr>>12)&1)<<9
	return signExtend(uint32(v), 10)
}

func cJImm(instr uint16) int64 {
	v := ((instr>>3)&0x7)<<1 | ((instr>>11)&1)<<4 | ((instr>>2)&1)<<5 | ((instr>>7)&1)<<6 |
		((instr>>6)&1)<<7 | ((instr>>9)&0x3)<<8 | ((instr>>8)&1)<<10 | ((instr>>12)&1)<<11
	return signExtend(uint32(v), 12)
}

func cBImm(instr uint16) int64 {
	v := ((instr>>3)&0x3)<<1 | ((instr>>10)&0x3)<<3 | ((instr>>2)&1)<<5 | ((instr>>5)&0x3)<<6 | ((instr>>12)&1)<<8
	return signExtend(uint32(v), 9)
}
