package rom

import "github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"

var aluOp = map[string]string{
	"add": "add", "addw": "add_w", "sub": "sub", "subw": "sub_w",
	"and": "and", "or": "or", "xor": "xor",
	"sll": "sll", "sllw": "sll_w", "srl": "srl", "srlw": "srl_w",
	"sra": "sra", "sraw": "sra_w",
	"slt": "lt", "sltu": "ltu",
	"mul": "mul", "mulw": "mul_w", "mulh": "mulh", "mulhu": "muluh", "mulhsu": "mulsuh",
	"div": "div", "divw": "div_w", "divu": "divu", "divuw": "divu_w",
	"rem": "rem", "remw": "rem_w", "remu": "remu", "remuw": "remu_w",
}

var branchOp = map[string]string{
	"beq": "eq", "bne": "eq", "blt": "lt", "bge": "lt", "bltu": "ltu", "bgeu": "ltu",
}

// branchInverted reports whether the branch mnemonic jumps when the
// underlying comparison flag is false (bne, bge, bgeu).
var branchInverted = map[string]bool{"bne": true, "bge": true, "bgeu": true}

// lower builds one ZiskInst for a decoded RISC-V instruction, keyed at its
// own program address, per §4.1's "one or more ZiskInst" builder contract
// (this implementation uses exactly one, see DESIGN.md).
func lower(pc uint64, d decoded) (*Inst, error) {
	b := newInstBuilder(pc)
	width := int64(4)
	if d.instrLen != 0 {
		width = int64(d.instrLen)
	}

	switch {
	case d.mnemonic == "flag" || d.mnemonic == "ecall":
		if err := b.setOp("flag"); err != nil {
			return nil, err
		}
		b.srcA("imm", 0, false)
		b.srcB("imm", 0, false)
		b.jump(width, width)
		return b.buildLen(width)

	case d.mnemonic == "ebreak":
		if err := b.setOp("flag"); err != nil {
			return nil, err
		}
		b.srcA("imm", 0, false)
		b.srcB("imm", 0, false)
		b.jump(0, 0)
		b.end()
		return b.buildLen(width)

	case d.mnemonic == "lui":
		if err := b.setOp("add"); err != nil {
			return nil, err
		}
		b.srcA("imm", 0, false)
		b.srcB("imm", uint64(d.imm), false)
		b.store("reg", int64(d.rd), false, false)
		b.jump(width, width)
		return b.buildLen(width)

	case d.mnemonic == "auipc":
		if err := b.setOp("add"); err != nil {
			return nil, err
		}
		b.srcA("imm", pc, false)
		b.srcB("imm", uint64(d.imm), false)
		b.store("reg", int64(d.rd), false, false)
		b.jump(width, width)
		return b.buildLen(width)

	case d.mnemonic == "jal":
		if err := b.setOp("copyb"); err != nil {
			return nil, err
		}
		b.srcA("imm", 0, false)
		b.srcB("imm", pc+uint64(width), false)
		b.store("reg", int64(d.rd), false, false)
		// Unconditional PC += imm via the jump-offset path (flag is
		// irrelevant since both offsets are equal); c itself carries the
		// return address for rd, not the branch target.
		b.jump(d.imm, d.imm)
		return b.buildLen(width)

	case d.mnemonic == "jalr":
		if err := b.setOp("add"); err != nil {
			return nil, err
		}
		b.srcA("reg", d.rs1, false)
		b.srcB("imm", uint64(d.imm), false)
		// rd receives the return address (pc+width), not the jump target c;
		// store() is a no-op when d.rd==0 (plain jr).
		b.store("reg", int64(d.rd), false, true)
		b.setPC()
		b.jump(0, 0)
		return b.buildLen(width)

	case isBranch(d.mnemonic):
		opName := branchOp[d.mnemonic]
		if err := b.setOp(opName); err != nil {
			return nil, err
		}
		b.srcA("reg", d.rs1, false)
		b.srcB("reg", d.rs2, false)
		if branchInverted[d.mnemonic] {
			b.jump(width, d.imm)
		} else {
			b.jump(d.imm, width)
		}
		return b.buildLen(width)

	case isLoad(d.mnemonic):
		if err := b.setOp("add"); err != nil {
			return nil, err
		}
		b.srcA("reg", d.rs1, false)
		b.srcB("imm", uint64(d.imm), false)
		b.store("reg", int64(d.rd), false, false)
		if err := b.setIndWidth(d.width); err != nil {
			return nil, err
		}
		b.jump(width, width)
		inst, err := b.buildLen(width)
		if err != nil {
			return nil, err
		}
		inst.Mnemonic = d.mnemonic
		inst.IsLoad = true
		inst.LoadSigned = d.signed
		return inst, nil

	case isStore(d.mnemonic):
		if err := b.setOp("add"); err != nil {
			return nil, err
		}
		b.srcA("reg", d.rs1, false)
		b.srcB("imm", uint64(d.imm), false)
		if err := b.setIndWidth(d.width); err != nil {
			return nil, err
		}
		b.jump(width, width)
		inst, err := b.buildLen(width)
		if err != nil {
			return nil, err
		}
		inst.Mnemonic = d.mnemonic
		inst.IsStore = true
		inst.StoreSrcReg = d.rs2
		return inst, nil

	case isALUImm(d.mnemonic):
		opName := aluOp[stripI(d.mnemonic)]
		if err := b.setOp(opName); err != nil {
			return nil, err
		}
		b.srcA("reg", d.rs1, false)
		b.srcB("imm", uint64(d.imm), false)
		b.store("reg", int64(d.rd), false, false)
		b.jump(width, width)
		return b.buildLen(width)

	case aluOp[d.mnemonic] != "":
		opName := aluOp[d.mnemonic]
		if err := b.setOp(opName); err != nil {
			return nil, err
		}
		b.srcA("reg", d.rs1, false)
		b.srcB("reg", d.rs2, false)
		b.store("reg", int64(d.rd), false, false)
		b.jump(width, width)
		return b.buildLen(width)
	}

	return nil, ziskerr.RomBuildf("unsupported mnemonic %q at %#x", d.mnemonic, pc)
}

func isBranch(m string) bool { _, ok := branchOp[m]; return ok }

func isLoad(m string) bool {
	switch m {
	case "lb", "lh", "lw", "ld", "lbu", "lhu", "lwu":
		return true
	}
	return false
}

func isStore(m string) bool {
	switch m {
	case "sb", "sh", "sw", "sd":
		return true
	}
	return false
}

func isALUImm(m string) bool {
	switch m {
	case "addi", "addiw", "xori", "ori", "andi", "slti", "sltiu",
		"slli", "slliw", "srli", "srliw", "srai", "sraiw":
		return true
	}
	return false
}

// stripI maps an immediate-form mnemonic to its ALU-op-table key (e.g.
// "addi" -> "add", "sltiu" -> "sltu", "slliw" -> "sllw").
func stripI(m string) string {
	switch m {
	case "addi":
		return "add"
	case "addiw":
		return "addw"
	case "xori":
		return "xor"
	case "ori":
		return "or"
	case "andi":
		return "and"
	case "slti":
		return "slt"
	case "sltiu":
		return "sltu"
	case "slli":
		return "sll"
	case "slliw":
		return "sllw"
	case "srli":
		return "srl"
	case "srliw":
		return "srlw"
	case "srai":
		return "sra"
	case "sraiw":
		return "sraw"
	}
	return m
}
