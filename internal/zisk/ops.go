// Package zisk defines the closed ZisK opcode catalog: the bijection between
// opcode name and 8-bit code, and the pure (a, b) -> (c, flag) semantics of
// each opcode.
package zisk

import "fmt"

// OpType classifies an opcode by which part of the system must certify it.
type OpType int

const (
	// OpInternal never leaves the emulator; it has no secondary SM.
	OpInternal OpType = iota
	OpArith
	OpArithA32
	OpArithAm32
	OpBinary
	OpBinaryE
	OpKeccak
)

func (t OpType) String() string {
	switch t {
	case OpInternal:
		return "i"
	case OpArith:
		return "a"
	case OpArithA32:
		return "a32"
	case OpArithAm32:
		return "am32"
	case OpBinary:
		return "b"
	case OpBinaryE:
		return "be"
	case OpKeccak:
		return "k"
	default:
		return "?"
	}
}

// OpFunc is the pure, side-effect-free semantic function of an opcode.
type OpFunc func(a, b uint64) (c uint64, flag bool)

// Op is one entry of the ZisK opcode catalog.
type Op struct {
	Name  string
	Type  OpType
	Steps uint64
	Code  uint8
	Call  OpFunc
}

// Code values, transcribed from the reference opcode table.
const (
	CodeFlag         uint8 = 0x00
	CodeCopyB        uint8 = 0x01
	CodeAdd          uint8 = 0x02
	CodeSub          uint8 = 0x03
	CodeLtu          uint8 = 0x04
	CodeLt           uint8 = 0x05
	CodeLeu          uint8 = 0x06
	CodeLe           uint8 = 0x07
	CodeEq           uint8 = 0x08
	CodeMinu         uint8 = 0x09
	CodeMin          uint8 = 0x0a
	CodeMaxu         uint8 = 0x0b
	CodeMax          uint8 = 0x0c
	CodeSll          uint8 = 0x0d
	CodeSrl          uint8 = 0x0e
	CodeSra          uint8 = 0x0f
	CodeAddW         uint8 = 0x12
	CodeSubW         uint8 = 0x13
	CodeLtuW         uint8 = 0x14
	CodeLtW          uint8 = 0x15
	CodeLeuW         uint8 = 0x16
	CodeLeW          uint8 = 0x17
	CodeEqW          uint8 = 0x18
	CodeMinuW        uint8 = 0x19
	CodeMinW         uint8 = 0x1a
	CodeMaxuW        uint8 = 0x1b
	CodeMaxW         uint8 = 0x1c
	CodeSllW         uint8 = 0x1d
	CodeSrlW         uint8 = 0x1e
	CodeSraW         uint8 = 0x1f
	CodeAnd          uint8 = 0x20
	CodeOr           uint8 = 0x21
	CodeXor          uint8 = 0x22
	CodeSignExtendB  uint8 = 0x24
	CodeSignExtendH  uint8 = 0x25
	CodeSignExtendW  uint8 = 0x26
	CodeMulu         uint8 = 0xb0
	CodeMul          uint8 = 0xb1
	CodeMulW         uint8 = 0xb5
	CodeMuluh        uint8 = 0xb8
	CodeMulh         uint8 = 0xb9
	CodeMulsuh       uint8 = 0xbb
	CodeDivu         uint8 = 0xc0
	CodeDiv          uint8 = 0xc1
	CodeDivuW        uint8 = 0xc4
	CodeDivW         uint8 = 0xc5
	CodeRemu         uint8 = 0xc8
	CodeRem          uint8 = 0xc9
	CodeRemuW        uint8 = 0xcc
	CodeRemW         uint8 = 0xcd
	CodeKeccak       uint8 = 0xf1
)

var catalog []Op
var byCode = map[uint8]*Op{}
var byName = map[string]*Op{}

func register(name string, t OpType, steps uint64, code uint8, fn OpFunc) {
	op := Op{Name: name, Type: t, Steps: steps, Code: code, Call: fn}
	catalog = append(catalog, op)
	p := &catalog[len(catalog)-1]
	byCode[code] = p
	byName[name] = p
}

func init() {
	register("flag", OpInternal, 0, CodeFlag, opFlag)
	register("copyb", OpInternal, 0, CodeCopyB, opCopyB)

	register("signextend_b", OpBinaryE, 109, CodeSignExtendB, opSignExtendB)
	register("signextend_h", OpBinaryE, 109, CodeSignExtendH, opSignExtendH)
	register("signextend_w", OpBinaryE, 109, CodeSignExtendW, opSignExtendW)

	register("add", OpBinary, 77, CodeAdd, opAdd)
	register("add_w", OpBinary, 77, CodeAddW, opAddW)
	register("sub", OpBinary, 77, CodeSub, opSub)
	register("sub_w", OpBinary, 77, CodeSubW, opSubW)

	register("sll", OpBinaryE, 109, CodeSll, opSll)
	register("sll_w", OpBinaryE, 109, CodeSllW, opSllW)
	register("sra", OpBinaryE, 109, CodeSra, opSra)
	register("srl", OpBinaryE, 109, CodeSrl, opSrl)
	register("sra_w", OpBinaryE, 109, CodeSraW, opSraW)
	register("srl_w", OpBinaryE, 109, CodeSrlW, opSrlW)

	register("eq", OpBinary, 77, CodeEq, opEq)
	register("eq_w", OpBinary, 77, CodeEqW, opEqW)
	register("ltu", OpBinary, 77, CodeLtu, opLtu)
	register("lt", OpBinary, 77, CodeLt, opLt)
	register("ltu_w", OpBinary, 77, CodeLtuW, opLtuW)
	register("lt_w", OpBinary, 77, CodeLtW, opLtW)
	register("leu", OpBinary, 77, CodeLeu, opLeu)
	register("le", OpBinary, 77, CodeLe, opLe)
	register("leu_w", OpBinary, 77, CodeLeuW, opLeuW)
	register("le_w", OpBinary, 77, CodeLeW, opLeW)

	register("and", OpBinary, 77, CodeAnd, opAnd)
	register("or", OpBinary, 77, CodeOr, opOr)
	register("xor", OpBinary, 77, CodeXor, opXor)

	register("mulu", OpArithAm32, 97, CodeMulu, opMulu)
	register("mul", OpArithAm32, 97, CodeMul, opMul)
	register("mul_w", OpArithAm32, 44, CodeMulW, opMulW)
	register("muluh", OpArithAm32, 97, CodeMuluh, opMuluh)
	register("mulh", OpArithAm32, 97, CodeMulh, opMulh)
	register("mulsuh", OpArithAm32, 97, CodeMulsuh, opMulsuh)

	register("divu", OpArithAm32, 174, CodeDivu, opDivu)
	register("div", OpArithAm32, 174, CodeDiv, opDiv)
	register("divu_w", OpArithA32, 136, CodeDivuW, opDivuW)
	register("div_w", OpArithA32, 136, CodeDivW, opDivW)
	register("remu", OpArithAm32, 174, CodeRemu, opRemu)
	register("rem", OpArithAm32, 174, CodeRem, opRem)
	register("remu_w", OpArithA32, 136, CodeRemuW, opRemuW)
	register("rem_w", OpArithA32, 136, CodeRemW, opRemW)

	register("minu", OpBinary, 77, CodeMinu, opMinu)
	register("min", OpBinary, 77, CodeMin, opMin)
	register("minu_w", OpBinary, 77, CodeMinuW, opMinuW)
	register("min_w", OpBinary, 77, CodeMinW, opMinW)
	register("maxu", OpBinary, 77, CodeMaxu, opMaxu)
	register("max", OpBinary, 77, CodeMax, opMax)
	register("maxu_w", OpBinary, 77, CodeMaxuW, opMaxuW)
	register("max_w", OpBinary, 77, CodeMaxW, opMaxW)

	register("keccak", OpKeccak, 77, CodeKeccak, opKeccak)
}

// ByCode looks up an opcode by its 8-bit code.
func ByCode(code uint8) (Op, error) {
	p, ok := byCode[code]
	if !ok {
		return Op{}, fmt.Errorf("zisk: unknown opcode code 0x%02x", code)
	}
	return *p, nil
}

// ByName looks up an opcode by its canonical name.
func ByName(name string) (Op, error) {
	p, ok := byName[name]
	if !ok {
		return Op{}, fmt.Errorf("zisk: unknown opcode name %q", name)
	}
	return *p, nil
}

// All returns the full catalog in registration order.
func All() []Op {
	out := make([]Op, len(catalog))
	copy(out, catalog)
	return out
}

// Execute looks up an opcode by code and evaluates it.
func Execute(code uint8, a, b uint64) (uint64, bool, error) {
	op, err := ByCode(code)
	if err != nil {
		return 0, false, err
	}
	c, flag := op.Call(a, b)
	return c, flag, nil
}
