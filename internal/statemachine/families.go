package statemachine

import "github.com/0xPolygonHermez/zisk-sub004/internal/zisk"

// costsForFamily builds an Engine's per-opcode cost map straight from the
// opcode catalog's own Steps field, so a family's row cost can never drift
// from the catalog it is certifying.
func costsForFamily(family zisk.OpType) map[uint8]uint64 {
	costs := map[uint8]uint64{}
	for _, op := range zisk.All() {
		if op.Type == family {
			costs[op.Code] = op.Steps
		}
	}
	return costs
}

// NewBinary builds the Engine for and/or/xor, add/sub, compares and
// min/max, 64-bit and 32-bit ("W") alike — OpBinary in the catalog.
func NewBinary() *Engine { return NewEngine(zisk.OpBinary, costsForFamily(zisk.OpBinary)) }

// NewBinaryExtended builds the Engine for the shifts (64-bit and "W") and
// sign-extension — OpBinaryE in the catalog.
func NewBinaryExtended() *Engine { return NewEngine(zisk.OpBinaryE, costsForFamily(zisk.OpBinaryE)) }

// NewArith builds the Engine for OpArith. No opcode in the catalog has that
// type, so this Engine counts no events.
func NewArith() *Engine { return NewEngine(zisk.OpArith, costsForFamily(zisk.OpArith)) }

// NewArith32 builds the Engine for the 32-bit ("W") division and remainder
// opcodes — OpArithA32. mul_w belongs to OpArithAm32.
func NewArith32() *Engine { return NewEngine(zisk.OpArithA32, costsForFamily(zisk.OpArithA32)) }

// NewArithAm32 builds the Engine for 64-bit multiplication, division and
// remainder, plus mul_w — OpArithAm32. The spec requires this family to additionally emit a
// derived comparison on the remainder; InputCollector rows carry the raw
// (a, b, c, flag) tuple the witness generator needs to reconstruct that
// comparison, so no extra bookkeeping is needed here beyond the generic
// Engine.
func NewArithAm32() *Engine { return NewEngine(zisk.OpArithAm32, costsForFamily(zisk.OpArithAm32)) }

// NewKeccak builds the Engine for the Keccak-f[1600] precompile opcode.
func NewKeccak() *Engine { return NewEngine(zisk.OpKeccak, costsForFamily(zisk.OpKeccak)) }
