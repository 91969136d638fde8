package zisk

import "math/bits"

func opFlag(a, b uint64) (uint64, bool)  { return 0, false }
func opCopyB(a, b uint64) (uint64, bool) { return b, false }

func opAdd(a, b uint64) (uint64, bool) { return a + b, false }
func opSub(a, b uint64) (uint64, bool) { return a - b, false }

func opAddW(a, b uint64) (uint64, bool) { return signExtend32(uint32(a) + uint32(b)), false }
func opSubW(a, b uint64) (uint64, bool) { return signExtend32(uint32(a) - uint32(b)), false }

func opSll(a, b uint64) (uint64, bool) { return a << (b & 63), false }
func opSrl(a, b uint64) (uint64, bool) { return a >> (b & 63), false }
func opSra(a, b uint64) (uint64, bool) { return uint64(int64(a) >> (b & 63)), false }

func opSllW(a, b uint64) (uint64, bool) {
	return signExtend32(uint32(a) << (uint32(b) & 31)), false
}
func opSrlW(a, b uint64) (uint64, bool) {
	return signExtend32(uint32(a) >> (uint32(b) & 31)), false
}
func opSraW(a, b uint64) (uint64, bool) {
	return signExtend32(uint32(int32(uint32(a)) >> (uint32(b) & 31))), false
}

func opEq(a, b uint64) (uint64, bool)  { f := a == b; return boolU64(f), f }
func opEqW(a, b uint64) (uint64, bool) { f := uint32(a) == uint32(b); return boolU64(f), f }

func opLtu(a, b uint64) (uint64, bool)  { f := a < b; return boolU64(f), f }
func opLt(a, b uint64) (uint64, bool)   { f := int64(a) < int64(b); return boolU64(f), f }
func opLtuW(a, b uint64) (uint64, bool) { f := uint32(a) < uint32(b); return boolU64(f), f }
func opLtW(a, b uint64) (uint64, bool)  { f := int32(uint32(a)) < int32(uint32(b)); return boolU64(f), f }

func opLeu(a, b uint64) (uint64, bool)  { f := a <= b; return boolU64(f), f }
func opLe(a, b uint64) (uint64, bool)   { f := int64(a) <= int64(b); return boolU64(f), f }
func opLeuW(a, b uint64) (uint64, bool) { f := uint32(a) <= uint32(b); return boolU64(f), f }
func opLeW(a, b uint64) (uint64, bool)  { f := int32(uint32(a)) <= int32(uint32(b)); return boolU64(f), f }

func opAnd(a, b uint64) (uint64, bool) { return a & b, false }
func opOr(a, b uint64) (uint64, bool)  { return a | b, false }
func opXor(a, b uint64) (uint64, bool) { return a ^ b, false }

func opSignExtendB(a, b uint64) (uint64, bool) { return uint64(int64(int8(b))), false }
func opSignExtendH(a, b uint64) (uint64, bool) { return uint64(int64(int16(b))), false }
func opSignExtendW(a, b uint64) (uint64, bool) { return signExtend32(uint32(b)), false }

func opMinu(a, b uint64) (uint64, bool) {
	if a < b {
		return a, false
	}
	return b, false
}
func opMin(a, b uint64) (uint64, bool) {
	if int64(a) < int64(b) {
		return a, false
	}
	return b, false
}
func opMinuW(a, b uint64) (uint64, bool) {
	if uint32(a) < uint32(b) {
		return signExtend32(uint32(a)), false
	}
	return signExtend32(uint32(b)), false
}
func opMinW(a, b uint64) (uint64, bool) {
	if int32(uint32(a)) < int32(uint32(b)) {
		return signExtend32(uint32(a)), false
	}
	return signExtend32(uint32(b)), false
}
func opMaxu(a, b uint64) (uint64, bool) {
	if a > b {
		return a, false
	}
	return b, false
}
func opMax(a, b uint64) (uint64, bool) {
	if int64(a) > int64(b) {
		return a, false
	}
	return b, false
}
func opMaxuW(a, b uint64) (uint64, bool) {
	if uint32(a) > uint32(b) {
		return signExtend32(uint32(a)), false
	}
	return signExtend32(uint32(b)), false
}
func opMaxW(a, b uint64) (uint64, bool) {
	if int32(uint32(a)) > int32(uint32(b)) {
		return signExtend32(uint32(a)), false
	}
	return signExtend32(uint32(b)), false
}

func opMulu(a, b uint64) (uint64, bool) { return a * b, false }
func opMul(a, b uint64) (uint64, bool)  { return uint64(int64(a) * int64(b)), false }
func opMulW(a, b uint64) (uint64, bool) {
	return signExtend32(uint32(a) * uint32(b)), false
}
func opMuluh(a, b uint64) (uint64, bool) { hi, _ := bits.Mul64(a, b); return hi, false }
func opMulh(a, b uint64) (uint64, bool) {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	// correct for signed operands: hi_signed = hi - (a<0 ? b : 0) - (b<0 ? a : 0)
	if int64(a) < 0 {
		hi -= b
	}
	if int64(b) < 0 {
		hi -= a
	}
	return hi, false
}
func opMulsuh(a, b uint64) (uint64, bool) {
	hi, _ := bits.Mul64(a, b)
	if int64(a) < 0 {
		hi -= b
	}
	return hi, false
}

// divu: division by zero returns u64::MAX with flag=true.
func opDivu(a, b uint64) (uint64, bool) {
	if b == 0 {
		return 0xFFFFFFFFFFFFFFFF, true
	}
	return a / b, false
}
func opDiv(a, b uint64) (uint64, bool) {
	if b == 0 {
		return 0xFFFFFFFFFFFFFFFF, true
	}
	return uint64(int64(a) / int64(b)), false
}
func opDivuW(a, b uint64) (uint64, bool) {
	bb := uint32(b)
	if bb == 0 {
		return 0xFFFFFFFFFFFFFFFF, true
	}
	return signExtend32(uint32(a) / bb), false
}
func opDivW(a, b uint64) (uint64, bool) {
	bb := int32(uint32(b))
	if bb == 0 {
		return 0xFFFFFFFFFFFFFFFF, true
	}
	return signExtend32(uint32(int32(uint32(a)) / bb)), false
}

func opRemu(a, b uint64) (uint64, bool) {
	if b == 0 {
		return a, true
	}
	return a % b, false
}
func opRem(a, b uint64) (uint64, bool) {
	if b == 0 {
		return a, true
	}
	return uint64(int64(a) % int64(b)), false
}
func opRemuW(a, b uint64) (uint64, bool) {
	bb := uint32(b)
	if bb == 0 {
		return signExtend32(uint32(a)), true
	}
	return signExtend32(uint32(a) % bb), false
}
func opRemW(a, b uint64) (uint64, bool) {
	bb := int32(uint32(b))
	if bb == 0 {
		return signExtend32(uint32(a)), true
	}
	return signExtend32(uint32(int32(uint32(a)) % bb)), false
}

// opKeccak is an opaque tag: the real permutation is performed by the Keccak
// secondary state machine, not here.
func opKeccak(a, b uint64) (uint64, bool) { return a, false }

func signExtend32(v uint32) uint64 { return uint64(int64(int32(v))) }

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
