package rom

import (
	"github.com/0xPolygonHermez/zisk-sub004/internal/zisk"
	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// instBuilder lowers a decoded RISC-V instruction into a ZisK Inst, mirroring
// the reference ZiskInstBuilder's src/store/op setters.
type instBuilder struct {
	i            *Inst
	indWidthSet  bool
}

func newInstBuilder(paddr uint64) *instBuilder {
	return &instBuilder{i: NewInst(paddr)}
}

func (b *instBuilder) srcCode(tag string, forB bool) uint64 {
	switch tag {
	case "mem":
		return SrcMem
	case "imm":
		return SrcImm
	case "lastc":
		return SrcLastC
	case "sp":
		return SrcSP
	case "step":
		return SrcStep
	case "ind":
		if forB {
			return SrcInd
		}
	}
	panic("rom: invalid src tag " + tag)
}

func (b *instBuilder) storeCode(tag string) uint64 {
	switch tag {
	case "none":
		return StoreNone
	case "mem":
		return StoreMem
	case "ind":
		return StoreInd
	}
	panic("rom: invalid store tag " + tag)
}

// nto32s splits a 64-bit signed-range value into (low32, high32) the way the
// reference builder does for immediate encoding.
func nto32s(n int64) (uint32, uint32) {
	u := uint64(n)
	return uint32(u & 0xFFFFFFFF), uint32(u >> 32)
}

// srcA sets a_src/a_offset_imm0/a_use_sp_imm1. src is one of "mem","imm",
// "lastc","sp","step","reg"; when "reg", regNum==0 maps to an immediate
// zero and regNum>0 maps to the mapped register's memory address.
func (b *instBuilder) srcA(src string, offsetImmReg uint64, useSP bool) {
	if src == "reg" {
		if offsetImmReg == 0 {
			src = "imm"
			offsetImmReg = 0
		} else {
			src = "mem"
			offsetImmReg = SysAddr + offsetImmReg*8
		}
	}
	b.i.ASrc = b.srcCode(src, false)

	switch b.i.ASrc {
	case SrcMem:
		b.i.AUseSPImm1 = boolBit(useSP)
		b.i.AOffsetImm0 = offsetImmReg
	case SrcImm:
		lo, hi := nto32s(int64(offsetImmReg))
		b.i.AUseSPImm1 = uint64(hi)
		b.i.AOffsetImm0 = uint64(lo)
	default:
		b.i.AUseSPImm1 = 0
		b.i.AOffsetImm0 = 0
	}
}

func (b *instBuilder) srcB(src string, offsetImmReg uint64, useSP bool) {
	if src == "reg" {
		if offsetImmReg == 0 {
			src = "imm"
			offsetImmReg = 0
		} else {
			src = "mem"
			offsetImmReg = SysAddr + offsetImmReg*8
		}
	}
	b.i.BSrc = b.srcCode(src, true)

	switch b.i.BSrc {
	case SrcMem, SrcInd:
		b.i.BUseSPImm1 = boolBit(useSP)
		b.i.BOffsetImm0 = offsetImmReg
	case SrcImm:
		lo, hi := nto32s(int64(offsetImmReg))
		b.i.BUseSPImm1 = uint64(hi)
		b.i.BOffsetImm0 = uint64(lo)
	default:
		b.i.BUseSPImm1 = 0
		b.i.BOffsetImm0 = 0
	}
}

// store configures the destination; dst is "reg","mem","ind","none".
func (b *instBuilder) store(dst string, offset int64, useSP bool, storeRA bool) {
	if dst == "reg" {
		if offset == 0 {
			return
		}
		dst = "mem"
		offset = int64(SysAddr) + offset*8
	}
	b.i.StoreRA = storeRA
	b.i.Store = b.storeCode(dst)

	if b.i.Store == StoreMem || b.i.Store == StoreInd {
		b.i.StoreUseSP = useSP
		b.i.StoreOffset = offset
	} else {
		b.i.StoreUseSP = false
		b.i.StoreOffset = 0
	}
}

func (b *instBuilder) setPC()        { b.i.SetPC = true }
func (b *instBuilder) setSP()        { b.i.SetSP = true }
func (b *instBuilder) end()          { b.i.End = true }
func (b *instBuilder) incSP(n uint64) { b.i.IncSP += n }

func (b *instBuilder) jump(j1, j2 int64) {
	b.i.JmpOffset1 = j1
	b.i.JmpOffset2 = j2
}

func (b *instBuilder) setOp(name string) error {
	op, err := zisk.ByName(name)
	if err != nil {
		return ziskerr.RomBuildf("decoding instruction at %#x: %v", b.i.PAddr, err)
	}
	b.i.IsExternalOp = op.Type != zisk.OpInternal
	b.i.Op = op.Code
	b.i.OpStr = op.Name
	return nil
}

func (b *instBuilder) setIndWidth(w uint64) error {
	switch w {
	case 1, 2, 4, 8:
		b.i.IndWidth = w
		b.indWidthSet = true
		return nil
	default:
		return ziskerr.RomBuildf("invalid ind_width %d at %#x", w, b.i.PAddr)
	}
}

func (b *instBuilder) check() error {
	if b.i.ASrc == InvalidU64 || b.i.BSrc == InvalidU64 {
		return ziskerr.RomBuildf("instruction at %#x missing a_src/b_src", b.i.PAddr)
	}
	if b.i.JmpOffset1 == InvalidS64 || b.i.JmpOffset2 == InvalidS64 {
		return ziskerr.RomBuildf("instruction at %#x missing jump offsets", b.i.PAddr)
	}
	if b.i.BSrc == SrcInd && b.i.Store == StoreInd {
		return ziskerr.RomBuildf("instruction at %#x: load and store cannot both be indirect", b.i.PAddr)
	}
	if (b.i.BSrc == SrcInd || b.i.Store == StoreInd) && !b.indWidthSet {
		return ziskerr.RomBuildf("instruction at %#x: ind_width must be set for indirect access", b.i.PAddr)
	}
	return nil
}

func (b *instBuilder) build() (*Inst, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.i, nil
}

// buildLen is build() plus recording the source instruction's encoded
// length, needed by the emulator to compute jalr/jal return addresses.
func (b *instBuilder) buildLen(width int64) (*Inst, error) {
	inst, err := b.build()
	if err != nil {
		return nil, err
	}
	inst.InstLen = uint64(width)
	return inst, nil
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
