package emulator

import (
	"github.com/0xPolygonHermez/zisk-sub004/internal/rom"
	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// Memory is the emulator's flat address space: the mapped register file at
// rom.SysAddr plus the RAM window [rom.RamAddr, rom.RamAddr+rom.RamSize).
type Memory struct {
	ram  []byte
	regs [NumRegs]uint64
}

// NewMemory allocates RAM and loads the ROM's initial rw/ro data sections.
// A section that does not lie wholly inside the RAM window is not loaded.
func NewMemory(r *rom.Rom) *Memory {
	m := &Memory{ram: make([]byte, rom.RamSize)}
	for _, ds := range r.RWData {
		m.loadSection(ds)
	}
	for _, ds := range r.ROData {
		m.loadSection(ds)
	}
	return m
}

func (m *Memory) loadSection(ds rom.DataSection) {
	if ds.Addr < rom.RamAddr || ds.Addr+uint64(len(ds.Data)) > rom.RamAddr+rom.RamSize {
		return
	}
	copy(m.ram[ds.Addr-rom.RamAddr:], ds.Data)
}

// Reg returns register n's value (register 0 always reads as 0).
func (m *Memory) Reg(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return m.regs[n]
}

// SetReg writes register n (writes to register 0 are discarded).
func (m *Memory) SetReg(n uint64, v uint64) {
	if n == 0 {
		return
	}
	m.regs[n] = v
}

// ReadN reads width bytes at addr as a little-endian value, routing through
// either the register file or RAM depending on address range.
func (m *Memory) ReadN(addr uint64, width uint64) (uint64, error) {
	if addr >= rom.SysAddr && addr < rom.SysAddr+NumRegs*8 {
		return m.Reg((addr - rom.SysAddr) / 8), nil
	}
	if addr < rom.RamAddr || addr+width > rom.RamAddr+rom.RamSize {
		return 0, ziskerr.AddressOutOfRange(addr)
	}
	off := addr - rom.RamAddr
	var v uint64
	for i := uint64(0); i < width; i++ {
		v |= uint64(m.ram[off+i]) << (8 * i)
	}
	return v, nil
}

// WriteN writes width bytes of v at addr, little-endian.
func (m *Memory) WriteN(addr uint64, width uint64, v uint64) error {
	if addr >= rom.SysAddr && addr < rom.SysAddr+NumRegs*8 {
		m.SetReg((addr-rom.SysAddr)/8, v)
		return nil
	}
	if addr < rom.RamAddr || addr+width > rom.RamAddr+rom.RamSize {
		return ziskerr.AddressOutOfRange(addr)
	}
	off := addr - rom.RamAddr
	for i := uint64(0); i < width; i++ {
		m.ram[off+i] = byte(v >> (8 * i))
	}
	return nil
}

// SignExtend sign-extends a width-byte value read as unsigned.
func SignExtend(v uint64, width uint64) uint64 {
	bits := width * 8
	shift := 64 - bits
	return uint64(int64(v<<shift) >> shift)
}
