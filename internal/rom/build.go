package rom

import "github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"

// BuildFromELF parses and decodes an ELF image into a Rom, following §4.1:
// extract+categorize sections, decode exec ranges (standard + compressed),
// lower to ZiskInst, then size and fill the three address-indexed arrays.
func BuildFromELF(data []byte) (*Rom, error) {
	payload, err := ExtractPayload(data)
	if err != nil {
		return nil, err
	}

	r, err := buildFromExecSections(payload.Exec)
	if err != nil {
		return nil, err
	}
	r.EntryPoint = payload.EntryPoint
	r.RWData = payload.RW
	r.ROData = payload.RO
	return r, nil
}

// BuildFromCode decodes and lowers a single contiguous code range starting
// at addr (typically RomAddr), skipping ELF extraction entirely. Used by the
// raw-binary loading path and by tests that don't need a full ELF image.
func BuildFromCode(addr uint64, code []byte) (*Rom, error) {
	r, err := buildFromExecSections([]DataSection{{Addr: addr, Data: code}})
	if err != nil {
		return nil, err
	}
	r.EntryPoint = addr
	return r, nil
}

func buildFromExecSections(exec []DataSection) (*Rom, error) {
	aligned := map[uint64]*Inst{}
	nonAligned := map[uint64]*Inst{}
	for _, sec := range exec {
		a, na, err := decodeStream(sec.Addr, sec.Data)
		if err != nil {
			return nil, err
		}
		for k, v := range a {
			aligned[k] = v
		}
		for k, v := range na {
			nonAligned[k] = v
		}
	}

	r := &Rom{Exec: exec}
	if err := r.fillArrays(aligned, nonAligned); err != nil {
		return nil, err
	}
	return r, nil
}

// fillArrays computes bounds over all decoded addresses and allocates the
// three address-indexed arrays, per §4.1 "After decoding, compute bounds...".
func (r *Rom) fillArrays(aligned, nonAligned map[uint64]*Inst) error {
	var maxEntry, maxRom uint64
	haveEntry, haveRom := false, false
	var minNA, maxNA uint64
	haveNA := len(nonAligned) > 0

	for pc := range aligned {
		switch {
		case pc < RomAddr:
			if pc < RomEntry || pc >= RomAddr {
				return ziskerr.AddressOutOfRange(pc)
			}
			if !haveEntry || pc > maxEntry {
				maxEntry = pc
			}
			haveEntry = true
		case pc >= RomAddr && pc < RomAddrMax:
			if !haveRom || pc > maxRom {
				maxRom = pc
			}
			haveRom = true
		default:
			return ziskerr.AddressOutOfRange(pc)
		}
	}
	first := true
	for pc := range nonAligned {
		if pc < RomEntry || pc >= RomAddrMax {
			return ziskerr.AddressOutOfRange(pc)
		}
		if first || pc < minNA {
			minNA = pc
		}
		if first || pc > maxNA {
			maxNA = pc
		}
		first = false
	}

	if haveEntry {
		n := (maxEntry-RomEntry)/4 + 1
		r.RomEntryInstructions = make([]*Inst, n)
		for pc, inst := range aligned {
			if pc < RomAddr {
				r.RomEntryInstructions[(pc-RomEntry)/4] = inst
			}
		}
	}
	if haveRom {
		n := (maxRom-RomAddr)/4 + 1
		r.RomInstructions = make([]*Inst, n)
		for pc, inst := range aligned {
			if pc >= RomAddr {
				r.RomInstructions[(pc-RomAddr)/4] = inst
			}
		}
	}
	if haveNA {
		r.OffsetRomNA = minNA
		n := maxNA - minNA + 1
		r.RomNAInstructions = make([]*Inst, n)
		for pc, inst := range nonAligned {
			r.RomNAInstructions[pc-minNA] = inst
		}
	}
	return nil
}
