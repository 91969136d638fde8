package rom

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
)

// jsonInst mirrors the reference ZiskRom JSON encoding: default-valued
// fields are omitted via `omitempty`, keyed by the enclosing map's string
// paddr (§6 ROM serialization).
type jsonInst struct {
	StoreRA      int    `json:"storeRa,omitempty"`
	Store        uint64 `json:"store,omitempty"`
	StoreOffset  int64  `json:"storeOffset,omitempty"`
	StoreUseSP   int    `json:"storeUseSp,omitempty"`
	SetPC        int    `json:"setPc,omitempty"`
	SetSP        int    `json:"setSp,omitempty"`
	IncSP        uint64 `json:"incSp,omitempty"`
	IndWidth     uint64 `json:"indWidth,omitempty"`
	End          int    `json:"end,omitempty"`
	ASrc         uint64 `json:"aSrc,omitempty"`
	AOffsetImm0  uint64 `json:"aOffsetImm0,omitempty"`
	AUseSPImm1   uint64 `json:"aUseSpImm1,omitempty"`
	BSrc         uint64 `json:"bSrc,omitempty"`
	BOffsetImm0  uint64 `json:"bOffsetImm0,omitempty"`
	BUseSPImm1   uint64 `json:"bUseSpImm1,omitempty"`
	IsExternalOp int    `json:"isExternalOp,omitempty"`
	Op           uint8  `json:"op,omitempty"`
	OpStr        string `json:"opStr,omitempty"`
	JmpOffset1   int64  `json:"jmpOffset1,omitempty"`
	JmpOffset2   int64  `json:"jmpOffset2,omitempty"`
	Verbose      string `json:"verbose,omitempty"`
}

// jsonBuffer mirrors Node's Buffer JSON shape: {"type":"Buffer","data":[..]}.
type jsonBuffer struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

func toJSONBuffer(b []byte) jsonBuffer {
	data := make([]int, len(b))
	for i, v := range b {
		data[i] = int(v)
	}
	return jsonBuffer{Type: "Buffer", Data: data}
}

type jsonROData struct {
	Start uint64     `json:"start"`
	Data  jsonBuffer `json:"data"`
}

type jsonRom struct {
	NextInitInstAddr uint64                `json:"nextInitInstAddr"`
	Insts            map[string]jsonInst   `json:"insts"`
	ROData           []jsonROData          `json:"roData"`
}

func toJSONInst(i *Inst) jsonInst {
	return jsonInst{
		StoreRA:      boolInt(i.StoreRA),
		Store:        i.Store,
		StoreOffset:  i.StoreOffset,
		StoreUseSP:   boolInt(i.StoreUseSP),
		SetPC:        boolInt(i.SetPC),
		SetSP:        boolInt(i.SetSP),
		IncSP:        i.IncSP,
		IndWidth:     i.IndWidth,
		End:          boolInt(i.End),
		ASrc:         i.ASrc,
		AOffsetImm0:  i.AOffsetImm0,
		AUseSPImm1:   i.AUseSPImm1,
		BSrc:         i.BSrc,
		BOffsetImm0:  i.BOffsetImm0,
		BUseSPImm1:   i.BUseSPImm1,
		IsExternalOp: boolInt(i.IsExternalOp),
		Op:           i.Op,
		OpStr:        i.OpStr,
		JmpOffset1:   i.JmpOffset1,
		JmpOffset2:   i.JmpOffset2,
		Verbose:      i.Verbose,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// allInsts returns every non-nil instruction across the three arrays, keyed
// by its program address.
func (r *Rom) allInsts() map[uint64]*Inst {
	out := map[uint64]*Inst{}
	for idx, inst := range r.RomEntryInstructions {
		if inst != nil {
			out[RomEntry+uint64(idx)*4] = inst
		}
	}
	for idx, inst := range r.RomInstructions {
		if inst != nil {
			out[RomAddr+uint64(idx)*4] = inst
		}
	}
	for idx, inst := range r.RomNAInstructions {
		if inst != nil {
			out[r.OffsetRomNA+uint64(idx)] = inst
		}
	}
	return out
}

// SaveToJSON renders the ROM in the reference JSON shape.
func (r *Rom) SaveToJSON() ([]byte, error) {
	insts := r.allInsts()
	out := jsonRom{
		NextInitInstAddr: r.NextInitInstAddr,
		Insts:            make(map[string]jsonInst, len(insts)),
	}
	for pc, inst := range insts {
		out.Insts[fmt.Sprintf("%d", pc)] = toJSONInst(inst)
	}
	for _, ds := range r.ROData {
		out.ROData = append(out.ROData, jsonROData{
			Start: ds.Addr,
			Data:  toJSONBuffer(ds.Data),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

func sortedAddrs(insts map[uint64]*Inst) []uint64 {
	addrs := make([]uint64, 0, len(insts))
	for pc := range insts {
		addrs = append(addrs, pc)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// SaveToPIL renders one romLine(...) statement per instruction, addresses
// ascending, matching the reference PIL text format.
func (r *Rom) SaveToPIL() []byte {
	insts := r.allInsts()
	addrs := sortedAddrs(insts)

	var buf bytes.Buffer
	for _, pc := range addrs {
		i := insts[pc]
		fmt.Fprintf(&buf, "romLine(%d,%d,%d,%d,%d,%d,%d,%d,%d,\"%s\",\"%s\");\n",
			pc, romFlags(i), i.Op, i.AOffsetImm0, i.BOffsetImm0, i.IndWidth,
			i.StoreOffset, i.JmpOffset1, i.JmpOffset2, i.OpStr, i.Verbose)
	}
	return buf.Bytes()
}

// romFlags packs the boolean/small-enum fields into a single flags word for
// the PIL/BIN formats.
func romFlags(i *Inst) uint64 {
	var f uint64
	if i.StoreRA {
		f |= 1 << 0
	}
	f |= i.Store << 1
	if i.SetPC {
		f |= 1 << 3
	}
	if i.End {
		f |= 1 << 4
	}
	f |= i.ASrc << 5
	f |= i.BSrc << 8
	if i.IsExternalOp {
		f |= 1 << 11
	}
	if i.SetSP {
		f |= 1 << 12
	}
	if i.StoreUseSP {
		f |= 1 << 13
	}
	return f
}

// SaveToBin packs SaveToPIL's numeric fields (not OpStr or Verbose) as
// little-endian binary, addresses ascending.
func (r *Rom) SaveToBin() []byte {
	insts := r.allInsts()
	addrs := sortedAddrs(insts)

	var buf bytes.Buffer
	for _, pc := range addrs {
		i := insts[pc]
		binary.Write(&buf, binary.LittleEndian, pc)
		binary.Write(&buf, binary.LittleEndian, romFlags(i))
		buf.WriteByte(i.Op)
		binary.Write(&buf, binary.LittleEndian, i.AOffsetImm0)
		binary.Write(&buf, binary.LittleEndian, i.BOffsetImm0)
		binary.Write(&buf, binary.LittleEndian, i.IndWidth)
		binary.Write(&buf, binary.LittleEndian, i.StoreOffset)
		binary.Write(&buf, binary.LittleEndian, i.JmpOffset1)
		binary.Write(&buf, binary.LittleEndian, i.JmpOffset2)
	}
	return buf.Bytes()
}

func unpackFlags(f uint64) (storeRA bool, store uint64, setPC, end bool, aSrc, bSrc uint64, isExternalOp, setSP, storeUseSP bool) {
	storeRA = f&(1<<0) != 0
	store = (f >> 1) & 0x3
	setPC = f&(1<<3) != 0
	end = f&(1<<4) != 0
	aSrc = (f >> 5) & 0x7
	bSrc = (f >> 8) & 0x7
	isExternalOp = f&(1<<11) != 0
	setSP = f&(1<<12) != 0
	storeUseSP = f&(1<<13) != 0
	return
}

// LoadFromJSON parses the reference JSON shape back into a Rom.
func LoadFromJSON(data []byte) (*Rom, error) {
	var in jsonRom
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	insts := map[uint64]*Inst{}
	for key, ji := range in.Insts {
		var pc uint64
		if _, err := fmt.Sscanf(key, "%d", &pc); err != nil {
			return nil, fmt.Errorf("rom: bad paddr key %q: %w", key, err)
		}
		i := &Inst{
			PAddr:        pc,
			StoreRA:      ji.StoreRA != 0,
			Store:        ji.Store,
			StoreOffset:  ji.StoreOffset,
			StoreUseSP:   ji.StoreUseSP != 0,
			SetPC:        ji.SetPC != 0,
			SetSP:        ji.SetSP != 0,
			IncSP:        ji.IncSP,
			IndWidth:     ji.IndWidth,
			End:          ji.End != 0,
			ASrc:         ji.ASrc,
			AOffsetImm0:  ji.AOffsetImm0,
			AUseSPImm1:   ji.AUseSPImm1,
			BSrc:         ji.BSrc,
			BOffsetImm0:  ji.BOffsetImm0,
			BUseSPImm1:   ji.BUseSPImm1,
			IsExternalOp: ji.IsExternalOp != 0,
			Op:           ji.Op,
			OpStr:        ji.OpStr,
			JmpOffset1:   ji.JmpOffset1,
			JmpOffset2:   ji.JmpOffset2,
			Verbose:      ji.Verbose,
		}
		if i.IndWidth == 0 {
			i.IndWidth = 8
		}
		insts[pc] = i
	}

	r := &Rom{NextInitInstAddr: in.NextInitInstAddr}
	for _, jd := range in.ROData {
		data := make([]byte, len(jd.Data.Data))
		for i, v := range jd.Data.Data {
			data[i] = byte(v)
		}
		r.ROData = append(r.ROData, DataSection{Addr: jd.Start, Data: data})
	}

	aligned := map[uint64]*Inst{}
	nonAligned := map[uint64]*Inst{}
	for pc, inst := range insts {
		if pc&0b11 == 0 {
			aligned[pc] = inst
		} else {
			nonAligned[pc] = inst
		}
	}
	if err := r.fillArrays(aligned, nonAligned); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFromBin parses the flat little-endian binary format back into a Rom.
// Opcode mnemonic strings and verbose annotations are not present in the
// binary format and are left empty, matching the reference format's scope
// (debugging/interop, not a full round-trip of human-readable fields).
func LoadFromBin(data []byte) (*Rom, error) {
	const recordSize = 8 + 8 + 1 + 8 + 8 + 8 + 8 + 8 + 8
	if len(data)%recordSize != 0 {
		return nil, fmt.Errorf("rom: bin data length %d is not a multiple of record size %d", len(data), recordSize)
	}

	insts := map[uint64]*Inst{}
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		var pc, flags uint64
		var op byte
		var aOff, bOff, indWidth uint64
		var storeOff, jmp1, jmp2 int64

		binary.Read(r, binary.LittleEndian, &pc)
		binary.Read(r, binary.LittleEndian, &flags)
		op, _ = r.ReadByte()
		binary.Read(r, binary.LittleEndian, &aOff)
		binary.Read(r, binary.LittleEndian, &bOff)
		binary.Read(r, binary.LittleEndian, &indWidth)
		binary.Read(r, binary.LittleEndian, &storeOff)
		binary.Read(r, binary.LittleEndian, &jmp1)
		binary.Read(r, binary.LittleEndian, &jmp2)

		storeRA, store, setPC, end, aSrc, bSrc, isExternalOp, setSP, storeUseSP := unpackFlags(flags)
		insts[pc] = &Inst{
			PAddr: pc, StoreRA: storeRA, Store: store, SetPC: setPC, End: end,
			ASrc: aSrc, BSrc: bSrc, IsExternalOp: isExternalOp, SetSP: setSP,
			StoreUseSP: storeUseSP, Op: op, AOffsetImm0: aOff, BOffsetImm0: bOff,
			IndWidth: indWidth, StoreOffset: storeOff, JmpOffset1: jmp1, JmpOffset2: jmp2,
		}
	}

	out := &Rom{}
	aligned := map[uint64]*Inst{}
	nonAligned := map[uint64]*Inst{}
	for pc, inst := range insts {
		if pc&0b11 == 0 {
			aligned[pc] = inst
		} else {
			nonAligned[pc] = inst
		}
	}
	if err := out.fillArrays(aligned, nonAligned); err != nil {
		return nil, err
	}
	return out, nil
}
