package rom

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/0xPolygonHermez/zisk-sub004/internal/ziskerr"
)

// Payload is the categorized output of ELF section extraction, grouped by
// purpose before it is handed to the instruction decoder.
type Payload struct {
	EntryPoint uint64
	Exec       []DataSection
	RW         []DataSection
	RO         []DataSection
}

// roundUp4 rounds n up to the next multiple of 4.
func roundUp4(n int) int { return (n + 3) &^ 3 }

// roundDown4 rounds n down to the nearest multiple of 4.
func roundDown4(n int) int { return n &^ 3 }

// ExtractPayload parses raw ELF bytes, keeps only allocated non-zero-address
// sections, categorizes them, and rounds their lengths per §4.1/§6.
func ExtractPayload(data []byte) (*Payload, error) {
	f, err := elf.NewFile(byteReaderAt(data))
	if err != nil {
		return nil, ziskerr.RomBuildf("invalid ELF: %v", err)
	}
	defer f.Close()

	payload := &Payload{EntryPoint: f.Entry}

	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Addr == 0 {
			continue
		}

		var bytes []byte
		switch sec.Type {
		case elf.SHT_NOBITS:
			bytes = make([]byte, roundUp4(int(sec.Size)))
		case elf.SHT_PROGBITS:
			raw, err := sec.Data()
			if err != nil {
				return nil, ziskerr.RomBuildf("reading section %s: %v", sec.Name, err)
			}
			bytes = raw[:roundDown4(len(raw))]
		default:
			continue
		}
		if len(bytes) == 0 {
			continue
		}

		ds := DataSection{Addr: sec.Addr, Data: bytes}
		isExec := sec.Flags&elf.SHF_EXECINSTR != 0
		isWrite := sec.Flags&elf.SHF_WRITE != 0
		inRAM := sec.Addr >= RamAddr && sec.Addr+uint64(len(bytes)) <= RamAddr+RamSize

		switch {
		case isExec:
			payload.Exec = append(payload.Exec, ds)
		case isWrite && inRAM:
			payload.RW = append(payload.RW, ds)
		case isWrite:
			return nil, ziskerr.RomBuildf(
				"writable section %s at %#x lies outside RAM window [%#x,%#x); check linker script",
				sec.Name, sec.Addr, RamAddr, RamAddr+RamSize)
		default:
			payload.RO = append(payload.RO, ds)
		}
	}

	payload.RO = MergeAdjacent(payload.RO)
	return payload, nil
}

// MergeAdjacent sorts sections by address and coalesces adjacent runs where
// prev.Addr + len(prev.Data) == next.Addr, per the ROM categorization
// "merge adjacency" testable property (§8).
func MergeAdjacent(sections []DataSection) []DataSection {
	if len(sections) == 0 {
		return nil
	}
	sorted := make([]DataSection, len(sections))
	copy(sorted, sections)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })

	out := []DataSection{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if last.Addr+uint64(len(last.Data)) == s.Addr {
			last.Data = append(append([]byte{}, last.Data...), s.Data...)
			continue
		}
		out = append(out, s)
	}
	return out
}

// byteReaderAt adapts a byte slice to io.ReaderAt for debug/elf.NewFile.
type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, fmt.Errorf("rom: ReadAt out of range offset %d", off)
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, fmt.Errorf("rom: short read at offset %d", off)
	}
	return n, nil
}
