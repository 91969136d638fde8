package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/0xPolygonHermez/zisk-sub004/internal/rom"
)

// RomBlowup is the blowup factor folded into the ROM cache key alongside the
// ELF's own SHA-256, per §6's "$HOME/.zisk/cache/... a ROM-hash artifact
// keyed by (elf, blowup)". This build fixes one blowup factor; a
// multi-blowup deployment would key each cached Rom by its own value.
const RomBlowup = 1

// romCacheKey is SHA256(elf) + blowup, hex-encoded, matching §6's caching
// contract for the ROM artifact (distinct from the asm-binary cache keyed
// by SHA(elf)+suffix, which this module doesn't build since it never spawns
// the assembly microservices).
func romCacheKey(elf []byte, blowup int) string {
	h := sha256.Sum256(elf)
	return hex.EncodeToString(h[:]) + "-" + itoa(blowup)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// buildROM loads elf, building a fresh Rom unless a cached binary artifact
// already exists under cacheDir for this (elf, blowup) key (§4.8 phase 0
// step 1). cacheDir == "" disables caching entirely.
func buildROM(elf []byte, cacheDir string) (*rom.Rom, error) {
	if cacheDir == "" {
		return rom.BuildFromELF(elf)
	}

	key := romCacheKey(elf, RomBlowup)
	path := filepath.Join(cacheDir, key+".rom.bin")

	if data, err := os.ReadFile(path); err == nil {
		if r, err := rom.LoadFromBin(data); err == nil {
			return r, nil
		}
		// Corrupt or incompatible cache entry: fall through and rebuild.
	}

	r, err := rom.BuildFromELF(elf)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cacheDir, 0o755); err == nil {
		_ = os.WriteFile(path, r.SaveToBin(), 0o644)
	}
	return r, nil
}
