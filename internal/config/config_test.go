package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xPolygonHermez/zisk-sub004/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != config.Default().ChunkSize {
		t.Fatalf("want default chunk size, got %d", cfg.ChunkSize)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zisk.yaml")
	if err := os.WriteFile(path, []byte("chunk_size: 4096\nlisten_addr: \"0.0.0.0:9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSize != 4096 {
		t.Fatalf("ChunkSize = %d, want 4096", cfg.ChunkSize)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("ListenAddr = %q, want override", cfg.ListenAddr)
	}
	if cfg.MaxConnections != config.Default().MaxConnections {
		t.Fatalf("unset fields should keep defaults, got MaxConnections=%d", cfg.MaxConnections)
	}
}
