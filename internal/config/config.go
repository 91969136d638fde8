// Package config loads orchestrator/coordinator/worker options from a YAML
// file, with CLI flags layered on top — the same file-then-flags layering
// the teacher's cobra root command implies for its own flags (verbose,
// quiet, num), generalized here to an explicit file since a prover has far
// more knobs than galago's three.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every option the orchestrator, coordinator and worker need.
// Zero values are valid defaults; Load never requires a file to exist.
type Config struct {
	// Emulator / orchestrator
	ChunkSize uint64 `yaml:"chunk_size"`
	MaxSteps  uint64 `yaml:"max_steps"`
	RomCacheDir string `yaml:"rom_cache_dir"`
	AsmBasePort int    `yaml:"asm_base_port"`

	// Coordinator
	ListenAddr       string `yaml:"listen_addr"`
	MaxConnections   int    `yaml:"max_connections"`
	HeartbeatSeconds int    `yaml:"heartbeat_seconds"`

	// Worker
	WorkerCapacity int    `yaml:"worker_capacity"`
	CoordinatorAddr string `yaml:"coordinator_addr"`

	Verbose bool `yaml:"-"`
	Quiet   bool `yaml:"-"`
}

// Default returns the built-in defaults used when no config file is
// present and no flags override them.
func Default() *Config {
	romCacheDir := ".zisk/rom-cache"
	if home, err := os.UserHomeDir(); err == nil {
		romCacheDir = filepath.Join(home, ".zisk", "cache")
	}
	return &Config{
		ChunkSize:        1 << 18,
		MaxSteps:         0,
		RomCacheDir:      romCacheDir,
		AsmBasePort:      23115,
		ListenAddr:       "127.0.0.1:23114",
		MaxConnections:   64,
		HeartbeatSeconds: 10,
		WorkerCapacity:   1,
	}
}

// Load reads path (if it exists) over Default()'s values. A missing file is
// not an error — the caller gets pure defaults, since every field already
// has a usable zero-ish value.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
