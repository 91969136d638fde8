// Command zisk is the prover CLI: build/inspect a ROM, run a full prove
// job locally, or start a distributed coordinator/worker pair (§2 H/I).
//
// Structurally this follows the teacher's cmd/galago/main.go: one cobra
// root command plus subcommands, a package-level flag set, and Execute()
// at the end of main with a single os.Exit(1) on error.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/0xPolygonHermez/zisk-sub004/internal/config"
	"github.com/0xPolygonHermez/zisk-sub004/internal/coordinator"
	glog "github.com/0xPolygonHermez/zisk-sub004/internal/log"
	"github.com/0xPolygonHermez/zisk-sub004/internal/orchestrator"
	"github.com/0xPolygonHermez/zisk-sub004/internal/progress"
	"github.com/0xPolygonHermez/zisk-sub004/internal/rom"
)

var (
	verbose    bool
	quiet      bool
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zisk",
		Short: "ZisK zkVM prover: emulate a RISC-V ELF and produce a STARK proof",
		Long: `zisk emulates a RISC-V ELF program to a terminal state and produces a
STARK proof attesting that the emulator honestly executed it.

Examples:
  zisk prove program.elf                  # run a local prove job
  zisk prove program.elf -q               # quiet mode, no progress UI
  zisk rom info program.elf               # show ROM layout
  zisk rom dump program.elf --format pil  # dump the decoded ROM
  zisk coordinator --listen :23114        # start a distributed coordinator
  zisk worker --addr 127.0.0.1:23114      # join as a worker prover`,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet mode (no progress UI)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	// "info" at the root mirrors the teacher's `galago info <binary.so>`
	// top-level shortcut; `rom info` is the same command nested under `rom`.
	rootCmd.AddCommand(newProveCmd(), newRomCmd(), newRomInfoCmd(), newCoordinatorCmd(), newWorkerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose
	cfg.Quiet = quiet
	return cfg, nil
}

func newProveCmd() *cobra.Command {
	var chunkSize, maxSteps uint64
	var romCacheDir string
	var outPath string

	cmd := &cobra.Command{
		Use:     "prove <binary.elf>",
		Aliases: []string{"run"},
		Short:   "Emulate an ELF binary and produce a STARK proof",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			glog.Init(verbose)

			elf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading elf: %w", err)
			}

			if chunkSize == 0 {
				chunkSize = cfg.ChunkSize
			}
			if romCacheDir == "" {
				romCacheDir = cfg.RomCacheDir
			}

			reporter := progress.New(isInteractiveStdout() && !quiet, quiet)
			proof, err := orchestrator.Execute(orchestrator.Options{
				ELF:         elf,
				ChunkSize:   chunkSize,
				MaxSteps:    maxSteps,
				RomCacheDir: romCacheDir,
				Reporter:    reporter,
			})
			if err != nil {
				return fmt.Errorf("prove: %w", err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, proof.Bytes, 0o644); err != nil {
					return fmt.Errorf("writing proof: %w", err)
				}
			}
			if !quiet {
				fmt.Printf("proof: %s (%d bytes)\n", hex.EncodeToString(proof.Bytes), len(proof.Bytes))
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&chunkSize, "chunk-size", 0, "emulator chunk size in steps (power of two); 0 uses config default")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "fatal step overflow ceiling; 0 means unbounded")
	cmd.Flags().StringVar(&romCacheDir, "rom-cache", "", "ROM disk cache directory; empty uses config default")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the raw proof bytes to this path")
	return cmd
}

func newRomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rom",
		Short: "Build and inspect the ROM derived from an ELF binary",
	}
	cmd.AddCommand(newRomInfoCmd(), newRomDumpCmd())
	return cmd
}

func newRomInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <binary.elf>",
		Short: "Show ROM section/instruction counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading elf: %w", err)
			}
			r, err := rom.BuildFromELF(elf)
			if err != nil {
				return fmt.Errorf("building rom: %w", err)
			}
			fmt.Printf("entry point:          0x%x\n", r.EntryPoint)
			fmt.Printf("entry instructions:   %d\n", len(r.RomEntryInstructions))
			fmt.Printf("main instructions:    %d\n", len(r.RomInstructions))
			fmt.Printf("non-aligned:          %d\n", len(r.RomNAInstructions))
			fmt.Printf("exec sections:        %d\n", len(r.Exec))
			fmt.Printf("rw (RAM) sections:    %d\n", len(r.RWData))
			fmt.Printf("read-only sections:   %d\n", len(r.ROData))
			return nil
		},
	}
}

func newRomDumpCmd() *cobra.Command {
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "dump <binary.elf>",
		Short: "Dump the decoded ROM as json, pil, or bin (§6 ROM serialization)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading elf: %w", err)
			}
			r, err := rom.BuildFromELF(elf)
			if err != nil {
				return fmt.Errorf("building rom: %w", err)
			}

			var data []byte
			switch format {
			case "json":
				data, err = r.SaveToJSON()
				if err != nil {
					return fmt.Errorf("serializing json: %w", err)
				}
			case "pil":
				data = r.SaveToPIL()
			case "bin":
				data = r.SaveToBin()
			default:
				return fmt.Errorf("unknown format %q (want json, pil, or bin)", format)
			}

			if outPath == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(outPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, pil, or bin")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this path instead of stdout")
	return cmd
}

func newCoordinatorCmd() *cobra.Command {
	var listenAddr, adminAddr string
	var maxConnections int

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Start the distributed coordinator (§4.9)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			glog.Init(verbose)
			logger := glog.L
			if logger == nil {
				logger = glog.NewNop()
			}

			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if maxConnections > 0 {
				cfg.MaxConnections = maxConnections
			}

			c := coordinator.New(cfg, logger)

			ctx, cancel := signalContext()
			defer cancel()

			if adminAddr != "" {
				srv := &http.Server{Addr: adminAddr, Handler: c.AdminMux()}
				go srv.ListenAndServe()
				defer srv.Close()
			}

			logger.Info("coordinator listening", zap.String("addr", cfg.ListenAddr))
			return c.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "TCP address to accept worker connections on")
	cmd.Flags().StringVar(&adminAddr, "admin", "", "loopback address to serve admin endpoints on; empty disables it")
	cmd.Flags().IntVar(&maxConnections, "max-connections", 0, "cap on active worker connections; 0 uses config default")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var id, addr string
	var capacity int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Join a coordinator as a worker prover (§4.9)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			glog.Init(verbose)
			logger := glog.L
			if logger == nil {
				logger = glog.NewNop()
			}

			if addr == "" {
				addr = cfg.CoordinatorAddr
			}
			if capacity == 0 {
				capacity = cfg.WorkerCapacity
			}
			if id == "" {
				id = defaultWorkerID()
			}

			w := coordinator.NewWorker(id, addr, localProveHandler(cfg), logger)

			ctx, cancel := signalContext()
			defer cancel()
			return w.Run(ctx, capacity)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "worker id; defaults to hostname:pid")
	cmd.Flags().StringVar(&addr, "addr", "", "coordinator address to dial")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "worker capacity advertised at registration")
	return cmd
}

// localProveHandler adapts orchestrator.Execute to coordinator.TaskHandler:
// a task's Inputs field is treated as an ELF image, matching the
// single-process demo wiring this module ships (a full deployment would
// instead resume the orchestrator at whichever phase the challenges imply).
func localProveHandler(cfg *config.Config) coordinator.TaskHandler {
	return func(ctx context.Context, task coordinator.ExecuteTaskPayload) ([]byte, error) {
		proof, err := orchestrator.Execute(orchestrator.Options{
			ELF:         task.Inputs,
			ChunkSize:   cfg.ChunkSize,
			MaxSteps:    cfg.MaxSteps,
			RomCacheDir: cfg.RomCacheDir,
		})
		if err != nil {
			return nil, err
		}
		return proof.Bytes, nil
	}
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop
}

func isInteractiveStdout() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
