// Package progress reports orchestrator phase progress to the terminal.
//
// The teacher's cmd/galago/main.go declares bubbletea, bubbles and lipgloss
// as direct dependencies but never imports any of them — every trace line
// there goes through its own hand-rolled outputWriter (a buffered,
// ticker-flushed channel writer). This package is where those three
// declared-but-unused dependencies actually get exercised: an interactive
// run drives a small bubbletea program (phase name, a bubbles/progress bar
// over chunks processed, a bubbles/spinner while waiting on the backend),
// and a non-interactive run (piped stdout, --quiet) falls back to the
// teacher's own outputWriter shape, generalized from key-extraction event
// lines to phase/chunk/instance lines.
package progress

import "time"

// Reporter is how the orchestrator surfaces phase 0/1/2 progress without
// depending on whether the terminal is interactive.
type Reporter interface {
	// Phase announces the start of a named phase ("build-rom", "emulate",
	// "count", "plan", "instances", "compute-witness", "contributions",
	// "internal").
	Phase(name string)

	// Chunk reports that `done` of `total` chunks have been consumed by the
	// emulator's phase-1 pass. total == 0 means the count isn't known yet
	// (the emulator produces chunks lazily).
	Chunk(done, total int)

	// Instance reports that one secondary-SM instance finished computing
	// its witness.
	Instance(groupID, airID int)

	// Done marks the run as finished successfully.
	Done()

	// Fail marks the run as aborted by err.
	Fail(err error)

	// Close releases any resources (terminal, background goroutine).
	Close()
}

// New picks a TUI reporter for an interactive terminal or the plain
// buffered-writer fallback otherwise. quiet forces the plain fallback even
// when stdout is a terminal, matching the teacher's -q/--quiet flag.
func New(interactive, quiet bool) Reporter {
	if interactive && !quiet {
		return newTUIReporter()
	}
	return newPlainReporter(quiet)
}

const tickerInterval = 50 * time.Millisecond
