package progress

import (
	"errors"
	"testing"
	"time"
)

var _ Reporter = (*plainReporter)(nil)
var _ Reporter = (*tuiReporter)(nil)

// TestPlainReporterNeverBlocks checks that a burst of 10000 Chunk calls on
// a quiet reporter returns promptly. In quiet mode Chunk writes nothing, so
// the channel's discard-on-full path is not reached by this test.
func TestPlainReporterNeverBlocks(t *testing.T) {
	r := newPlainReporter(true) // quiet: Phase/Chunk/Instance are no-ops
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			r.Chunk(i, 10000)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("plainReporter.Chunk blocked under quiet mode")
	}
	r.Close()
}

// TestPlainReporterCloseDrains confirms Close flushes pending lines and
// returns once the background goroutine exits, mirroring outputWriter.Close
// in the teacher's cmd/galago/main.go.
func TestPlainReporterCloseDrains(t *testing.T) {
	r := newPlainReporter(false)
	r.Phase("emulate")
	r.Fail(errors.New("boom"))

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
