package progress

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/0xPolygonHermez/zisk-sub004/internal/ui/colorize"
)

// plainReporter is the teacher's outputWriter pattern (cmd/galago/main.go):
// a buffered channel writer flushed on a ticker, so a slow consumer (a
// piped `less`, a log aggregator) never blocks the orchestrator's hot path.
type plainReporter struct {
	ch     chan string
	done   chan struct{}
	writer *bufio.Writer
	quiet  bool
}

func newPlainReporter(quiet bool) *plainReporter {
	w := &plainReporter{
		ch:     make(chan string, 2048),
		done:   make(chan struct{}),
		writer: bufio.NewWriterSize(os.Stdout, 64*1024),
		quiet:  quiet,
	}
	go w.run()
	return w
}

func (w *plainReporter) run() {
	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()
	for {
		select {
		case line, ok := <-w.ch:
			if !ok {
				w.writer.Flush()
				close(w.done)
				return
			}
			w.writer.WriteString(line)
			w.writer.WriteByte('\n')
		case <-ticker.C:
			w.writer.Flush()
		}
	}
}

func (w *plainReporter) write(line string) {
	select {
	case w.ch <- line:
	default:
	}
}

func (w *plainReporter) Phase(name string) {
	if w.quiet {
		return
	}
	w.write(colorize.Header("== "+name+" =="))
}

func (w *plainReporter) Chunk(done, total int) {
	if w.quiet {
		return
	}
	if total > 0 {
		w.write(fmt.Sprintf("  chunk %s/%s", colorize.Stat(fmt.Sprint(done)), colorize.Stat(fmt.Sprint(total))))
	} else {
		w.write(fmt.Sprintf("  chunk %s", colorize.Stat(fmt.Sprint(done))))
	}
}

func (w *plainReporter) Instance(groupID, airID int) {
	if w.quiet {
		return
	}
	w.write(fmt.Sprintf("  instance built: group=%s air=%s", colorize.Stat(fmt.Sprint(groupID)), colorize.Stat(fmt.Sprint(airID))))
}

func (w *plainReporter) Done() {
	w.write(colorize.Good("done"))
}

func (w *plainReporter) Fail(err error) {
	w.write(colorize.Error("failed: " + err.Error()))
}

func (w *plainReporter) Close() {
	close(w.ch)
	<-w.done
}
