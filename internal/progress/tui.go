package progress

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

type phaseMsg string

type chunkMsg struct{ done, total int }

type instanceMsg struct{ groupID, airID int }

type doneMsg struct{}

type failMsg struct{ err error }

// model is the bubbletea program behind tuiReporter. It tracks the current
// phase, the chunk counter the emulator's lazy phase-1 pass reports, and how
// many secondary-SM instances have finished computing their witness.
type model struct {
	phase        string
	chunksDone   int
	chunksTotal  int
	instances    int
	spinner      spinner.Model
	bar          progress.Model
	finished     bool
	failed       bool
	err          error
}

func newModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	return model{
		phase:   "starting",
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil
	case phaseMsg:
		m.phase = string(msg)
		return m, nil
	case chunkMsg:
		m.chunksDone, m.chunksTotal = msg.done, msg.total
		return m, nil
	case instanceMsg:
		m.instances++
		return m, nil
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case failMsg:
		m.finished = true
		m.failed = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m model) View() string {
	if m.failed {
		return errorStyle.Render("zisk: "+m.phase+" failed: "+m.err.Error()) + "\n"
	}
	if m.finished {
		return okStyle.Render("zisk: done") + "\n"
	}

	header := headerStyle.Render(m.phase)
	line := fmt.Sprintf("%s %s", m.spinner.View(), header)

	if m.chunksTotal > 0 {
		pct := float64(m.chunksDone) / float64(m.chunksTotal)
		line += "\n" + m.bar.ViewAs(pct) + dimStyle.Render(fmt.Sprintf("  %d/%d chunks", m.chunksDone, m.chunksTotal))
	} else if m.chunksDone > 0 {
		line += "\n" + dimStyle.Render(fmt.Sprintf("  %d chunks", m.chunksDone))
	}
	if m.instances > 0 {
		line += "\n" + dimStyle.Render(fmt.Sprintf("  %d instances built", m.instances))
	}
	return line + "\n"
}

// tuiReporter drives a bubbletea program in the background; Reporter calls
// become tea.Program.Send so the emulator/orchestrator never blocks on the
// render loop.
type tuiReporter struct {
	program *tea.Program
	stopped chan struct{}
}

func newTUIReporter() *tuiReporter {
	p := tea.NewProgram(newModel())
	r := &tuiReporter{program: p, stopped: make(chan struct{})}
	go func() {
		_, _ = p.Run()
		close(r.stopped)
	}()
	return r
}

func (r *tuiReporter) Phase(name string)          { r.program.Send(phaseMsg(name)) }
func (r *tuiReporter) Chunk(done, total int)      { r.program.Send(chunkMsg{done, total}) }
func (r *tuiReporter) Instance(groupID, airID int) { r.program.Send(instanceMsg{groupID, airID}) }
func (r *tuiReporter) Done()                      { r.program.Send(doneMsg{}) }
func (r *tuiReporter) Fail(err error)              { r.program.Send(failMsg{err}) }

func (r *tuiReporter) Close() {
	<-r.stopped
}
