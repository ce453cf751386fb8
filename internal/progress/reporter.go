// Package progress renders the "rotating indicator -> bar" progression
// spec.md §4.3/§4.4 call for: a spinner over a raw node count while the
// sync/rmtree engine's record phase is discovering work, then a
// current/max gradient bar once the apply phase knows how much there is
// to do.
//
// Grounded in
// _examples/joshyorko-rcc/pretty/tea_dashboard.go's spinner.Model +
// bubbles/progress.Model + lipgloss styling, simplified to inline
// (non-alt-screen) rendering suitable for a backup tool running
// unattended or piped to a log file.
package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	teaprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rsyncbackup/internal/atomiccounter"
)

// Phase selects which half of the two-phase sync/rmtree passes the
// reporter is currently rendering.
type Phase int32

const (
	PhaseDiscover Phase = iota
	PhaseApply
	PhaseDone
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Reporter samples Discover during the record/build phase and Applied
// during the apply/remove phase, rendering a spinner over a raw count for
// the former and a current/max bar for the latter. Max is captured once
// at the PhaseDiscover -> PhaseApply transition, matching "between phases
// num_nodes is read and reset" from spec.md §4.3.
type Reporter struct {
	Label    string
	Discover *atomiccounter.Counter
	Applied  *atomiccounter.Counter
	Running  func() bool

	phase int32
	max   int64
	total int64
}

// NewReporter constructs a Reporter starting in PhaseDiscover.
func NewReporter(label string, discover, applied *atomiccounter.Counter, running func() bool) *Reporter {
	return &Reporter{Label: label, Discover: discover, Applied: applied, Running: running, phase: int32(PhaseDiscover)}
}

// BeginApply reads and resets the discover count, captures it as the
// bar's fixed denominator, and transitions rendering into PhaseApply.
// Resetting both counters here is what lets one Reporter serve several
// back-to-back syncs (seed overlay, then the real sync) within a run.
func (r *Reporter) BeginApply() {
	r.max = r.Discover.GetAndSet(0)
	atomic.AddInt64(&r.total, r.max)
	if r.max == 0 {
		r.max = 1
	}
	if r.Applied != nil {
		r.Applied.Set(0)
	}
	atomic.StoreInt32(&r.phase, int32(PhaseApply))
}

// SetPhase sets the phase directly; used for PhaseDone and for resetting
// back to PhaseDiscover between successive sync calls within one run.
func (r *Reporter) SetPhase(p Phase) {
	atomic.StoreInt32(&r.phase, int32(p))
}

// Total returns the cumulative node count across every apply phase this
// reporter has rendered, for the driver's end-of-run summary.
func (r *Reporter) Total() int64 {
	return atomic.LoadInt64(&r.total)
}

func (r *Reporter) currentPhase() Phase { return Phase(atomic.LoadInt32(&r.phase)) }

// Run blocks until Running reports false or PhaseDone is set, rendering
// inline (no alt-screen, so output interleaves sanely with the logger).
func (r *Reporter) Run() error {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	bar := teaprogress.New(
		teaprogress.WithDefaultGradient(),
		teaprogress.WithWidth(40),
	)

	model := &reporterModel{reporter: r, spinner: s, bar: bar}
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type reporterModel struct {
	reporter *Reporter
	spinner  spinner.Model
	bar      teaprogress.Model
	done     bool
}

func (m *reporterModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *reporterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.reporter.currentPhase() == PhaseDone || (m.reporter.Running != nil && !m.reporter.Running()) {
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *reporterModel) View() string {
	if m.done {
		return ""
	}
	switch m.reporter.currentPhase() {
	case PhaseApply:
		current := float64(m.reporter.Applied.Get())
		max := float64(m.reporter.max)
		ratio := current / max
		if ratio > 1 {
			ratio = 1
		}
		return fmt.Sprintf("%s %s  %s\n",
			barStyle.Render(m.bar.ViewAs(ratio)),
			labelStyle.Render(fmt.Sprintf("%d/%d", int64(current), int64(max))),
			m.reporter.Label,
		)
	default:
		return fmt.Sprintf("%s %s %s\n",
			m.spinner.View(),
			labelStyle.Render(fmt.Sprintf("discovering: %d nodes", m.reporter.Discover.Get())),
			m.reporter.Label,
		)
	}
}
