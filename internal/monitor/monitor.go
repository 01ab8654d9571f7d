// Package monitor implements an interactive Bubble Tea dashboard onto a
// running MAA instance: tile lifecycle, functional-unit state, and the
// scheduler's clock, stepped one scheduler pass at a time. Grounded on
// hejops-gone's cpu.Debug model/update/view pattern, generalized from a
// single fake-RAM page table to the MAA's tile/unit tables, and restyled
// with lipgloss the way that example renders its status panes.
package monitor

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arborsim/maa/internal/maa"
	"github.com/arborsim/maa/internal/sched"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	idleStyle   = lipgloss.NewStyle().Faint(true)
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dirtyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the monitor's Bubble Tea model, wrapping a controller and the
// scheduler that drives it.
type Model struct {
	ctrl     *maa.Controller
	sched    *sched.Scheduler
	numTiles int
	quit     bool
	err      error
}

// New returns a monitor model over ctrl, sized to display numTiles tiles.
func New(ctrl *maa.Controller, s *sched.Scheduler, numTiles int) Model {
	return Model{ctrl: ctrl, sched: s, numTiles: numTiles}
}

// Init starts the monitor with no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update advances the scheduler by one event per "step" key press, and
// quits on "q".
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case " ", "j", "n":
			m.step()
		case "u":
			m.ctrl.Unblock()
		}
	}

	return m, nil
}

func (m *Model) step() {
	m.sched.Step()
}

// View renders the tile table, the functional-unit table, and the
// scheduler's clock.
func (m Model) View() string {
	if m.quit {
		return ""
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("maasim monitor -- tick %d -- issued %d -- pending %d",
			m.sched.Now(), m.ctrl.NumIssued(), m.sched.Pending())),
		"",
		m.tileTable(),
		"",
		m.unitTable(),
		"",
		"space/j: step   u: unblock   q: quit",
	)
}

func (m Model) tileTable() string {
	var b strings.Builder

	fmt.Fprintln(&b, headerStyle.Render("tiles"))
	fmt.Fprintf(&b, "%-6s %-10s %-7s %-6s\n", "tile", "lifecycle", "dirty", "size")

	spd := m.ctrl.SPD()

	for i := 0; i < m.numTiles; i++ {
		id := maa.TileID(i)
		lc := spd.Lifecycle(id)
		dirty := spd.Dirty(id)

		line := fmt.Sprintf("%-6d %-10s %-7t %-6d", i, lc, dirty, spd.Size(id))
		if dirty {
			line = dirtyStyle.Render(line)
		} else if lc == maa.Service {
			line = busyStyle.Render(line)
		} else {
			line = idleStyle.Render(line)
		}

		fmt.Fprintln(&b, line)
	}

	return b.String()
}

func (m Model) unitTable() string {
	var b strings.Builder

	fmt.Fprintln(&b, headerStyle.Render("units"))
	fmt.Fprintf(&b, "%-12s %-4s %-10s\n", "class", "id", "state")

	for _, u := range m.ctrl.UnitSnapshots() {
		line := fmt.Sprintf("%-12s %-4d %-10s", u.Class, u.ID, u.State)
		if u.Idle {
			line = idleStyle.Render(line)
		} else {
			line = busyStyle.Render(line)
		}

		fmt.Fprintln(&b, line)
	}

	return b.String()
}

// Run starts the Bubble Tea program, blocking until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
