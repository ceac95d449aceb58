package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type progressMsg struct {
	done, total int
}

type progressDoneMsg struct {
	err error
}

type progressModel struct {
	spinner spinner.Model
	label   string
	done    int
	total   int
	err     error
	quit    bool
}

func newProgressModel(label string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return progressModel{spinner: s, label: label}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.done, m.total = msg.done, msg.total
		return m, nil
	case progressDoneMsg:
		m.err = msg.err
		m.quit = true
		return m, tea.Quit
	case tea.KeyMsg:
		// In-flight requests still finish; only the display goes away.
		if msg.String() == "ctrl+c" {
			m.quit = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.quit {
		return ""
	}
	if m.total == 0 {
		return m.spinner.View() + " " + m.label + "..."
	}
	return fmt.Sprintf("%s %s: %d/%d", m.spinner.View(), m.label, m.done, m.total)
}

// RunProgress shows a spinner while run executes. run reports its progress
// through update.
func RunProgress(label string, run func(update func(done, total int)) error) error {
	return runProgress(label, run)
}

func runProgress(label string, run func(update func(done, total int)) error, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(newProgressModel(label), opts...)

	errc := make(chan error, 1)
	go func() {
		err := run(func(done, total int) {
			p.Send(progressMsg{done: done, total: total})
		})
		errc <- err
		p.Send(progressDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		// the submission keeps going without a display
		if runErr := <-errc; runErr != nil {
			return runErr
		}
		return fmt.Errorf("running progress display: %w", err)
	}
	return <-errc
}
