package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/timefmt"
)

type formStep int

const (
	hoursStep formStep = iota
	datesStep
	commentStep
	doneStep
)

// FormInput seeds the worklog form. Fields already known (from flags) skip
// their step.
type FormInput struct {
	IssueKey   string
	IssueTitle string
	Presets    []float64
	LastHours  float64
	Hours      float64
	Dates      []time.Time
	Comment    string
	HasComment bool
	Comments   []string
	Today      time.Time
	Locale     string
}

type FormResult struct {
	Cancelled bool
	Hours     float64
	Dates     []time.Time
	Comment   string
}

type Form struct {
	step    formStep
	input   FormInput
	cursor  int
	dates   datePicker
	comment textinput.Model
	result  *FormResult
}

func NewForm(in FormInput) *Form {
	if in.Today.IsZero() {
		in.Today = time.Now()
	}

	ti := textinput.New()
	ti.Placeholder = "What did you work on? (optional)"
	ti.CharLimit = 500
	ti.Width = 60
	ti.ShowSuggestions = len(in.Comments) > 0
	ti.SetSuggestions(in.Comments)
	if in.HasComment {
		ti.SetValue(in.Comment)
	}

	f := &Form{
		input:   in,
		dates:   newDatePicker(in.Today, in.Dates, in.Locale),
		comment: ti,
	}

	f.cursor = presetIndex(in.Presets, in.LastHours)
	if in.Hours > 0 {
		if i := slices.Index(in.Presets, in.Hours); i >= 0 {
			f.cursor = i
		}
	}

	f.step = f.nextStep(-1)
	return f
}

func presetIndex(presets []float64, hours float64) int {
	if i := slices.Index(presets, hours); i >= 0 {
		return i
	}
	return 0
}

func (f *Form) needs(s formStep) bool {
	switch s {
	case hoursStep:
		return f.input.Hours <= 0
	case datesStep:
		return len(f.input.Dates) == 0
	case commentStep:
		return !f.input.HasComment
	}
	return false
}

// nextStep returns the first step after from that still needs input.
func (f *Form) nextStep(from formStep) formStep {
	for s := from + 1; s < doneStep; s++ {
		if f.needs(s) {
			return s
		}
	}
	return doneStep
}

func (f *Form) prevStep(from formStep) formStep {
	for s := from - 1; s >= hoursStep; s-- {
		if f.needs(s) {
			return s
		}
	}
	return from
}

func (f *Form) Init() tea.Cmd {
	if f.step == doneStep {
		f.finish()
		return tea.Quit
	}
	if f.step == commentStep {
		return tea.Batch(f.comment.Focus(), textinput.Blink)
	}
	return textinput.Blink
}

func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+c":
			f.result = &FormResult{Cancelled: true}
			return f, tea.Quit
		case "esc":
			f.step = f.prevStep(f.step)
			if f.step != commentStep {
				f.comment.Blur()
			}
			return f, nil
		}
	}

	switch f.step {
	case hoursStep:
		return f.updateHours(msg)
	case datesStep:
		return f.updateDates(msg)
	case commentStep:
		return f.updateComment(msg)
	}
	return f, nil
}

func (f *Form) advance() (tea.Model, tea.Cmd) {
	f.step = f.nextStep(f.step)
	if f.step == commentStep {
		return f, f.comment.Focus()
	}
	if f.step == doneStep {
		f.finish()
		return f, tea.Quit
	}
	return f, nil
}

func (f *Form) updateHours(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}
	switch keyMsg.String() {
	case "left", "h", "up", "k":
		if f.cursor > 0 {
			f.cursor--
		}
	case "right", "l", "down", "j":
		if f.cursor < len(f.input.Presets)-1 {
			f.cursor++
		}
	case "enter":
		if len(f.input.Presets) > 0 {
			return f.advance()
		}
	}
	return f, nil
}

func (f *Form) updateDates(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		return f.advance()
	}
	f.dates = f.dates.Update(msg)
	return f, nil
}

func (f *Form) updateComment(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		return f.advance()
	}
	var cmd tea.Cmd
	f.comment, cmd = f.comment.Update(msg)
	return f, cmd
}

func (f *Form) hours() float64 {
	if f.input.Hours > 0 {
		return f.input.Hours
	}
	if len(f.input.Presets) == 0 {
		return 0
	}
	return f.input.Presets[f.cursor]
}

func (f *Form) finish() {
	dates := f.input.Dates
	if len(dates) == 0 {
		dates = f.dates.Dates()
	}
	comment := f.input.Comment
	if !f.input.HasComment {
		comment = strings.TrimSpace(f.comment.Value())
	}
	f.result = &FormResult{Hours: f.hours(), Dates: dates, Comment: comment}
}

func (f *Form) Result() *FormResult {
	return f.result
}

func (f *Form) View() string {
	if f.step == doneStep {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Log work: " + f.input.IssueKey))
	sb.WriteString("\n")
	if f.input.IssueTitle != "" {
		sb.WriteString(subtitleStyle.Render(f.input.IssueTitle))
		sb.WriteString("\n")
	}

	switch f.step {
	case hoursStep:
		sb.WriteString(f.hoursView())
		sb.WriteString(helpStyle.Render("←/→: choose • Enter: next • Ctrl+C: cancel"))
	case datesStep:
		sb.WriteString(fmt.Sprintf("Time: %s\n\n", timefmt.FormatDuration(f.hours())))
		sb.WriteString(f.dates.View())
		sb.WriteString(helpStyle.Render("arrows: move • [/]: month • m: multi • Space: toggle • Enter: next • Esc: back"))
	case commentStep:
		sb.WriteString(fmt.Sprintf("Time: %s on %s\n\n", timefmt.FormatDuration(f.hours()), f.datesSummary()))
		sb.WriteString(f.comment.View())
		if len(f.input.Comments) > 0 {
			sb.WriteString("\n\n" + dimStyle.Render("Recent comments:"))
			for _, c := range f.input.Comments {
				sb.WriteString("\n" + dimStyle.Render("  "+c))
			}
		}
		sb.WriteString(helpStyle.Render("Tab: accept suggestion • Enter: submit • Esc: back"))
	}
	return boxStyle.Render(sb.String())
}

func (f *Form) hoursView() string {
	var cells []string
	for i, h := range f.input.Presets {
		text := " " + timefmt.FormatDuration(h) + " "
		switch {
		case i == f.cursor:
			text = cursorStyle.Render(text)
		case h == f.input.LastHours:
			text = selectedStyle.Render(text)
		}
		cells = append(cells, text)
	}

	var rows []string
	for chunk := range slices.Chunk(cells, 8) {
		rows = append(rows, strings.Join(chunk, " "))
	}
	out := strings.Join(rows, "\n") + "\n"
	if f.input.LastHours > 0 {
		out += dimStyle.Render("last: "+timefmt.FormatDuration(f.input.LastHours)) + "\n"
	}
	return out
}

func (f *Form) datesSummary() string {
	dates := f.input.Dates
	if len(dates) == 0 {
		dates = f.dates.Dates()
	}
	if len(dates) == 1 {
		return calendar.FormatLong(dates[0], f.input.Locale)
	}
	return fmt.Sprintf("%d days (%s … %s)", len(dates), calendar.FormatAPI(dates[0]), calendar.FormatAPI(dates[len(dates)-1]))
}

// RunForm asks for whatever in does not already carry.
func RunForm(in FormInput) (*FormResult, error) {
	form := NewForm(in)
	if form.step == doneStep {
		form.finish()
		return form.result, nil
	}

	if _, err := tea.NewProgram(form).Run(); err != nil {
		return nil, fmt.Errorf("running form: %w", err)
	}
	if form.result == nil {
		return &FormResult{Cancelled: true}, nil
	}
	return form.result, nil
}
