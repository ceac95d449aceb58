package tui

import (
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/worklogr/internal/calendar"
)

// datePicker is a month grid. In multi mode space toggles days; otherwise the
// day under the cursor is the selection.
type datePicker struct {
	cursor   time.Time
	today    time.Time
	locale   string
	multi    bool
	selected map[string]time.Time
}

func newDatePicker(today time.Time, initial []time.Time, locale string) datePicker {
	p := datePicker{
		cursor:   calendar.StartOfDay(today),
		today:    calendar.StartOfDay(today),
		locale:   locale,
		selected: make(map[string]time.Time),
	}
	if len(initial) > 0 {
		p.cursor = calendar.StartOfDay(initial[len(initial)-1])
	}
	if len(initial) > 1 {
		p.multi = true
		for _, d := range initial {
			p.toggle(calendar.StartOfDay(d))
		}
	}
	return p
}

func (p *datePicker) toggle(d time.Time) {
	key := calendar.FormatAPI(d)
	if _, ok := p.selected[key]; ok {
		delete(p.selected, key)
		return
	}
	p.selected[key] = d
}

func (p datePicker) isSelected(d time.Time) bool {
	_, ok := p.selected[calendar.FormatAPI(d)]
	return ok
}

// Dates returns the chosen days in ascending order.
func (p datePicker) Dates() []time.Time {
	if !p.multi || len(p.selected) == 0 {
		return []time.Time{p.cursor}
	}
	days := make([]time.Time, 0, len(p.selected))
	for _, d := range p.selected {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	return days
}

func (p datePicker) Update(msg tea.Msg) datePicker {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p
	}
	switch keyMsg.String() {
	case "left", "h":
		p.cursor = p.cursor.AddDate(0, 0, -1)
	case "right", "l":
		p.cursor = p.cursor.AddDate(0, 0, 1)
	case "up", "k":
		p.cursor = p.cursor.AddDate(0, 0, -7)
	case "down", "j":
		p.cursor = p.cursor.AddDate(0, 0, 7)
	case "[":
		p.cursor = shiftMonth(p.cursor, -1)
	case "]":
		p.cursor = shiftMonth(p.cursor, 1)
	case "t":
		p.cursor = p.today
	case "m":
		p.multi = !p.multi
		if p.multi && len(p.selected) == 0 {
			p.toggle(p.cursor)
		}
	case " ":
		if p.multi {
			p.toggle(p.cursor)
		}
	}
	return p
}

// shiftMonth moves by whole months, clamping the day to the target month.
func shiftMonth(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	_, last := calendar.MonthRange(first.Year(), first.Month(), t.Location())
	return first.AddDate(0, 0, min(t.Day(), last.Day())-1)
}

func (p datePicker) View() string {
	var sb strings.Builder

	sb.WriteString(highlightStyle.Render(calendar.MonthName(p.cursor.Month(), p.locale) + " " + p.cursor.Format("2006")))
	sb.WriteString("\n")

	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		sb.WriteString(dimStyle.Render(padCell(calendar.WeekdayShort(wd, p.locale))))
	}
	sb.WriteString("\n")

	cells := calendar.MonthGrid(p.cursor.Year(), p.cursor.Month(), p.cursor.Location())
	for i, cell := range cells {
		if cell == nil {
			sb.WriteString(padCell(""))
		} else {
			sb.WriteString(p.renderDay(*cell))
		}
		if i%7 == 6 {
			sb.WriteString("\n")
		}
	}
	if len(cells)%7 != 0 {
		sb.WriteString("\n")
	}

	mode := "single"
	if p.multi {
		mode = "multi"
	}
	sb.WriteString(dimStyle.Render("mode: " + mode))
	return sb.String()
}

func (p datePicker) renderDay(d time.Time) string {
	text := padCell(d.Format("2"))
	switch {
	case d.Equal(p.cursor):
		return cursorStyle.Render(text)
	case p.multi && p.isSelected(d):
		return selectedStyle.Render(text)
	case d.Equal(p.today):
		return highlightStyle.Render(text)
	case !calendar.IsWorkday(d):
		return dimStyle.Render(text)
	}
	return text
}

func padCell(s string) string {
	n := len([]rune(s))
	if n >= 3 {
		return s + " "
	}
	return strings.Repeat(" ", 3-n) + s + " "
}
