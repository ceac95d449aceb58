package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/report"
	"github.com/christopherklint97/worklogr/internal/timefmt"
)

type reportLabels struct {
	title, worked, expected, workdays, workedDays, completion, hoursUnit, noEntries string
}

var labels = map[string]reportLabels{
	calendar.LocaleRU: {
		title:      "Отчёт по времени",
		worked:     "Отработано",
		expected:   "Норма",
		workdays:   "Рабочих дней",
		workedDays: "Дней с логами",
		completion: "Выполнение нормы",
		hoursUnit:  "ч",
		noEntries:  "Нет записей времени",
	},
	calendar.LocaleEN: {
		title:      "Time report",
		worked:     "Worked",
		expected:   "Expected",
		workdays:   "Workdays",
		workedDays: "Days with logs",
		completion: "Completion",
		hoursUnit:  "h",
		noEntries:  "No time logged",
	},
}

func labelsFor(locale string) reportLabels {
	if l, ok := labels[strings.ToLower(locale)]; ok {
		return l
	}
	return labels[calendar.LocaleRU]
}

const (
	summaryBarWidth = 40
	dayBarWidth     = 16
)

// bar draws a horizontal gauge of value/max, filled in the gradient color.
func bar(value, max float64, width int) string {
	ratio := 0.0
	if max > 0 {
		ratio = math.Min(math.Max(value/max, 0), 1)
	}
	filled := int(math.Round(ratio * float64(width)))
	return colorStyle(timefmt.ColorForFraction(value, max)).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

// RenderReport renders a report for the terminal.
func RenderReport(r *report.Report, locale string) string {
	l := labelsFor(locale)
	var sb strings.Builder

	period := fmt.Sprintf("%s %d", calendar.MonthName(r.Start.Month(), locale), r.Start.Year())
	if r.Start.Month() != r.End.Month() || r.Start.Year() != r.End.Year() || r.Start.Day() != 1 {
		period = calendar.FormatAPI(r.Start) + " – " + calendar.FormatAPI(r.End)
	}
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", l.title, period)))
	sb.WriteString("\n")

	completion := report.Round2(r.CompletionPercent)
	summary := fmt.Sprintf("%s: %s %s    %s: %s %s\n%s: %d    %s: %d\n%s: %s%%\n%s",
		l.worked, timefmt.FormatHours(r.TotalHours), l.hoursUnit,
		l.expected, trimZeros(r.ExpectedHours), l.hoursUnit,
		l.workdays, r.WorkdaysCount,
		l.workedDays, r.WorkedDaysCount,
		l.completion, colorStyle(r.Color()).Render(trimZeros(completion)),
		bar(r.TotalHours, r.ExpectedHours, summaryBarWidth),
	)
	sb.WriteString(boxStyle.Render(summary))
	sb.WriteString("\n")

	for _, day := range r.Days {
		sb.WriteString(renderDay(day, r.HoursPerDay, l))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderDay(day report.DayBucket, hoursPerDay float64, l reportLabels) string {
	var sb strings.Builder

	label := highlightStyle.Render(day.Label)
	hours := timefmt.FormatHours(day.Hours) + " " + l.hoursUnit
	if day.IsEmpty {
		label = dimStyle.Render(day.Label)
		hours = dimStyle.Render(hours)
	} else {
		hours = colorStyle(day.Color).Render(hours)
	}

	fmt.Fprintf(&sb, "%s  %s  %s", label, hours, bar(day.Hours, hoursPerDay, dayBarWidth))
	if day.Variance != "" {
		sb.WriteString("  " + dimStyle.Render(day.Variance))
	}
	sb.WriteString("\n")

	if day.IsEmpty {
		sb.WriteString(dimStyle.Italic(true).Render(l.noEntries))
		return dayStyle.Render(sb.String())
	}

	for _, e := range day.Entries {
		fmt.Fprintf(&sb, "%s: %s\n", selectedStyle.Render(e.IssueKey), e.TimeSpent)
		if e.Summary != "" {
			sb.WriteString("  " + dimStyle.Render(e.Summary) + "\n")
		}
		if e.Comment != "" {
			sb.WriteString("  " + dimStyle.Italic(true).Render(e.Comment) + "\n")
		}
	}
	return dayStyle.Render(strings.TrimSuffix(sb.String(), "\n"))
}

func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
