package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"gopkg.in/yaml.v3"

	"github.com/christopherklint97/worklogr/internal/report"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatICS  = "ics"
)

// ErrNothingToExport is returned for calendars without worklogs, which
// iCalendar cannot represent.
var ErrNothingToExport = errors.New("no worklogs to export")

const prodID = "-//worklogr//Jira worklog report//EN"

// Formats lists the machine-readable formats Write understands.
var Formats = []string{FormatJSON, FormatYAML, FormatICS}

func Write(w io.Writer, format string, r *report.Report) error {
	switch format {
	case FormatJSON:
		return JSON(w, r)
	case FormatYAML:
		return YAML(w, r)
	case FormatICS:
		return ICS(w, r, time.Now())
	}
	return fmt.Errorf("unknown report format %q", format)
}

func JSON(w io.Writer, r *report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report as JSON: %w", err)
	}
	return nil
}

func YAML(w io.Writer, r *report.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report as YAML: %w", err)
	}
	return enc.Close()
}

// ICS writes one VEVENT per worklog so the month can be overlaid on a
// calendar.
func ICS(w io.Writer, r *report.Report, now time.Time) error {
	if len(r.Entries) == 0 {
		return ErrNothingToExport
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for _, e := range r.Entries {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, eventUID(e))
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, e.Started.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, e.Started.Add(time.Duration(e.Seconds)*time.Second).UTC())

		summary := e.IssueKey
		if e.Summary != "" {
			summary += ": " + e.Summary
		}
		event.Props.SetText(ical.PropSummary, summary)
		if e.Comment != "" {
			event.Props.SetText(ical.PropDescription, e.Comment)
		}

		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding report as iCalendar: %w", err)
	}
	return nil
}

func eventUID(e report.Entry) string {
	if e.ID != "" {
		return fmt.Sprintf("worklog-%s@%s", e.ID, e.IssueKey)
	}
	return fmt.Sprintf("worklog-%d@%s", e.Started.Unix(), e.IssueKey)
}
