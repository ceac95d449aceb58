package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/jira"
	"github.com/christopherklint97/worklogr/internal/timefmt"
)

const (
	searchFields     = "key,summary"
	searchMaxResults = 1000
)

var ErrNoCurrentUser = errors.New("could not determine the current Jira user")

// Source is the read side of the Jira client.
type Source interface {
	GetCurrentUser(ctx context.Context) *jira.User
	SearchIssues(ctx context.Context, jql, fields string, maxResults int) (*jira.SearchResult, error)
	FetchAllWorkLogs(ctx context.Context, issueKey string) []jira.WorkLog
}

// Entry is one of the user's worklogs, flattened with its issue.
type Entry struct {
	IssueKey  string    `json:"issue_key" yaml:"issue_key"`
	Summary   string    `json:"summary" yaml:"summary"`
	ID        string    `json:"id" yaml:"id"`
	Started   time.Time `json:"started" yaml:"started"`
	TimeSpent string    `json:"time_spent" yaml:"time_spent"`
	Seconds   int       `json:"seconds" yaml:"seconds"`
	Comment   string    `json:"comment,omitempty" yaml:"comment,omitempty"`
}

func (e Entry) Hours() float64 {
	return float64(e.Seconds) / 3600
}

// DayBucket collects the entries of one workday.
type DayBucket struct {
	Date         time.Time   `json:"date" yaml:"date"`
	Key          string      `json:"key" yaml:"key"`
	Label        string      `json:"label" yaml:"label"`
	Entries      []Entry     `json:"entries" yaml:"entries"`
	TotalSeconds int         `json:"total_seconds" yaml:"total_seconds"`
	Hours        float64     `json:"hours" yaml:"hours"`
	IsEmpty      bool        `json:"is_empty" yaml:"is_empty"`
	Color        timefmt.RGB `json:"-" yaml:"-"`
	Variance     string      `json:"variance,omitempty" yaml:"variance,omitempty"`
}

type Report struct {
	Start             time.Time   `json:"start" yaml:"start"`
	End               time.Time   `json:"end" yaml:"end"`
	User              jira.User   `json:"user" yaml:"user"`
	Entries           []Entry     `json:"entries" yaml:"entries"`
	Days              []DayBucket `json:"days" yaml:"days"`
	TotalSeconds      int         `json:"total_seconds" yaml:"total_seconds"`
	TotalHours        float64     `json:"total_hours" yaml:"total_hours"`
	HoursPerDay       float64     `json:"hours_per_day" yaml:"hours_per_day"`
	ExpectedHours     float64     `json:"expected_hours" yaml:"expected_hours"`
	CompletionPercent float64     `json:"completion_percent" yaml:"completion_percent"`
	WorkdaysCount     int         `json:"workdays" yaml:"workdays"`
	WorkedDaysCount   int         `json:"worked_days" yaml:"worked_days"`
}

// Color is the completion color of the whole report.
func (r *Report) Color() timefmt.RGB {
	return timefmt.ColorForFraction(r.TotalHours, r.ExpectedHours)
}

type Options struct {
	HoursPerDay float64
	Locale      string
	Location    *time.Location
	// OnIssue is called before each issue's worklogs are fetched.
	OnIssue func(done, total int, issueKey string)
}

type Aggregator struct {
	source Source
	opts   Options
	logger *slog.Logger
}

func NewAggregator(source Source, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.HoursPerDay <= 0 {
		opts.HoursPerDay = 8
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Locale == "" {
		opts.Locale = calendar.LocaleRU
	}
	return &Aggregator{source: source, opts: opts, logger: logger}
}

func (a *Aggregator) Month(ctx context.Context, year int, month time.Month) (*Report, error) {
	first, last := calendar.MonthRange(year, month, a.opts.Location)
	return a.Range(ctx, first, last)
}

// Range builds the report for every calendar day from start to end inclusive.
func (a *Aggregator) Range(ctx context.Context, start, end time.Time) (*Report, error) {
	start = calendar.StartOfDay(start.In(a.opts.Location))
	end = calendar.StartOfDay(end.In(a.opts.Location))
	fromKey, toKey := calendar.FormatAPI(start), calendar.FormatAPI(end)

	user := a.source.GetCurrentUser(ctx)
	if user == nil {
		return nil, ErrNoCurrentUser
	}

	jql := fmt.Sprintf(`worklogAuthor = currentUser() AND worklogDate >= "%s" AND worklogDate <= "%s"`, fromKey, toKey)
	result, err := a.source.SearchIssues(ctx, jql, searchFields, searchMaxResults)
	if err != nil {
		return nil, fmt.Errorf("searching issues with worklogs: %w", err)
	}
	a.logger.Debug("issues with worklogs", "count", len(result.Issues), "total", result.Total, "from", fromKey, "to", toKey)

	var entries []Entry
	for i, issue := range result.Issues {
		if a.opts.OnIssue != nil {
			a.opts.OnIssue(i, len(result.Issues), issue.Key)
		}
		for _, wl := range a.source.FetchAllWorkLogs(ctx, issue.Key) {
			if !IsCurrentUserWorklog(wl.Author, *user) {
				continue
			}
			day := calendar.FormatAPI(wl.Started.In(a.opts.Location))
			if day < fromKey || day > toKey {
				continue
			}
			entries = append(entries, Entry{
				IssueKey:  issue.Key,
				Summary:   issue.Fields.Summary,
				ID:        wl.ID,
				Started:   wl.Started.Time,
				TimeSpent: wl.TimeSpent,
				Seconds:   wl.TimeSpentSeconds,
				Comment:   wl.Comment,
			})
		}
	}

	slices.SortStableFunc(entries, func(x, y Entry) int {
		return x.Started.Compare(y.Started)
	})

	return a.build(*user, start, end, entries), nil
}

func (a *Aggregator) build(user jira.User, start, end time.Time, entries []Entry) *Report {
	r := &Report{
		Start:       start,
		End:         end,
		User:        user,
		Entries:     entries,
		HoursPerDay: a.opts.HoursPerDay,
	}

	byDay := make(map[string][]Entry)
	for _, e := range entries {
		r.TotalSeconds += e.Seconds
		key := calendar.FormatAPI(e.Started.In(a.opts.Location))
		byDay[key] = append(byDay[key], e)
	}
	r.TotalHours = float64(r.TotalSeconds) / 3600

	for _, day := range calendar.WorkdaysInRange(start, end) {
		key := calendar.FormatAPI(day)
		b := DayBucket{
			Date:    day,
			Key:     key,
			Label:   calendar.FormatLong(day, a.opts.Locale),
			Entries: byDay[key],
		}
		for _, e := range b.Entries {
			b.TotalSeconds += e.Seconds
		}
		b.Hours = float64(b.TotalSeconds) / 3600
		b.IsEmpty = len(b.Entries) == 0
		b.Color = timefmt.ColorForFraction(b.Hours, a.opts.HoursPerDay)
		b.Variance = timefmt.FormatVariance(b.Hours, a.opts.HoursPerDay)
		if !b.IsEmpty {
			r.WorkedDaysCount++
		}
		r.Days = append(r.Days, b)
	}

	r.WorkdaysCount = len(r.Days)
	r.ExpectedHours = float64(r.WorkdaysCount) * a.opts.HoursPerDay
	if r.ExpectedHours > 0 {
		r.CompletionPercent = r.TotalHours / r.ExpectedHours * 100
	}
	return r
}

// Round2 rounds to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsCurrentUserWorklog matches on the first identifier both sides carry:
// accountId, then name, then email.
func IsCurrentUserWorklog(author jira.Author, user jira.User) bool {
	switch {
	case author.AccountID != "" && user.AccountID != "":
		return author.AccountID == user.AccountID
	case author.Name != "" && user.Name != "":
		return author.Name == user.Name
	case author.EmailAddress != "" && user.Email != "":
		return author.EmailAddress == user.Email
	}
	return false
}
