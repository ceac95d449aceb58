package report

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/jira"
)

type fakeSource struct {
	user      *jira.User
	issues    []jira.Issue
	worklogs  map[string][]jira.WorkLog
	searchErr error
	jql       string
}

func (f *fakeSource) GetCurrentUser(ctx context.Context) *jira.User { return f.user }

func (f *fakeSource) SearchIssues(ctx context.Context, jql, fields string, max int) (*jira.SearchResult, error) {
	f.jql = jql
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &jira.SearchResult{Issues: f.issues, Total: len(f.issues)}, nil
}

func (f *fakeSource) FetchAllWorkLogs(ctx context.Context, key string) []jira.WorkLog {
	return f.worklogs[key]
}

func worklog(id, accountID string, started time.Time, seconds int) jira.WorkLog {
	return jira.WorkLog{
		ID:               id,
		Author:           jira.Author{AccountID: accountID},
		Started:          jira.Time{Time: started},
		TimeSpentSeconds: seconds,
	}
}

func TestMonthReport(t *testing.T) {
	// May 2026 has 21 workdays.
	workdays := calendar.WorkdaysInRange(
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
	)
	if len(workdays) != 21 {
		t.Fatalf("expected 21 workdays in May 2026, got %d", len(workdays))
	}

	src := &fakeSource{
		user: &jira.User{AccountID: "me"},
		issues: []jira.Issue{
			{Key: "ABC-1", Fields: jira.IssueFields{Summary: "first"}},
			{Key: "ABC-2", Fields: jira.IssueFields{Summary: "second"}},
		},
		worklogs: map[string][]jira.WorkLog{},
	}
	for i, day := range workdays[:10] {
		key := "ABC-1"
		if i%2 == 1 {
			key = "ABC-2"
		}
		src.worklogs[key] = append(src.worklogs[key], worklog("w", "me", day.Add(9*time.Hour), 8*3600))
	}
	// Someone else's work and work outside the month are ignored.
	src.worklogs["ABC-1"] = append(src.worklogs["ABC-1"],
		worklog("x", "other", workdays[11].Add(9*time.Hour), 3600),
		worklog("y", "me", time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC), 3600),
	)

	agg := NewAggregator(src, Options{Location: time.UTC, Locale: calendar.LocaleRU}, nil)
	r, err := agg.Month(context.Background(), 2026, time.May)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}

	if !strings.Contains(src.jql, `worklogDate >= "2026-05-01" AND worklogDate <= "2026-05-31"`) {
		t.Errorf("jql = %s", src.jql)
	}
	if r.ExpectedHours != 168 || r.TotalHours != 80 || r.WorkdaysCount != 21 {
		t.Errorf("expected=%v total=%v workdays=%d", r.ExpectedHours, r.TotalHours, r.WorkdaysCount)
	}
	if math.Abs(r.CompletionPercent-47.619) > 0.01 {
		t.Errorf("completion = %v", r.CompletionPercent)
	}

	empty, full := 0, 0
	for _, b := range r.Days {
		sum := 0
		for _, e := range b.Entries {
			sum += e.Seconds
		}
		if sum != b.TotalSeconds || b.IsEmpty != (len(b.Entries) == 0) {
			t.Errorf("bucket %s inconsistent: %+v", b.Key, b)
		}
		if b.IsEmpty {
			empty++
		} else {
			full++
		}
	}
	if empty != 11 || full != 10 || r.WorkedDaysCount != 10 {
		t.Errorf("empty=%d full=%d worked=%d", empty, full, r.WorkedDaysCount)
	}

	for i := 1; i < len(r.Entries); i++ {
		if r.Entries[i].Started.Before(r.Entries[i-1].Started) {
			t.Fatalf("entries not sorted at %d", i)
		}
	}
	if r.Entries[1].IssueKey != "ABC-2" || r.Entries[1].Summary != "second" {
		t.Errorf("second entry = %+v", r.Entries[1])
	}
	if r.Days[0].Label != "Пт, 1 мая 2026" {
		t.Errorf("label = %q", r.Days[0].Label)
	}
}

func TestWeekendCountsWithoutBucket(t *testing.T) {
	sat := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		user:     &jira.User{AccountID: "me"},
		issues:   []jira.Issue{{Key: "ABC-1"}},
		worklogs: map[string][]jira.WorkLog{"ABC-1": {worklog("1", "me", sat, 7200)}},
	}
	agg := NewAggregator(src, Options{Location: time.UTC}, nil)

	r, err := agg.Range(context.Background(), sat, sat.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalHours != 2 || len(r.Days) != 0 || r.CompletionPercent != 0 {
		t.Errorf("total=%v days=%d completion=%v", r.TotalHours, len(r.Days), r.CompletionPercent)
	}
}

func TestStableSort(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{
		user:   &jira.User{AccountID: "me"},
		issues: []jira.Issue{{Key: "A-1"}, {Key: "A-2"}},
		worklogs: map[string][]jira.WorkLog{
			"A-1": {worklog("1", "me", at, 60)},
			"A-2": {worklog("2", "me", at, 60), worklog("3", "me", at.Add(-time.Hour), 60)},
		},
	}
	r, err := NewAggregator(src, Options{Location: time.UTC}, nil).Range(context.Background(), at, at)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range r.Entries {
		ids = append(ids, e.ID)
	}
	if got := strings.Join(ids, ","); got != "3,1,2" {
		t.Errorf("order = %s, want 3,1,2", got)
	}
}

func TestReportErrors(t *testing.T) {
	agg := NewAggregator(&fakeSource{}, Options{}, nil)
	if _, err := agg.Month(context.Background(), 2026, time.May); !errors.Is(err, ErrNoCurrentUser) {
		t.Errorf("err = %v, want ErrNoCurrentUser", err)
	}

	src := &fakeSource{
		user:      &jira.User{Name: "me"},
		searchErr: &jira.HTTPError{Status: 400, Body: "bad jql"},
	}
	_, err := NewAggregator(src, Options{}, nil).Month(context.Background(), 2026, time.May)
	var httpErr *jira.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 400 {
		t.Errorf("err = %v, want wrapped HTTPError", err)
	}
}

func TestIsCurrentUserWorklog(t *testing.T) {
	tests := []struct {
		name   string
		author jira.Author
		user   jira.User
		want   bool
	}{
		{"account match", jira.Author{AccountID: "a"}, jira.User{AccountID: "a"}, true},
		{"account mismatch", jira.Author{AccountID: "a"}, jira.User{AccountID: "b"}, false},
		{"account wins over name", jira.Author{AccountID: "a", Name: "n"}, jira.User{AccountID: "b", Name: "n"}, false},
		{"name match", jira.Author{Name: "n"}, jira.User{Name: "n"}, true},
		{"email match", jira.Author{EmailAddress: "e@x"}, jira.User{Email: "e@x"}, true},
		{"email mismatch", jira.Author{EmailAddress: "e@x"}, jira.User{Email: "f@x"}, false},
		{"no shared field", jira.Author{AccountID: "a", DisplayName: "Me"}, jira.User{Name: "n", DisplayName: "Me"}, false},
		{"nothing set", jira.Author{}, jira.User{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCurrentUserWorklog(tt.author, tt.user); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(47.6190476); got != 47.62 {
		t.Errorf("Round2 = %v", got)
	}
}
