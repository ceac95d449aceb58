package calendar_test

import (
	"testing"
	"time"

	"github.com/christopherklint97/worklogr/internal/calendar"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFormatAPI(t *testing.T) {
	got := calendar.FormatAPI(time.Date(2026, 3, 7, 23, 10, 0, 0, time.UTC))
	if got != "2026-03-07" {
		t.Errorf("FormatAPI = %q, want %q", got, "2026-03-07")
	}
}

func TestIsWorkday(t *testing.T) {
	// 2026-02-23 is a Monday.
	start := date(2026, 2, 23)
	count := 0
	for i := 0; i < 14; i++ {
		d := start.AddDate(0, 0, i)
		want := d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
		if got := calendar.IsWorkday(d); got != want {
			t.Errorf("IsWorkday(%s) = %v, want %v", d.Format("Mon 2006-01-02"), got, want)
		}
		if calendar.IsWorkday(d) {
			count++
		}
	}
	if count != 10 {
		t.Errorf("workdays in 14 days = %d, want 10", count)
	}
}

func TestWorkdaysInRange(t *testing.T) {
	sat := date(2026, 2, 28)
	if got := calendar.WorkdaysInRange(sat, sat); len(got) != 0 {
		t.Errorf("Saturday range = %v, want empty", got)
	}

	wed := date(2026, 2, 25)
	got := calendar.WorkdaysInRange(wed, wed)
	if len(got) != 1 || !got[0].Equal(wed) {
		t.Errorf("Wednesday range = %v, want [%v]", got, wed)
	}

	if got := calendar.WorkdaysInRange(wed, sat.AddDate(0, 0, -10)); len(got) != 0 {
		t.Errorf("reversed range = %v, want empty", got)
	}

	// time of day on end must not exclude the last day
	got = calendar.WorkdaysInRange(date(2026, 2, 23), time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC))
	if len(got) != 5 {
		t.Errorf("Mon..Fri = %d days, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].After(got[i-1]) {
			t.Errorf("not ascending at %d: %v", i, got)
		}
	}
}

func TestMonthRange(t *testing.T) {
	first, last := calendar.MonthRange(2024, time.February, time.UTC)
	if !first.Equal(date(2024, 2, 1)) || !last.Equal(date(2024, 2, 29)) {
		t.Errorf("MonthRange(2024-02) = %v..%v", first, last)
	}
}

func TestMonthGrid(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		lead  int
		days  int
	}{
		{2025, time.October, 2, 31},  // starts on Wednesday
		{2026, time.June, 0, 30},     // starts on Monday
		{2026, time.February, 6, 28}, // starts on Sunday
	}
	for _, tt := range tests {
		grid := calendar.MonthGrid(tt.year, tt.month, time.UTC)
		lead := 0
		for lead < len(grid) && grid[lead] == nil {
			lead++
		}
		if lead != tt.lead {
			t.Errorf("%d-%02d leading nils = %d, want %d", tt.year, tt.month, lead, tt.lead)
		}
		if n := len(grid) - lead; n != tt.days {
			t.Errorf("%d-%02d days = %d, want %d", tt.year, tt.month, n, tt.days)
		}
		for i := lead; i < len(grid); i++ {
			if grid[i] == nil {
				t.Fatalf("%d-%02d nil cell after first day at %d", tt.year, tt.month, i)
			}
			if grid[i].Day() != i-lead+1 {
				t.Errorf("cell %d = day %d, want %d", i, grid[i].Day(), i-lead+1)
			}
			// column 0 is Monday
			if col := i % 7; (int(grid[i].Weekday())+6)%7 != col {
				t.Errorf("day %d in column %d, weekday %s", grid[i].Day(), col, grid[i].Weekday())
			}
		}
	}
}

func TestFormatLong(t *testing.T) {
	d := date(2026, 1, 5) // Monday
	if got := calendar.FormatLong(d, "ru"); got != "Пн, 5 января 2026" {
		t.Errorf("FormatLong ru = %q", got)
	}
	if got := calendar.FormatLong(d, "en"); got != "Mon, 5 January 2026" {
		t.Errorf("FormatLong en = %q", got)
	}
	if got := calendar.FormatLong(d, "xx"); got != "Пн, 5 января 2026" {
		t.Errorf("FormatLong unknown locale = %q, want ru fallback", got)
	}
}

func TestMonthName(t *testing.T) {
	if got := calendar.MonthName(time.March, "ru"); got != "Март" {
		t.Errorf("MonthName ru = %q", got)
	}
	if got := calendar.MonthName(time.March, "en"); got != "March" {
		t.Errorf("MonthName en = %q", got)
	}
}

func TestFormatLegacy(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{date(2026, 3, 7), "07/Mar/26 12:51 PM"},
		{time.Date(2009, 12, 31, 23, 59, 0, 0, time.UTC), "31/Dec/09 12:51 PM"},
	}
	for _, tt := range tests {
		if got := calendar.FormatLegacy(tt.in); got != tt.want {
			t.Errorf("FormatLegacy(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDay(t *testing.T) {
	now := time.Date(2026, 10, 14, 15, 4, 0, 0, time.UTC)

	got, err := calendar.ParseDay("2026-10-01", now)
	if err != nil || !got.Equal(date(2026, 10, 1)) {
		t.Errorf("ParseDay ISO = %v, %v", got, err)
	}

	got, err = calendar.ParseDay("yesterday", now)
	if err != nil {
		t.Fatalf("ParseDay yesterday: %v", err)
	}
	if !got.Equal(date(2026, 10, 13)) {
		t.Errorf("ParseDay yesterday = %v, want 2026-10-13", got)
	}

	if _, err := calendar.ParseDay("  ", now); err == nil {
		t.Error("ParseDay blank: expected error")
	}
}
