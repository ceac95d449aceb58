package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

const (
	LocaleRU = "ru"
	LocaleEN = "en"
)

type localeNames struct {
	weekdays    [7]string  // indexed by time.Weekday
	monthsOf    [12]string // genitive, used inside a date
	monthTitles [12]string // nominative, used in titles
}

var locales = map[string]localeNames{
	LocaleRU: {
		weekdays: [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"},
		monthsOf: [12]string{
			"января", "февраля", "марта", "апреля", "мая", "июня",
			"июля", "августа", "сентября", "октября", "ноября", "декабря",
		},
		monthTitles: [12]string{
			"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
			"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
		},
	},
	LocaleEN: {
		weekdays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		monthsOf: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		monthTitles: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
	},
}

var legacyMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func names(locale string) localeNames {
	if n, ok := locales[strings.ToLower(locale)]; ok {
		return n
	}
	return locales[LocaleRU]
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatAPI formats t as YYYY-MM-DD.
func FormatAPI(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// IsWorkday reports whether t falls on Monday through Friday.
func IsWorkday(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// WorkdaysInRange returns every workday from start to end inclusive, compared
// by calendar day, at midnight in start's location.
func WorkdaysInRange(start, end time.Time) []time.Time {
	var days []time.Time
	last := StartOfDay(end.In(start.Location()))
	for d := StartOfDay(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d) {
			days = append(days, d)
		}
	}
	return days
}

// MonthRange returns the first and last calendar day of the month.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return first, first.AddDate(0, 1, -1)
}

// MonthGrid lays the month out in Monday-first weeks of seven cells. Cells
// before the 1st are nil; the grid ends on the last day of the month.
func MonthGrid(year int, month time.Month, loc *time.Location) []*time.Time {
	first, last := MonthRange(year, month, loc)

	// Monday = 0 ... Sunday = 6
	lead := (int(first.Weekday()) + 6) % 7

	cells := make([]*time.Time, lead, lead+last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := d
		cells = append(cells, &day)
	}
	return cells
}

// FormatLong renders "{weekday}, {day} {month} {year}" in the given locale,
// e.g. "Пн, 5 января 2026".
func FormatLong(t time.Time, locale string) string {
	n := names(locale)
	return fmt.Sprintf("%s, %d %s %d", n.weekdays[t.Weekday()], t.Day(), n.monthsOf[t.Month()-1], t.Year())
}

// MonthName returns the nominative month name for report titles.
func MonthName(month time.Month, locale string) string {
	return names(locale).monthTitles[month-1]
}

// WeekdayShort returns the abbreviated weekday name.
func WeekdayShort(wd time.Weekday, locale string) string {
	return names(locale).weekdays[wd]
}

// FormatLegacy formats t for the CreateWorklog form. The time of day is
// always 12:51 PM, the host dialog's own default.
func FormatLegacy(t time.Time) string {
	return fmt.Sprintf("%02d/%s/%02d 12:51 PM", t.Day(), legacyMonths[t.Month()-1], t.Year()%100)
}

// ParseDay accepts YYYY-MM-DD or a natural phrase like "yesterday" or
// "last friday", resolved relative to now and into the past.
func ParseDay(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	t, err := naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return StartOfDay(t), nil
}
