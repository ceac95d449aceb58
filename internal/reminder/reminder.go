package reminder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/worklogr/internal/config"
	"github.com/christopherklint97/worklogr/internal/notify"
	"github.com/christopherklint97/worklogr/internal/report"
	"github.com/christopherklint97/worklogr/internal/timefmt"
)

// Checker aggregates the user's worklogs over a date range.
type Checker interface {
	Range(ctx context.Context, start, end time.Time) (*report.Report, error)
}

type Reminder struct {
	hour, minute int
	workDays     []int
	hoursPerDay  float64
	checker      Checker
	notifier     notify.Notifier
	logger       *slog.Logger
	pidFile      string
	now          func() time.Time
}

func New(cfg config.Config, checker Checker, notifier notify.Notifier, pidFile string, logger *slog.Logger) (*Reminder, error) {
	hour, minute, err := config.ParseClock(cfg.Remind.At)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reminder{
		hour:        hour,
		minute:      minute,
		workDays:    cfg.Remind.WorkDays,
		hoursPerDay: cfg.Work.HoursPerDay,
		checker:     checker,
		notifier:    notifier,
		logger:      logger,
		pidFile:     pidFile,
		now:         time.Now,
	}, nil
}

// Run blocks until ctx is done, checking today's hours at the configured time
// on every configured workday.
func (r *Reminder) Run(ctx context.Context) error {
	if r.pidFile != "" {
		if err := WritePID(r.pidFile); err != nil {
			return fmt.Errorf("writing PID file: %w", err)
		}
		defer os.Remove(r.pidFile)
	}

	r.logger.Info("reminder started", "at", fmt.Sprintf("%02d:%02d", r.hour, r.minute), "work_days", r.workDays)

	for {
		next := NextRun(r.now(), r.hour, r.minute, r.workDays)
		fmt.Printf("Next check at %s\n", next.Format("Mon 02 Jan 15:04"))

		select {
		case <-ctx.Done():
			fmt.Println("\nReminder stopped.")
			return nil
		case <-time.After(time.Until(next)):
		}

		r.Check(ctx, next)
	}
}

// Check compares the hours logged on day with the daily target and warns when
// they fall short. It returns the hours found.
func (r *Reminder) Check(ctx context.Context, day time.Time) float64 {
	rep, err := r.checker.Range(ctx, day, day)
	if err != nil {
		r.logger.Error("reminder check failed", "error", err)
		r.notifier.Notify(notify.Error, "worklogr", fmt.Sprintf("Could not check today's worklogs: %v", err))
		return 0
	}

	hours := rep.TotalHours
	r.logger.Info("reminder check", "day", day.Format("2006-01-02"), "hours", hours)
	if hours < r.hoursPerDay {
		r.notifier.Notify(notify.Warning, "worklogr",
			fmt.Sprintf("Logged %sh of %sh today (%s)",
				trimHours(hours), trimHours(r.hoursPerDay), timefmt.FormatVariance(hours, r.hoursPerDay)))
	}
	return hours
}

func trimHours(h float64) string {
	return strings.TrimSuffix(strings.TrimRight(timefmt.FormatHours(h), "0"), ".")
}

// NextRun returns the first hour:minute strictly after now that falls on one
// of workDays (ISO numbering, Monday = 1). No work days means every day.
func NextRun(now time.Time, hour, minute int, workDays []int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	if len(workDays) == 0 {
		return next
	}
	for range 7 {
		if slices.Contains(workDays, isoWeekday(next)) {
			return next
		}
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // Sunday = 7
	}
	return wd
}

func PIDPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "worklogr-remind.pid"), nil
}

func WritePID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running reminder found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
