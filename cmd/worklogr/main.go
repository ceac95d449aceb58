package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/config"
	"github.com/christopherklint97/worklogr/internal/export"
	"github.com/christopherklint97/worklogr/internal/jira"
	"github.com/christopherklint97/worklogr/internal/notify"
	"github.com/christopherklint97/worklogr/internal/reminder"
	"github.com/christopherklint97/worklogr/internal/report"
	"github.com/christopherklint97/worklogr/internal/store"
	"github.com/christopherklint97/worklogr/internal/timefmt"
	"github.com/christopherklint97/worklogr/internal/tui"
	"github.com/christopherklint97/worklogr/internal/worklog"
)

var rootCmd = &cobra.Command{
	Use:           "worklogr",
	Short:         "Log work and build time reports against Jira",
	Long:          "worklogr adds worklogs to Jira issues through the issue's worklog dialog and builds monthly reports of your logged time.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		return setupLogger(debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogger()
	},
}

var logCmd = &cobra.Command{
	Use:   "log [ISSUE-KEY]",
	Short: "Add a worklog to an issue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLog,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show your logged time for a month",
	RunE:  runReport,
}

var commentsCmd = &cobra.Command{
	Use:   "comments ISSUE-KEY",
	Short: "List recent comments used for an issue",
	Args:  cobra.ExactArgs(1),
	RunE:  runComments,
}

var lastCmd = &cobra.Command{
	Use:   "last ISSUE-KEY",
	Short: "Show the last hours and date logged for an issue",
	Args:  cobra.ExactArgs(1),
	RunE:  runLast,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submission attempts",
	RunE:  runHistory,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the configured time presets",
	RunE:  runPresets,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Warn at the end of the workday when time is missing",
	RunE:  runRemind,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Write debug output to the log file")

	logCmd.Flags().String("url", "", "Issue page URL to read the issue from")
	logCmd.Flags().Float64("hours", 0, "Hours to log")
	logCmd.Flags().StringArray("date", nil, `Day to log on, YYYY-MM-DD or a phrase like "yesterday" (repeatable)`)
	logCmd.Flags().String("comment", "", "Worklog comment")
	logCmd.Flags().Bool("same", false, "Log the last hours for this issue again, today")
	logCmd.Flags().Bool("no-tui", false, "Never open the interactive form")

	now := time.Now()
	reportCmd.Flags().Int("month", int(now.Month()), "Month (1-12)")
	reportCmd.Flags().Int("year", now.Year(), "Year")
	reportCmd.Flags().String("format", "", "Output format: text, json, yaml or ics (default from config)")

	historyCmd.Flags().Int("limit", 20, "Number of attempts to show")
	historyCmd.Flags().String("issue", "", "Only show attempts for this issue")

	remindCmd.Flags().Bool("stop", false, "Stop the running reminder")

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(configCmd)
}

// reported is an error the notifier has already shown to the user.
type reported struct {
	error
}

func (r reported) Unwrap() error { return r.error }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var r reported
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

var (
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile *os.File
)

// setupLogger sends slog output to worklogr.log in the config directory.
func setupLogger(debug bool) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "worklogr.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return nil
}

func closeLogger() {
	if logFile != nil {
		logFile.Close()
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newJiraClient(cfg config.Config) *jira.Client {
	return jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.Cookie, jira.Options{
		ATLToken:   cfg.Jira.ATLToken,
		MaxRetries: cfg.Jira.MaxRetries,
		Timeout:    time.Duration(cfg.Jira.TimeoutSeconds) * time.Second,
		UserTTL:    time.Duration(cfg.Jira.UserCacheMinutes) * time.Minute,
	}, logger.With("component", "jira"))
}

func newNotifier(cfg config.Config) notify.Notifier {
	console := notify.NewConsole(os.Stdout)
	if cfg.Notifications.Enabled && cfg.Notifications.Desktop {
		return notify.Multi{console, notify.NewDesktop("worklogr", logger)}
	}
	return console
}

func newAggregator(cfg config.Config, client *jira.Client, onIssue func(done, total int, key string)) *report.Aggregator {
	return report.NewAggregator(client, report.Options{
		HoursPerDay: cfg.Work.HoursPerDay,
		Locale:      cfg.Report.Locale,
		OnIssue:     onIssue,
	}, logger.With("component", "report"))
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runReport(cmd *cobra.Command, args []string) error {
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	format, _ := cmd.Flags().GetString("format")

	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d", month)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if format == "" {
		format = cfg.Report.Format
	}
	if format != export.FormatText && !slices.Contains(export.Formats, format) {
		return fmt.Errorf("unknown report format %q", format)
	}

	client := newJiraClient(cfg)
	ctx := context.Background()

	var rep *report.Report
	build := func(update func(done, total int)) error {
		agg := newAggregator(cfg, client, func(done, total int, key string) { update(done, total) })
		var err error
		rep, err = agg.Month(ctx, year, time.Month(month))
		return err
	}

	if isTerminal() && format == export.FormatText {
		err = tui.RunProgress("Loading worklogs", build)
	} else {
		err = build(func(int, int) {})
	}
	if err != nil {
		newNotifier(cfg).Notify(notify.Error, "Report failed", err.Error())
		return reported{err}
	}

	if format == export.FormatText {
		fmt.Print(tui.RenderReport(rep, cfg.Report.Locale))
		return nil
	}
	return export.Write(os.Stdout, format, rep)
}

func openStore() (*store.DB, error) {
	db, err := store.OpenDefault()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runComments(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	key := strings.ToUpper(args[0])
	comments, err := worklog.SavedComments(db, cfg.Work.StoragePrefix, key)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Printf("No saved comments for %s.\n", key)
		return nil
	}
	for i, c := range comments {
		fmt.Printf("  %2d. %s\n", i+1, c)
	}
	return nil
}

func runLast(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	key := strings.ToUpper(args[0])
	last, err := worklog.GetLastLogged(db, cfg.Work.StoragePrefix, key)
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Printf("Nothing logged for %s yet.\n", key)
		return nil
	}
	when := last.Date
	if day, ok := last.Day(time.Local); ok {
		when = calendar.FormatLong(day, cfg.Report.Locale)
	}
	fmt.Printf("%s: %s on %s\n", key, timefmt.FormatDuration(last.Hours), when)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	issue, _ := cmd.Flags().GetString("issue")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	var subs []store.Submission
	if issue != "" {
		subs, err = db.IssueSubmissions(strings.ToUpper(issue))
	} else {
		subs, err = db.RecentSubmissions(limit)
	}
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	if len(subs) == 0 {
		fmt.Println("No submissions recorded.")
		return nil
	}

	for _, s := range subs {
		line := fmt.Sprintf("  %s  %-10s  %-7s  %-6s  %s",
			s.WorkDate.Format("2006-01-02"),
			s.IssueKey,
			timefmt.FormatDuration(s.Hours),
			s.Status,
			s.Comment,
		)
		if s.Error != "" {
			line += "  (" + s.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runPresets(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, h := range cfg.Work.TimePresets {
		fmt.Printf("  %-5v %s\n", h, timefmt.FormatDuration(h))
	}
	return nil
}

func runRemind(cmd *cobra.Command, args []string) error {
	stop, _ := cmd.Flags().GetBool("stop")

	pidFile, err := reminder.PIDPath()
	if err != nil {
		return err
	}

	if stop {
		pid, err := reminder.ReadPID(pidFile)
		if err != nil {
			return err
		}
		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("finding process %d: %w", pid, err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("sending stop signal: %w", err)
		}
		fmt.Printf("Sent stop signal to worklogr reminder (PID %d)\n", pid)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	agg := newAggregator(cfg, newJiraClient(cfg), nil)
	r, err := reminder.New(cfg, agg, newNotifier(cfg), pidFile, logger.With("component", "remind"))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return r.Run(ctx)
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.WriteDefault(configPath, config.DefaultConfig()); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	c := exec.Command(editor, configPath)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
	}
	return nil
}
