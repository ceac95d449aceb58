package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/config"
	"github.com/christopherklint97/worklogr/internal/jira"
	"github.com/christopherklint97/worklogr/internal/notify"
	"github.com/christopherklint97/worklogr/internal/page"
	"github.com/christopherklint97/worklogr/internal/store"
	"github.com/christopherklint97/worklogr/internal/tui"
	"github.com/christopherklint97/worklogr/internal/worklog"
)

// loadPage fetches the issue page so tokens and the title can be read from
// it. A page that cannot be fetched still yields its URL.
func loadPage(ctx context.Context, client *jira.Client, pageURL string) *page.Document {
	body, err := client.FetchPage(ctx, pageURL)
	if err != nil {
		logger.Warn("issue page unavailable, using URL only", "url", pageURL, "error", err)
		return page.FromURL(pageURL)
	}
	doc, err := page.ParseBytes(pageURL, body)
	if err != nil {
		logger.Warn("issue page unreadable, using URL only", "url", pageURL, "error", err)
		return page.FromURL(pageURL)
	}
	return doc
}

func parseDates(values []string, now time.Time) ([]time.Time, error) {
	var dates []time.Time
	for _, v := range values {
		d, err := calendar.ParseDay(v, now)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func runLog(cmd *cobra.Command, args []string) error {
	pageURL, _ := cmd.Flags().GetString("url")
	hours, _ := cmd.Flags().GetFloat64("hours")
	dateArgs, _ := cmd.Flags().GetStringArray("date")
	comment, _ := cmd.Flags().GetString("comment")
	same, _ := cmd.Flags().GetBool("same")
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	hasComment := cmd.Flags().Changed("comment")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	notifier := newNotifier(cfg)

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	client := newJiraClient(cfg)

	var issueKey string
	if len(args) == 1 {
		issueKey = strings.ToUpper(args[0])
	}
	if issueKey == "" && pageURL == "" {
		return fmt.Errorf("no issue: pass ISSUE-KEY or --url")
	}
	if pageURL == "" {
		pageURL = client.BaseURL() + "/browse/" + issueKey
	}

	doc := loadPage(ctx, client, pageURL)
	if issueKey == "" {
		key, ok := doc.CurrentIssueKey()
		if !ok {
			return fmt.Errorf("could not find an issue key on %s", pageURL)
		}
		issueKey = key
	}
	client = client.WithPage(doc)

	now := time.Now()
	dates, err := parseDates(dateArgs, now)
	if err != nil {
		return err
	}

	last, err := worklog.GetLastLogged(db, cfg.Work.StoragePrefix, issueKey)
	if err != nil {
		logger.Warn("reading last logged data", "issue", issueKey, "error", err)
	}

	if same {
		if last == nil {
			return fmt.Errorf("nothing logged for %s yet", issueKey)
		}
		hours = last.Hours
		if len(dates) == 0 {
			dates = []time.Time{calendar.StartOfDay(now)}
		}
	}

	missing := hours <= 0 || len(dates) == 0
	if missing && !noTUI && isTerminal() {
		form, err := runForm(cfg, db, doc, issueKey, last, hours, dates, comment, hasComment, now)
		if err != nil {
			return err
		}
		if form.Cancelled {
			fmt.Println("Cancelled.")
			return nil
		}
		hours, dates, comment = form.Hours, form.Dates, form.Comment
	}

	req := worklog.Request{IssueKey: issueKey, Dates: dates, Hours: hours, Comment: comment}
	res, err := submit(ctx, cfg, client, db, req)
	if err != nil {
		level, title := notify.Error, "Worklog failed"
		if worklog.Classify(err) == worklog.KindInput {
			level, title = notify.Warning, "Nothing logged"
		}
		notifier.Notify(level, title, userMessage(err))
		return reported{err}
	}

	notifier.Notify(notify.Success, successTitle(len(res.Submitted)), successMessage(issueKey, res, cfg.Report.Locale))
	return nil
}

func runForm(cfg config.Config, db *store.DB, doc *page.Document, issueKey string, last *worklog.LastLogged,
	hours float64, dates []time.Time, comment string, hasComment bool, now time.Time) (*tui.FormResult, error) {
	comments, err := worklog.SavedComments(db, cfg.Work.StoragePrefix, issueKey)
	if err != nil {
		logger.Warn("reading saved comments", "issue", issueKey, "error", err)
	}

	in := tui.FormInput{
		IssueKey:   issueKey,
		IssueTitle: doc.CurrentIssueTitle(),
		Presets:    cfg.Work.TimePresets,
		Hours:      hours,
		Dates:      dates,
		Comment:    comment,
		HasComment: hasComment,
		Comments:   comments,
		Today:      calendar.StartOfDay(now),
		Locale:     cfg.Report.Locale,
	}
	if last != nil {
		in.LastHours = last.Hours
	}
	return tui.RunForm(in)
}

func submit(ctx context.Context, cfg config.Config, client *jira.Client, db *store.DB, req worklog.Request) (*worklog.Result, error) {
	var res *worklog.Result
	run := func(update func(done, total int)) error {
		coord := worklog.NewCoordinator(client, db, worklog.Options{
			StoragePrefix: cfg.Work.StoragePrefix,
			MaxComments:   cfg.Work.MaxSavedComments,
			Recorder:      db,
			OnProgress: func(p worklog.Progress) {
				update(p.Done, p.Total)
			},
		}, logger.With("component", "worklog"))
		var err error
		res, err = coord.Submit(ctx, req)
		return err
	}

	var err error
	if isTerminal() {
		err = tui.RunProgress("Adding worklogs", run)
	} else {
		err = run(func(int, int) {})
	}
	return res, err
}

func successTitle(n int) string {
	if n == 1 {
		return "Worklog added"
	}
	return fmt.Sprintf("%d worklogs added", n)
}

func successMessage(issueKey string, res *worklog.Result, locale string) string {
	if len(res.Submitted) == 1 {
		return fmt.Sprintf("%s: %s on %s", issueKey, res.TimeLogged, calendar.FormatLong(res.Submitted[0], locale))
	}
	return fmt.Sprintf("%s: %s on each day", issueKey, res.TimeLogged)
}

func userMessage(err error) string {
	var be *worklog.BatchError
	prefix := ""
	if errors.As(err, &be) && be.Total > 1 {
		prefix = fmt.Sprintf("%s (%d of %d, %d already logged): ",
			calendar.FormatAPI(be.Date), be.Index+1, be.Total, be.Submitted)
	}

	switch worklog.Classify(err) {
	case worklog.KindInput:
		return err.Error()
	case worklog.KindMissingIssueID:
		return "Could not get the issue id. Check the issue key and your session cookie."
	case worklog.KindMissingFormToken:
		return prefix + "Could not get a form token. You may not have permission to log work on this issue."
	case worklog.KindServerReported:
		return prefix + "Jira rejected the worklog. Check the date and time values."
	case worklog.KindHTTP:
		var httpErr *jira.HTTPError
		errors.As(err, &httpErr)
		return prefix + fmt.Sprintf("Jira answered with HTTP %d.", httpErr.Status)
	case worklog.KindNetwork:
		return prefix + "Could not reach Jira. Check your network connection."
	}
	return prefix + err.Error()
}
