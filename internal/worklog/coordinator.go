package worklog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/christopherklint97/worklogr/internal/calendar"
	"github.com/christopherklint97/worklogr/internal/jira"
	"github.com/christopherklint97/worklogr/internal/store"
	"github.com/christopherklint97/worklogr/internal/timefmt"
)

// ErrMissingIssueID means the issue key could not be turned into an id; no
// worklog of the batch was attempted.
var ErrMissingIssueID = errors.New("could not resolve the issue id")

// Tracker is the write side of the Jira client.
type Tracker interface {
	GetIssueID(ctx context.Context, issueKey string) string
	AntiForgeryToken() string
	GetFormToken(ctx context.Context, issueID string) string
	SubmitWorkLog(ctx context.Context, s jira.Submission) error
}

// Recorder keeps a history of attempts. Optional.
type Recorder interface {
	InsertSubmission(s *store.Submission) (int64, error)
}

type State int

const (
	Idle State = iota
	ResolvingIssueID
	ResolvingTokens
	Submitting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResolvingIssueID:
		return "resolving issue id"
	case ResolvingTokens:
		return "resolving tokens"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Progress is reported on every state change. Done counts dates already
// submitted.
type Progress struct {
	State State
	Done  int
	Total int
	Date  time.Time
}

type Request struct {
	IssueKey string
	Dates    []time.Time
	Hours    float64
	Comment  string
}

type Result struct {
	BatchID    string
	IssueID    string
	TimeLogged string
	Submitted  []time.Time
}

// InputError is a request the coordinator refuses before touching Jira.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// BatchError is the first failure of a batch. Dates after Index were not
// attempted.
type BatchError struct {
	Date      time.Time
	Index     int
	Total     int
	Submitted int
	Err       error
}

func (e *BatchError) Error() string {
	if e.Total > 1 {
		return fmt.Sprintf("worklog for %s (%d of %d) failed after %d submitted: %v",
			calendar.FormatAPI(e.Date), e.Index+1, e.Total, e.Submitted, e.Err)
	}
	return fmt.Sprintf("worklog for %s failed: %v", calendar.FormatAPI(e.Date), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

type Options struct {
	StoragePrefix string
	MaxComments   int
	Recorder      Recorder
	OnProgress    func(Progress)
}

type Coordinator struct {
	tracker  Tracker
	kv       KV
	opts     Options
	logger   *slog.Logger
	newBatch func() string
}

func NewCoordinator(tracker Tracker, kv KV, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		tracker:  tracker,
		kv:       kv,
		opts:     opts,
		logger:   logger,
		newBatch: uuid.NewString,
	}
}

func (c *Coordinator) progress(p Progress) {
	if c.opts.OnProgress != nil {
		c.opts.OnProgress(p)
	}
}

func validate(req Request) error {
	switch {
	case strings.TrimSpace(req.IssueKey) == "":
		return &InputError{Msg: "no issue selected"}
	case len(req.Dates) == 0:
		return &InputError{Msg: "select at least one date"}
	case req.Hours <= 0:
		return &InputError{Msg: "select the number of hours"}
	case req.Hours > 24:
		return &InputError{Msg: fmt.Sprintf("%v hours do not fit in a day", req.Hours)}
	}
	return nil
}

// Submit logs req.Hours on every date in order. The first failure stops the
// batch; remembered hours and comments are only written when every date went
// through.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	total := len(req.Dates)
	result := &Result{
		BatchID:    c.newBatch(),
		TimeLogged: timefmt.FormatDuration(req.Hours),
	}
	log := c.logger.With("batch", result.BatchID, "issue", req.IssueKey)

	c.progress(Progress{State: ResolvingIssueID, Total: total})
	issueID := c.tracker.GetIssueID(ctx, req.IssueKey)
	if issueID == "" {
		log.Error("issue id not found")
		c.progress(Progress{State: Failed, Total: total})
		return nil, fmt.Errorf("%w for %s", ErrMissingIssueID, req.IssueKey)
	}
	result.IssueID = issueID

	for i, date := range req.Dates {
		c.progress(Progress{State: ResolvingTokens, Done: i, Total: total, Date: date})
		formToken := c.tracker.GetFormToken(ctx, issueID)
		if formToken == "" {
			return nil, c.fail(log, req, result, i, date, jira.ErrMissingFormToken)
		}

		c.progress(Progress{State: Submitting, Done: i, Total: total, Date: date})
		err := c.tracker.SubmitWorkLog(ctx, jira.Submission{
			IssueKey:   req.IssueKey,
			IssueID:    issueID,
			FormToken:  formToken,
			ATLToken:   c.tracker.AntiForgeryToken(),
			StartDate:  calendar.FormatLegacy(date),
			TimeLogged: result.TimeLogged,
			Comment:    req.Comment,
		})
		if err != nil {
			return nil, c.fail(log, req, result, i, date, err)
		}

		result.Submitted = append(result.Submitted, date)
		c.record(log, req, result.BatchID, date, store.StatusLogged, nil)
		log.Info("worklog created", "date", calendar.FormatAPI(date), "time", result.TimeLogged)
	}

	c.remember(log, req)
	c.progress(Progress{State: Completed, Done: total, Total: total})
	return result, nil
}

func (c *Coordinator) fail(log *slog.Logger, req Request, result *Result, i int, date time.Time, err error) error {
	log.Error("worklog failed", "date", calendar.FormatAPI(date), "kind", Classify(err).String(), "error", err)
	c.record(log, req, result.BatchID, date, store.StatusFailed, err)
	c.progress(Progress{State: Failed, Done: i, Total: len(req.Dates), Date: date})
	return &BatchError{Date: date, Index: i, Total: len(req.Dates), Submitted: len(result.Submitted), Err: err}
}

func (c *Coordinator) record(log *slog.Logger, req Request, batchID string, date time.Time, status string, err error) {
	if c.opts.Recorder == nil {
		return
	}
	s := &store.Submission{
		BatchID:  batchID,
		IssueKey: req.IssueKey,
		WorkDate: date,
		Hours:    req.Hours,
		Comment:  req.Comment,
		Status:   status,
	}
	if err != nil {
		s.Error = err.Error()
	}
	if _, rerr := c.opts.Recorder.InsertSubmission(s); rerr != nil {
		log.Warn("recording submission", "error", rerr)
	}
}

// remember stores the last hours/date and the comment. The worklogs already
// exist in Jira, so storage failures are only logged.
func (c *Coordinator) remember(log *slog.Logger, req Request) {
	last := req.Dates[len(req.Dates)-1]
	if err := SaveLastLogged(c.kv, c.opts.StoragePrefix, req.IssueKey, req.Hours, calendar.FormatAPI(last)); err != nil {
		log.Warn("saving last logged data", "error", err)
	}
	if err := SaveComment(c.kv, c.opts.StoragePrefix, req.IssueKey, req.Comment, c.opts.MaxComments); err != nil {
		log.Warn("saving comment", "error", err)
	}
}
