package worklog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/christopherklint97/worklogr/internal/jira"
	"github.com/christopherklint97/worklogr/internal/store"
)

type memKV map[string]string

func (m memKV) GetState(key string) (string, error) { return m[key], nil }

func (m memKV) SetState(key, value string) error {
	m[key] = value
	return nil
}

type fakeTracker struct {
	issueID    string
	formTokens int
	noToken    bool
	// failAt is the 1-based submit call that fails; 0 never fails.
	failAt  int
	failErr error
	submits []jira.Submission
}

func (f *fakeTracker) GetIssueID(ctx context.Context, key string) string { return f.issueID }

func (f *fakeTracker) AntiForgeryToken() string { return "atl" }

func (f *fakeTracker) GetFormToken(ctx context.Context, id string) string {
	if f.noToken {
		return ""
	}
	f.formTokens++
	return "ft"
}

func (f *fakeTracker) SubmitWorkLog(ctx context.Context, s jira.Submission) error {
	f.submits = append(f.submits, s)
	if f.failAt == len(f.submits) {
		return f.failErr
	}
	return nil
}

type memRecorder struct {
	rows []store.Submission
}

func (r *memRecorder) InsertSubmission(s *store.Submission) (int64, error) {
	r.rows = append(r.rows, *s)
	return int64(len(r.rows)), nil
}

func days(n int) []time.Time {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	var out []time.Time
	for i := range n {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

func newTestCoordinator(tr Tracker, kv KV, rec Recorder) *Coordinator {
	c := NewCoordinator(tr, kv, Options{StoragePrefix: "jira-worklog-", MaxComments: 10, Recorder: rec}, nil)
	c.newBatch = func() string { return "batch-1" }
	return c
}

func TestSubmitSuccess(t *testing.T) {
	tr := &fakeTracker{issueID: "10042"}
	kv := memKV{}
	rec := &memRecorder{}
	c := newTestCoordinator(tr, kv, rec)

	var states []State
	c.opts.OnProgress = func(p Progress) { states = append(states, p.State) }

	res, err := c.Submit(context.Background(), Request{
		IssueKey: "ABC-123",
		Dates:    days(2),
		Hours:    1.5,
		Comment:  "code review",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.BatchID != "batch-1" || res.IssueID != "10042" || res.TimeLogged != "1h 30m" || len(res.Submitted) != 2 {
		t.Errorf("result = %+v", res)
	}
	if tr.formTokens != 2 {
		t.Errorf("form tokens fetched %d times, want one per date", tr.formTokens)
	}

	first := tr.submits[0]
	if first.StartDate != "02/Mar/26 12:51 PM" || first.TimeLogged != "1h 30m" || first.ATLToken != "atl" || first.FormToken != "ft" {
		t.Errorf("first submission = %+v", first)
	}

	last, _ := GetLastLogged(kv, "jira-worklog-", "ABC-123")
	if last == nil || last.Hours != 1.5 || last.Date != "2026-03-03" {
		t.Errorf("last logged = %+v", last)
	}
	comments, _ := SavedComments(kv, "jira-worklog-", "ABC-123")
	if len(comments) != 1 || comments[0] != "code review" {
		t.Errorf("comments = %v", comments)
	}
	if len(rec.rows) != 2 || rec.rows[1].Status != store.StatusLogged {
		t.Errorf("recorded = %+v", rec.rows)
	}
	if states[0] != ResolvingIssueID || states[len(states)-1] != Completed {
		t.Errorf("states = %v", states)
	}
}

func TestSubmitServerReportedError(t *testing.T) {
	tr := &fakeTracker{
		issueID: "10042",
		failAt:  1,
		failErr: &jira.ServerReportedError{Body: "Error: required field"},
	}
	kv := memKV{}
	c := newTestCoordinator(tr, kv, nil)

	_, err := c.Submit(context.Background(), Request{IssueKey: "ABC-123", Dates: days(1), Hours: 2})

	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BatchError", err)
	}
	if Classify(err) != KindServerReported {
		t.Errorf("Classify = %v", Classify(err))
	}
	if len(kv) != 0 {
		t.Errorf("storage written after failed submit: %v", kv)
	}
}

func TestSubmitStopsAtFirstFailure(t *testing.T) {
	tr := &fakeTracker{
		issueID: "10042",
		failAt:  2,
		failErr: &jira.HTTPError{Status: 500, Body: "boom"},
	}
	kv := memKV{}
	rec := &memRecorder{}
	c := newTestCoordinator(tr, kv, rec)

	dates := days(3)
	_, err := c.Submit(context.Background(), Request{IssueKey: "ABC-123", Dates: dates, Hours: 8, Comment: "x"})

	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BatchError", err)
	}
	if be.Index != 1 || be.Submitted != 1 || !be.Date.Equal(dates[1]) {
		t.Errorf("batch error = %+v", be)
	}
	if len(tr.submits) != 2 {
		t.Errorf("%d submits, third date must not be attempted", len(tr.submits))
	}
	if Classify(err) != KindHTTP {
		t.Errorf("Classify = %v", Classify(err))
	}
	if len(kv) != 0 {
		t.Errorf("storage written after partial batch: %v", kv)
	}
	if len(rec.rows) != 2 || rec.rows[1].Status != store.StatusFailed || rec.rows[1].Error == "" {
		t.Errorf("recorded = %+v", rec.rows)
	}
}

func TestSubmitMissingIssueID(t *testing.T) {
	tr := &fakeTracker{}
	c := newTestCoordinator(tr, memKV{}, nil)

	_, err := c.Submit(context.Background(), Request{IssueKey: "ABC-123", Dates: days(2), Hours: 1})
	if !errors.Is(err, ErrMissingIssueID) {
		t.Fatalf("err = %v, want ErrMissingIssueID", err)
	}
	if len(tr.submits) != 0 || tr.formTokens != 0 {
		t.Error("nothing should be attempted without an issue id")
	}
}

func TestSubmitMissingFormToken(t *testing.T) {
	tr := &fakeTracker{issueID: "1", noToken: true}
	c := newTestCoordinator(tr, memKV{}, nil)

	_, err := c.Submit(context.Background(), Request{IssueKey: "ABC-1", Dates: days(1), Hours: 1})
	if !errors.Is(err, jira.ErrMissingFormToken) {
		t.Fatalf("err = %v", err)
	}
	if Classify(err) != KindMissingFormToken {
		t.Errorf("Classify = %v", Classify(err))
	}
	if len(tr.submits) != 0 {
		t.Error("submitted without a form token")
	}
}

func TestSubmitValidation(t *testing.T) {
	c := newTestCoordinator(&fakeTracker{issueID: "1"}, memKV{}, nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"no issue", Request{Dates: days(1), Hours: 1}},
		{"no dates", Request{IssueKey: "A-1", Hours: 1}},
		{"no hours", Request{IssueKey: "A-1", Dates: days(1)}},
		{"too many hours", Request{IssueKey: "A-1", Dates: days(1), Hours: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(context.Background(), tt.req)
			if Classify(err) != KindInput {
				t.Errorf("err = %v, want input error", err)
			}
		})
	}
}

func TestClassifyNetwork(t *testing.T) {
	err := &BatchError{Err: &jira.TransportError{Method: "POST", Path: "/x", Err: errors.New("connection refused")}}
	if Classify(err) != KindNetwork {
		t.Errorf("Classify = %v", Classify(err))
	}
	if Classify(errors.New("other")) != KindUnknown {
		t.Error("plain error should be unknown")
	}
}
