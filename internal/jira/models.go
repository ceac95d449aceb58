package jira

import (
	"encoding/json"
	"strings"
	"time"
)

// User is the account the session cookie belongs to.
type User struct {
	AccountID   string `json:"accountId" yaml:"account_id"`
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	Email       string `json:"emailAddress" yaml:"email"`
}

type Author struct {
	AccountID    string `json:"accountId"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// WorkLog is one entry from /rest/api/2/issue/{key}/worklog.
type WorkLog struct {
	ID               string `json:"id"`
	Author           Author `json:"author"`
	Started          Time   `json:"started"`
	TimeSpent        string `json:"timeSpent"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	Comment          string `json:"comment"`
}

type workLogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	WorkLogs   []WorkLog `json:"worklogs"`
}

type IssueFields struct {
	Summary string `json:"summary"`
}

type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Submission is the form body for CreateWorklog.jspa.
type Submission struct {
	IssueKey   string
	IssueID    string
	FormToken  string
	ATLToken   string
	StartDate  string // calendar.FormatLegacy
	TimeLogged string // timefmt.FormatDuration
	Comment    string
}

// Time parses Jira's "2006-01-02T15:04:05.000-0700" timestamps.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05.000-0700"))
}
