package worklog

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	lastLoggedSuffix = "-lastLoggedData"
	commentsSuffix   = "-comments"
)

// KV is the small key/value store the coordinator remembers things in.
type KV interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// LastLogged is what was submitted most recently for an issue.
type LastLogged struct {
	Hours float64 `json:"hours"`
	Date  string  `json:"date"`
}

// Day parses Date in loc.
func (l LastLogged) Day(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", l.Date, loc)
	return t, err == nil
}

func LastLoggedKey(prefix, issueKey string) string {
	return prefix + issueKey + lastLoggedSuffix
}

func CommentsKey(prefix, issueKey string) string {
	return prefix + issueKey + commentsSuffix
}

// GetLastLogged returns nil when nothing (or nothing readable) is stored.
func GetLastLogged(kv KV, prefix, issueKey string) (*LastLogged, error) {
	raw, err := kv.GetState(LastLoggedKey(prefix, issueKey))
	if err != nil {
		return nil, fmt.Errorf("reading last logged data: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var last LastLogged
	if err := json.Unmarshal([]byte(raw), &last); err != nil {
		return nil, nil
	}
	return &last, nil
}

func SaveLastLogged(kv KV, prefix, issueKey string, hours float64, date string) error {
	data, err := json.Marshal(LastLogged{Hours: hours, Date: date})
	if err != nil {
		return fmt.Errorf("marshaling last logged data: %w", err)
	}
	return kv.SetState(LastLoggedKey(prefix, issueKey), string(data))
}

// SavedComments returns the issue's recent comments, most recent first.
func SavedComments(kv KV, prefix, issueKey string) ([]string, error) {
	raw, err := kv.GetState(CommentsKey(prefix, issueKey))
	if err != nil {
		return nil, fmt.Errorf("reading saved comments: %w", err)
	}
	if raw == "" {
		return []string{}, nil
	}
	var comments []string
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return []string{}, nil
	}
	return comments, nil
}

// SaveComment puts comment at the front of the issue's list, dropping an
// older copy of it and anything beyond limit. Blank comments are ignored.
func SaveComment(kv KV, prefix, issueKey, comment string, limit int) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil
	}

	comments, err := SavedComments(kv, prefix, issueKey)
	if err != nil {
		return err
	}

	updated := append([]string{comment}, slices.DeleteFunc(comments, func(c string) bool { return c == comment })...)
	if limit >= 0 && len(updated) > limit {
		updated = updated[:limit]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshaling comments: %w", err)
	}
	return kv.SetState(CommentsKey(prefix, issueKey), string(data))
}
