package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	StatusLogged = "logged"
	StatusFailed = "failed"
)

// Submission is one attempted worklog, kept for the history command.
type Submission struct {
	ID        int
	BatchID   string
	IssueKey  string
	WorkDate  time.Time
	Hours     float64
	Comment   string
	Status    string
	Error     string
	CreatedAt time.Time
}

func (db *DB) InsertSubmission(s *Submission) (int64, error) {
	result, err := db.Exec(
		`INSERT INTO submissions (batch_id, issue_key, work_date, hours, comment, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.BatchID, s.IssueKey, s.WorkDate.Format("2006-01-02"),
		s.Hours, s.Comment, s.Status, s.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting submission: %w", err)
	}
	return result.LastInsertId()
}

// RecentSubmissions returns the newest attempts first.
func (db *DB) RecentSubmissions(limit int) ([]Submission, error) {
	return db.querySubmissions(
		`SELECT id, batch_id, issue_key, work_date, hours, comment, status, error, created_at
		 FROM submissions
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
}

func (db *DB) IssueSubmissions(issueKey string) ([]Submission, error) {
	return db.querySubmissions(
		`SELECT id, batch_id, issue_key, work_date, hours, comment, status, error, created_at
		 FROM submissions
		 WHERE issue_key = ?
		 ORDER BY work_date ASC, id ASC`,
		issueKey,
	)
}

func (db *DB) querySubmissions(query string, args ...interface{}) ([]Submission, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		var comment, errText sql.NullString
		var dateStr, createdStr string

		if err := rows.Scan(
			&s.ID, &s.BatchID, &s.IssueKey, &dateStr, &s.Hours,
			&comment, &s.Status, &errText, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}

		s.Comment = comment.String
		s.Error = errText.String

		if t, err := time.ParseInLocation("2006-01-02", dateStr, time.Local); err == nil {
			s.WorkDate = t
		}
		if t, err := time.Parse("2006-01-02 15:04:05", createdStr); err == nil {
			s.CreatedAt = t
		} else if t, err := time.Parse(time.RFC3339, createdStr); err == nil {
			s.CreatedAt = t
		}

		subs = append(subs, s)
	}

	return subs, rows.Err()
}
