package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestState(t *testing.T) {
	db := openTestDB(t)

	got, err := db.GetState("missing")
	if err != nil || got != "" {
		t.Fatalf("GetState(missing) = %q, %v", got, err)
	}

	if err := db.SetState("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState("k", "v2"); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetState("k")
	if err != nil || got != "v2" {
		t.Errorf("GetState(k) = %q, %v, want v2", got, err)
	}
}

func TestSubmissions(t *testing.T) {
	db := openTestDB(t)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	for i, status := range []string{StatusLogged, StatusLogged, StatusFailed} {
		s := &Submission{
			BatchID:  "b1",
			IssueKey: "ABC-1",
			WorkDate: day.AddDate(0, 0, i),
			Hours:    2.5,
			Comment:  "review",
			Status:   status,
		}
		if status == StatusFailed {
			s.Error = "server returned an error"
		}
		if _, err := db.InsertSubmission(s); err != nil {
			t.Fatalf("InsertSubmission: %v", err)
		}
	}
	if _, err := db.InsertSubmission(&Submission{BatchID: "b2", IssueKey: "XYZ-9", WorkDate: day, Hours: 1, Status: StatusLogged}); err != nil {
		t.Fatal(err)
	}

	recent, err := db.RecentSubmissions(2)
	if err != nil {
		t.Fatalf("RecentSubmissions: %v", err)
	}
	if len(recent) != 2 || recent[0].IssueKey != "XYZ-9" || recent[1].Status != StatusFailed {
		t.Errorf("recent = %+v", recent)
	}
	if recent[1].Error == "" {
		t.Error("error text not stored")
	}

	issue, err := db.IssueSubmissions("ABC-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(issue) != 3 {
		t.Fatalf("IssueSubmissions = %d rows, want 3", len(issue))
	}
	if !issue[0].WorkDate.Equal(day) || issue[0].Hours != 2.5 || issue[0].Comment != "review" {
		t.Errorf("first = %+v", issue[0])
	}
}
