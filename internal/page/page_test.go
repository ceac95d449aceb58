package page

import (
	"strings"
	"testing"
)

const issueHTML = `<!DOCTYPE html>
<html><head>
<meta name="ajs-issue-key" content="META-7">
<meta name="ajs-issue-id" content="10042">
<meta name="atlassian-token" content="atl-123">
</head><body>
<div data-test-id="issue.views.issue-base.foundation.breadcrumbs.breadcrumb-current-issue-container">
  <a href="/browse/CRUMB-3"><span> CRUMB-3 </span></a>
</div>
<h1 id="summary-val">Fix login redirect <span class="edit">edit</span></h1>
</body></html>`

func TestCurrentIssueKeyFallbacks(t *testing.T) {
	tests := []struct {
		name string
		url  string
		html string
		want string
		ok   bool
	}{
		{"url wins", "https://jira.example.com/browse/ABC-123?focused=1", issueHTML, "ABC-123", true},
		{"breadcrumb", "https://jira.example.com/secure/Dashboard.jspa", issueHTML, "CRUMB-3", true},
		{"meta", "https://jira.example.com/", `<html><head><meta name="ajs-issue-key" content="META-7"></head></html>`, "META-7", true},
		{"nothing", "https://jira.example.com/", `<html><body>hi</body></html>`, "", false},
		{"lowercase key not matched", "https://jira.example.com/browse/abc-1", `<html></html>`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.url, strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, ok := doc.CurrentIssueKey()
			if got != tt.want || ok != tt.ok {
				t.Errorf("CurrentIssueKey() = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFromURL(t *testing.T) {
	doc := FromURL("https://jira.example.com/browse/OPS-99")
	if key, ok := doc.CurrentIssueKey(); !ok || key != "OPS-99" {
		t.Errorf("CurrentIssueKey() = %q, %v", key, ok)
	}
	if got := doc.CurrentIssueTitle(); got != NoTitle {
		t.Errorf("CurrentIssueTitle() = %q, want placeholder", got)
	}
	if got := doc.Meta("atlassian-token"); got != "" {
		t.Errorf("Meta() = %q, want empty", got)
	}
}

func TestCurrentIssueTitle(t *testing.T) {
	doc, err := ParseBytes("https://jira.example.com/browse/ABC-1", []byte(issueHTML))
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.CurrentIssueTitle(); got != "Fix login redirect" {
		t.Errorf("CurrentIssueTitle() = %q", got)
	}

	empty, _ := ParseBytes("", []byte(`<div id="summary-val"><b>only nested</b></div>`))
	if got := empty.CurrentIssueTitle(); got != NoTitle {
		t.Errorf("CurrentIssueTitle() = %q, want placeholder", got)
	}
}

func TestMeta(t *testing.T) {
	doc, _ := ParseBytes("", []byte(issueHTML))
	if got := doc.Meta("ajs-issue-id"); got != "10042" {
		t.Errorf("Meta(ajs-issue-id) = %q", got)
	}
	if got := doc.Meta("atlassian-token"); got != "atl-123" {
		t.Errorf("Meta(atlassian-token) = %q", got)
	}
	if got := doc.Meta("missing"); got != "" {
		t.Errorf("Meta(missing) = %q", got)
	}
}
