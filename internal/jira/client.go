package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	pathMyself              = "/rest/api/2/myself"
	pathIssue               = "/rest/api/2/issue/%s"
	pathWorkLog             = "/rest/api/2/issue/%s/worklog"
	pathSearch              = "/rest/api/2/search"
	pathCreateWorklog       = "/secure/CreateWorklog.jspa"
	pathCreateWorklogDialog = "/secure/CreateWorklog!default.jspa"

	// WorkLogPageSize is the maxResults used when paging worklogs.
	WorkLogPageSize = 100
)

var formTokenRe = regexp.MustCompile(`(?is)name="formToken".*?value="([^"]+)"`)

// MetaReader exposes <meta> tags of the issue page the user is looking at.
type MetaReader interface {
	Meta(name string) string
}

type Client struct {
	baseURL    string
	cookie     string
	atlToken   string
	maxRetries int
	httpClient *http.Client
	cache      *UserCache
	page       MetaReader
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration
}

type Options struct {
	ATLToken   string
	MaxRetries int
	Timeout    time.Duration
	UserTTL    time.Duration
	HTTPClient *http.Client
}

func NewClient(baseURL, cookie string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookie:     cookie,
		atlToken:   opts.ATLToken,
		maxRetries: max(opts.MaxRetries, 0),
		httpClient: httpClient,
		cache:      NewUserCache(opts.UserTTL),
		logger:     logger,
		backoff:    backoff,
	}
}

// WithPage returns a copy of the client that reads page meta tags from p.
func (c *Client) WithPage(p MetaReader) *Client {
	cp := *c
	cp.page = p
	return &cp
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// sameOrigin reports whether u points at the configured scheme and host.
func (c *Client) sameOrigin(u *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

func (c *Client) meta(name string) string {
	if c.page == nil {
		return ""
	}
	return c.page.Meta(name)
}

type request struct {
	method  string
	path    string
	body    string
	headers map[string]string
	retry   bool
}

func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	target := r.path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + r.path
	}

	attempts := 1
	if r.retry {
		attempts += c.maxRetries
	}

	c.logger.Debug("jira request", "method", r.method, "path", r.path)

	var resp *http.Response
	requestStart := time.Now()
	for attempt := 0; attempt < attempts; attempt++ {
		var body io.Reader
		if r.body != "" {
			body = strings.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, target, body)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		// the session cookie only goes to the configured host
		if c.cookie != "" && c.sameOrigin(req.URL) {
			req.Header.Set("Cookie", c.cookie)
		}
		for k, v := range r.headers {
			req.Header.Set(k, v)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == attempts-1 || ctx.Err() != nil {
				c.logger.Error("jira transport error", "method", r.method, "path", r.path, "error", err, "elapsed", time.Since(requestStart))
				return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
			}
			c.logger.Debug("jira transport error, retrying", "method", r.method, "path", r.path, "attempt", attempt+1, "error", err)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
			}
			continue
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < attempts-1 {
			resp.Body.Close()
			c.logger.Debug("jira retryable status", "method", r.method, "path", r.path, "status", resp.StatusCode, "attempt", attempt+1)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
			}
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: r.method, Path: r.path, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("jira response", "method", r.method, "path", r.path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode == http.StatusUnauthorized {
		c.cache.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("jira request failed", "method", r.method, "path", r.path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(c.backoff(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	data, err := c.doRequest(ctx, request{method: http.MethodGet, path: path, retry: true})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

// GetCurrentUser returns the session's user, or nil when it cannot be
// resolved. Failures are logged, not returned.
func (c *Client) GetCurrentUser(ctx context.Context) *User {
	if cached := c.cache.Get(); cached != nil {
		return cached
	}

	var user User
	if err := c.getJSON(ctx, pathMyself, &user); err != nil {
		c.logger.Error("getting current user", "error", err)
		return nil
	}

	c.cache.Set(&user)
	return &user
}

func (c *Client) GetIssue(ctx context.Context, issueKey, fields string) (*Issue, error) {
	path := fmt.Sprintf(pathIssue, url.PathEscape(issueKey))
	if fields != "" {
		path += "?fields=" + url.QueryEscape(fields)
	}

	var issue Issue
	if err := c.getJSON(ctx, path, &issue); err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", issueKey, err)
	}
	return &issue, nil
}

// GetIssueID resolves the numeric id of an issue, falling back to the page's
// ajs-issue-id meta tag. It returns "" when neither is available.
func (c *Client) GetIssueID(ctx context.Context, issueKey string) string {
	issue, err := c.GetIssue(ctx, issueKey, "id")
	if err == nil && issue.ID != "" {
		return issue.ID
	}
	if err != nil {
		c.logger.Warn("issue lookup failed, trying page meta", "issue", issueKey, "error", err)
	}
	return c.meta("ajs-issue-id")
}

// WorkLogs pages through an issue's worklogs lazily. A failed page is yielded
// as an error and ends the sequence.
func (c *Client) WorkLogs(ctx context.Context, issueKey string) iter.Seq2[WorkLog, error] {
	return func(yield func(WorkLog, error) bool) {
		startAt := 0
		for {
			path := fmt.Sprintf(pathWorkLog, url.PathEscape(issueKey)) +
				fmt.Sprintf("?startAt=%d&maxResults=%d", startAt, WorkLogPageSize)

			var page workLogPage
			if err := c.getJSON(ctx, path, &page); err != nil {
				yield(WorkLog{}, fmt.Errorf("fetching worklogs for %s at %d: %w", issueKey, startAt, err))
				return
			}

			for _, wl := range page.WorkLogs {
				if !yield(wl, nil) {
					return
				}
			}

			// servers may cap maxResults below what was asked for
			startAt += len(page.WorkLogs)
			if startAt >= page.Total || len(page.WorkLogs) == 0 {
				return
			}
		}
	}
}

// FetchAllWorkLogs collects every worklog of an issue. When a page fails the
// entries fetched so far are returned.
func (c *Client) FetchAllWorkLogs(ctx context.Context, issueKey string) []WorkLog {
	var all []WorkLog
	for wl, err := range c.WorkLogs(ctx, issueKey) {
		if err != nil {
			c.logger.Error("worklog page failed, keeping partial results", "issue", issueKey, "fetched", len(all), "error", err)
			break
		}
		all = append(all, wl)
	}
	return all
}

// SearchIssues runs a JQL search. Unlike the other reads it returns errors,
// since a report cannot be built without the issue set.
func (c *Client) SearchIssues(ctx context.Context, jql, fields string, maxResults int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("fields", fields)
	q.Set("maxResults", fmt.Sprint(maxResults))

	var result SearchResult
	if err := c.getJSON(ctx, pathSearch+"?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}
	if result.Total > len(result.Issues) {
		c.logger.Warn("search truncated", "total", result.Total, "returned", len(result.Issues))
	}
	return &result, nil
}

// AntiForgeryToken returns the page's atlassian-token, or the configured one.
func (c *Client) AntiForgeryToken() string {
	if tok := c.meta("atlassian-token"); tok != "" {
		return tok
	}
	return c.atlToken
}

// GetFormToken opens the worklog dialog and pulls the formToken out of its
// markup. It returns "" if the dialog fails or carries no token.
func (c *Client) GetFormToken(ctx context.Context, issueID string) string {
	data, err := c.doRequest(ctx, request{
		method: http.MethodGet,
		path:   pathCreateWorklogDialog + "?id=" + url.QueryEscape(issueID),
		headers: map[string]string{
			"Accept":           "text/html",
			"X-Requested-With": "XMLHttpRequest",
		},
		retry: true,
	})
	if err != nil {
		c.logger.Error("opening worklog dialog", "issue_id", issueID, "error", err)
		return ""
	}

	m := formTokenRe.FindSubmatch(data)
	if m == nil {
		c.logger.Warn("formToken not found in dialog html", "issue_id", issueID, "bytes", len(data))
		return ""
	}
	return string(m[1])
}

// SubmitWorkLog posts the legacy CreateWorklog form. It is never retried.
func (c *Client) SubmitWorkLog(ctx context.Context, s Submission) error {
	form := url.Values{}
	form.Set("inline", "true")
	form.Set("decorator", "dialog")
	form.Set("worklogId", "")
	form.Set("id", s.IssueID)
	form.Set("formToken", s.FormToken)
	form.Set("timeLogged", s.TimeLogged)
	form.Set("startDate", s.StartDate)
	form.Set("adjustEstimate", "auto")
	form.Set("dnd-dropzone", "")
	form.Set("comment", s.Comment)
	form.Set("commentLevel", "")
	form.Set("atl_token", s.ATLToken)

	headers := map[string]string{
		"Accept":           "text/html, */*; q=0.01",
		"Content-Type":     "application/x-www-form-urlencoded; charset=UTF-8",
		"X-Requested-With": "XMLHttpRequest",
	}
	if s.IssueKey != "" {
		headers["Referer"] = c.baseURL + "/browse/" + s.IssueKey
	}

	data, err := c.doRequest(ctx, request{
		method:  http.MethodPost,
		path:    pathCreateWorklog,
		body:    form.Encode(),
		headers: headers,
	})
	if err != nil {
		return fmt.Errorf("creating worklog: %w", err)
	}

	if strings.Contains(strings.ToLower(string(data)), "error") {
		c.logger.Error("worklog form reported an error", "issue", s.IssueKey, "response", truncate(string(data), 200))
		return &ServerReportedError{Body: string(data)}
	}
	return nil
}

// FetchPage downloads an issue page for the page adapter.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	data, err := c.doRequest(ctx, request{
		method:  http.MethodGet,
		path:    pageURL,
		headers: map[string]string{"Accept": "text/html"},
		retry:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	return data, nil
}
