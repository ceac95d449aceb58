// Package page reads issue context from a Jira issue page: its URL and,
// when available, its HTML.
package page

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const (
	breadcrumbTestID = "issue.views.issue-base.foundation.breadcrumbs.breadcrumb-current-issue-container"
	summaryID        = "summary-val"

	// NoTitle is shown when the page has no summary node.
	NoTitle = "Без описания"
)

var browseKeyRe = regexp.MustCompile(`/browse/([A-Z]+-\d+)`)

// Context is what the core needs from the page: the issue on display.
type Context interface {
	CurrentIssueKey() (string, bool)
	CurrentIssueTitle() string
}

// Document is a parsed issue page. The zero value and a Document without HTML
// are valid; lookups that need markup simply find nothing.
type Document struct {
	url  string
	root *html.Node
}

// FromURL builds a Document that only knows the page address.
func FromURL(pageURL string) *Document {
	return &Document{url: pageURL}
}

// Parse builds a Document from the page address and its HTML.
func Parse(pageURL string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page html: %w", err)
	}
	return &Document{url: pageURL, root: root}, nil
}

// ParseBytes is Parse over an in-memory body.
func ParseBytes(pageURL string, body []byte) (*Document, error) {
	return Parse(pageURL, bytes.NewReader(body))
}

// CurrentIssueKey tries the URL, then the breadcrumb, then the ajs-issue-key
// meta tag.
func (d *Document) CurrentIssueKey() (string, bool) {
	if m := browseKeyRe.FindStringSubmatch(d.url); m != nil {
		return m[1], true
	}

	if crumb := find(d.root, func(n *html.Node) bool { return attr(n, "data-test-id") == breadcrumbTestID }); crumb != nil {
		if span := find(crumb, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "span" }); span != nil {
			if key := strings.TrimSpace(textContent(span)); key != "" {
				return key, true
			}
		}
	}

	if key := d.Meta("ajs-issue-key"); key != "" {
		return key, true
	}
	return "", false
}

// CurrentIssueTitle returns the summary text without nested markup.
func (d *Document) CurrentIssueTitle() string {
	summary := find(d.root, func(n *html.Node) bool { return attr(n, "id") == summaryID })
	if summary == nil {
		return NoTitle
	}
	var sb strings.Builder
	for c := summary.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	if title := strings.TrimSpace(sb.String()); title != "" {
		return title
	}
	return NoTitle
}

// Meta returns the content of <meta name="..."> or "".
func (d *Document) Meta(name string) string {
	meta := find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta" && attr(n, "name") == name
	})
	if meta == nil {
		return ""
	}
	return attr(meta, "content")
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
