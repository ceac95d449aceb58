package jira

import (
	"errors"
	"fmt"
)

// ErrMissingFormToken means the worklog dialog gave no form token, which in
// practice means the user may not log work on the issue.
var ErrMissingFormToken = errors.New("could not get formToken from the worklog dialog; you may not have permission to log work on this issue")

// TransportError is a request that never got an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Jira API error (status %d): %s", e.Status, truncate(e.Body, 200))
}

// ServerReportedError is a 2xx response whose body carries an error. The
// legacy worklog form reports validation failures this way.
type ServerReportedError struct {
	Body string
}

func (e *ServerReportedError) Error() string {
	return "server returned an error while creating the worklog"
}
