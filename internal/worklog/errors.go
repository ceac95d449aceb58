package worklog

import (
	"errors"

	"github.com/christopherklint97/worklogr/internal/jira"
)

// Kind groups failures for the message shown to the user.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindMissingIssueID
	KindMissingFormToken
	KindHTTP
	KindServerReported
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindMissingIssueID:
		return "missing issue id"
	case KindMissingFormToken:
		return "missing form token"
	case KindHTTP:
		return "http error"
	case KindServerReported:
		return "server reported error"
	case KindNetwork:
		return "network error"
	}
	return "unknown"
}

func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var inputErr *InputError
	var httpErr *jira.HTTPError
	var srvErr *jira.ServerReportedError
	var transportErr *jira.TransportError

	switch {
	case errors.As(err, &inputErr):
		return KindInput
	case errors.Is(err, ErrMissingIssueID):
		return KindMissingIssueID
	case errors.Is(err, jira.ErrMissingFormToken):
		return KindMissingFormToken
	case errors.As(err, &srvErr):
		return KindServerReported
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &transportErr):
		return KindNetwork
	}
	return KindUnknown
}
