package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed attempt
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindClient       Kind = "client"
	KindServer       Kind = "server"
)

var (
	ErrMissingBaseURL      = errors.New("API base URL is not configured")
	ErrNoCandidates        = errors.New("no candidate endpoints")
	ErrAllCandidatesFailed = errors.New("all candidate endpoints failed")

	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrClient       = errors.New("request rejected")
	ErrServer       = errors.New("server error")
)

var kindSentinels = map[Kind]error{
	KindNetwork:      ErrNetwork,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindClient:       ErrClient,
	KindServer:       ErrServer,
}

// AttemptError describes one failed call to one candidate endpoint
type AttemptError struct {
	Method  string
	URL     string
	Status  int
	Kind    Kind
	Message string // message reported by the API, if any
	Err     error  // transport error for KindNetwork
}

func (e *AttemptError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the attempt's kind, so callers can write
// errors.Is(err, gateway.ErrNotFound).
func (e *AttemptError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// FallbackError is returned when every candidate failed. Attempts are in
// the order tried; errors.Is and errors.As see only the most recent one.
type FallbackError struct {
	Attempts []*AttemptError
}

// Last returns the most recent failure
func (e *FallbackError) Last() *AttemptError {
	return e.Attempts[len(e.Attempts)-1]
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrAllCandidatesFailed, len(e.Attempts), e.Last())
}

func (e *FallbackError) Unwrap() []error {
	return []error{ErrAllCandidatesFailed, e.Last()}
}

// KindFromStatus maps a non-2xx HTTP status to a failure kind
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// KindOf returns the kind of the last failed attempt in err, or "" when err
// did not come from a gateway call.
func KindOf(err error) Kind {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// APIMessage returns the most recent message the remote API attached to an
// error response, or "" when there was none.
func APIMessage(err error) string {
	var fe *FallbackError
	if errors.As(err, &fe) {
		for i := len(fe.Attempts) - 1; i >= 0; i-- {
			if fe.Attempts[i].Message != "" {
				return fe.Attempts[i].Message
			}
		}
		return ""
	}
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}
