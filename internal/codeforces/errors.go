package codeforces

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("user not found")
	// ErrNetwork covers transport failures, non-2xx statuses and malformed bodies.
	ErrNetwork = errors.New("network error")
	// ErrAPI is matched by FAILED responses that are not a missing handle.
	ErrAPI = errors.New("codeforces api error")
	// ErrIncompleteData is reported when every fetch succeeded but required data is still missing.
	ErrIncompleteData = errors.New("could not load complete data for one or both handles, please check the handles and try again")
)

// notFoundPattern extracts the handle from comments like "handles: User with handle foo not found".
var notFoundPattern = regexp.MustCompile(`(?i)handle\s+(\S+)\s+not\s+found`)

// NotFoundError reports that a handle does not exist.
type NotFoundError struct {
	Handle string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("User '%s' not found", e.Handle)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// APIError is a FAILED response whose comment is not a missing handle.
type APIError struct {
	Comment string
}

func (e *APIError) Error() string {
	return e.Comment
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}

// StatusError is a non-2xx response other than 429.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if text := http.StatusText(e.Code); text != "" {
		return text
	}

	return fmt.Sprintf("HTTP %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrNetwork
}

// ParseError reports a body that is not a valid API envelope.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// ThrottledError is a 429 response. A zero RetryAfter means the server sent no hint.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("throttled by server, retry after %s", e.RetryAfter)
	}

	return "throttled by server"
}

func (e *ThrottledError) Unwrap() error {
	return ratelimit.ErrTooManyRequests
}

// callLimitComment is how the API signals throttling inside a FAILED body.
const callLimitComment = "call limit exceeded"

// IsCallLimit reports whether a FAILED comment is a server-side throttle.
func IsCallLimit(comment string) bool {
	return strings.Contains(strings.ToLower(comment), callLimitComment)
}

// ClassifyFailure turns a FAILED comment into a typed error. requested is the
// handle used when the comment does not name one. A call-limit comment
// becomes a ThrottledError without a hint, so the default wait applies.
func ClassifyFailure(comment, requested string) error {
	if IsCallLimit(comment) {
		return &ThrottledError{}
	}

	if !strings.Contains(strings.ToLower(comment), "not found") {
		if comment == "" {
			comment = "Codeforces API request failed"
		}

		return &APIError{Comment: comment}
	}

	handle := requested
	if match := notFoundPattern.FindStringSubmatch(comment); match != nil {
		handle = match[1]
	}

	return &NotFoundError{Handle: handle}
}
