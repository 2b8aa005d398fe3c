package codeforces

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter reads a Retry-After value given as delta-seconds or as an
// HTTP date. Missing, invalid or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds <= 0 {
			return 0
		}

		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}

	return 0
}

// StatusFailure converts a non-2xx response into a typed error. body is the
// already-read response body and handle the handle the request was for.
func StatusFailure(resp *http.Response, body []byte, handle string, now time.Time) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &ThrottledError{RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), now)}
	}

	comment := FailureComment(body)
	if IsCallLimit(comment) || strings.Contains(strings.ToLower(comment), "not found") {
		return ClassifyFailure(comment, handle)
	}

	if comment == "" {
		comment = http.StatusText(resp.StatusCode)
	}

	return &StatusError{Code: resp.StatusCode, Message: comment}
}

// IsSuccess reports whether code is 2xx.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// RequestHandle returns the handle(s) a request URL targets.
func RequestHandle(req *http.Request) string {
	query := req.URL.Query()
	if handle := query.Get("handle"); handle != "" {
		return handle
	}

	return query.Get("handles")
}
