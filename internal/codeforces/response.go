package codeforces

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Envelope statuses.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// ErrUnknownStatus is wrapped by a *ParseError when the envelope status is neither OK nor FAILED.
var ErrUnknownStatus = errors.New("unknown response status")

// Response is the envelope every API method returns.
type Response[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	Result  T      `json:"result"`
}

// Failed reports whether the API flagged the call as failed.
func (r *Response[T]) Failed() bool {
	return r.Status == StatusFailed
}

// ParseResponse decodes body into an envelope. It returns a *ParseError when
// the body is not JSON or carries an unknown status. FAILED envelopes are
// returned as-is for the caller to classify.
func ParseResponse[T any](body []byte) (*Response[T], error) {
	var resp Response[T]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Err: err}
	}

	switch resp.Status {
	case StatusOK, StatusFailed:
		return &resp, nil
	default:
		return nil, &ParseError{Err: fmt.Errorf("%w: %q", ErrUnknownStatus, resp.Status)}
	}
}

// FailureComment extracts the comment from an error body, or "" when the body
// is not a FAILED envelope.
func FailureComment(body []byte) string {
	resp, err := ParseResponse[json.RawMessage](body)
	if err != nil || !resp.Failed() {
		return ""
	}

	return resp.Comment
}

// RawUser is a user.info result entry as sent by the API.
type RawUser struct {
	Handle       string `json:"handle"`
	Rating       *int   `json:"rating"`
	MaxRating    *int   `json:"maxRating"`
	Rank         string `json:"rank"`
	MaxRank      string `json:"maxRank"`
	TitlePhoto   string `json:"titlePhoto"`
	Avatar       string `json:"avatar"`
	Organization string `json:"organization"`
	City         string `json:"city"`
	Country      string `json:"country"`
}

// RawRatingChange is a user.rating result entry as sent by the API.
type RawRatingChange struct {
	ContestID               *int   `json:"contestId"`
	ContestName             string `json:"contestName"`
	Rank                    int    `json:"rank"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
}

// RawProblem is the problem object embedded in a submission.
type RawProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    *int     `json:"rating"`
	Tags      []string `json:"tags"`
}

// RawSubmission is a user.status result entry as sent by the API.
type RawSubmission struct {
	ID                  int64       `json:"id"`
	CreationTimeSeconds int64       `json:"creationTimeSeconds"`
	Verdict             string      `json:"verdict"`
	ProgrammingLanguage string      `json:"programmingLanguage"`
	Problem             *RawProblem `json:"problem"`
}
