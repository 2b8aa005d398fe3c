package codeforces

import (
	"strconv"
	"time"
)

// Verdict is the judged outcome of a submission. Values the API adds later
// are kept verbatim.
type Verdict string

const (
	VerdictOK                    Verdict = "OK"
	VerdictWrongAnswer           Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded     Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictRuntimeError          Verdict = "RUNTIME_ERROR"
	VerdictMemoryLimitExceeded   Verdict = "MEMORY_LIMIT_EXCEEDED"
	VerdictCompilationError      Verdict = "COMPILATION_ERROR"
	VerdictIdlenessLimitExceeded Verdict = "IDLENESS_LIMIT_EXCEEDED"
	VerdictPartial               Verdict = "PARTIAL"
	VerdictPresentationError     Verdict = "PRESENTATION_ERROR"
	VerdictSkipped               Verdict = "SKIPPED"
	VerdictChallenged            Verdict = "CHALLENGED"
	// VerdictTesting is reported while a submission is still being judged.
	VerdictTesting Verdict = "TESTING"
)

// UserProfile is a normalized user.info record.
type UserProfile struct {
	Handle       string `json:"handle"`
	Rating       int    `json:"rating"`
	MaxRating    int    `json:"maxRating"`
	Rank         string `json:"rank"`
	MaxRank      string `json:"maxRank"`
	Avatar       string `json:"avatar"`
	Organization string `json:"organization,omitempty"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
}

// RatingHistoryEntry is one rated contest from user.rating.
type RatingHistoryEntry struct {
	ContestID   int    `json:"contestId"`
	ContestName string `json:"contestName"`
	Rank        int    `json:"rank"`
	OldRating   int    `json:"oldRating"`
	NewRating   int    `json:"newRating"`
	UpdateTime  int64  `json:"ratingUpdateTimeSeconds"`
}

// Delta returns the rating change caused by the contest.
func (e RatingHistoryEntry) Delta() int {
	return e.NewRating - e.OldRating
}

// UpdatedAt returns the rating update instant.
func (e RatingHistoryEntry) UpdatedAt() time.Time {
	return time.Unix(e.UpdateTime, 0)
}

// ProblemID identifies a problem across submissions.
type ProblemID struct {
	ContestID int
	Index     string
}

func (p ProblemID) String() string {
	return strconv.Itoa(p.ContestID) + "-" + p.Index
}

// Problem is the problem a submission was made to. Rating is zero when the
// problem has no difficulty assigned.
type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name,omitempty"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags"`
}

// ID returns the problem's identity.
func (p Problem) ID() ProblemID {
	return ProblemID{ContestID: p.ContestID, Index: p.Index}
}

// Submission is a normalized user.status record.
type Submission struct {
	ID           int64   `json:"id"`
	CreationTime int64   `json:"creationTimeSeconds"`
	Verdict      Verdict `json:"verdict"`
	Language     string  `json:"programmingLanguage"`
	Problem      Problem `json:"problem"`
}

// CreatedAt returns the submission instant.
func (s Submission) CreatedAt() time.Time {
	return time.Unix(s.CreationTime, 0)
}

// Accepted reports whether the submission was judged OK.
func (s Submission) Accepted() bool {
	return s.Verdict == VerdictOK
}
