package codeforces

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// HandleKey returns the case-insensitive identity of a handle.
func HandleKey(handle string) string {
	return cases.Fold().String(strings.TrimSpace(handle))
}

// NormalizeUsers converts user.info entries, dropping entries without a handle.
func NormalizeUsers(raw []RawUser) []UserProfile {
	users := make([]UserProfile, 0, len(raw))
	for _, r := range raw {
		if r.Handle == "" {
			continue
		}

		users = append(users, UserProfile{
			Handle:       r.Handle,
			Rating:       derefInt(r.Rating),
			MaxRating:    derefInt(r.MaxRating),
			Rank:         r.Rank,
			MaxRank:      r.MaxRank,
			Avatar:       normalizeAvatar(r.TitlePhoto, r.Avatar),
			Organization: r.Organization,
			City:         r.City,
			Country:      r.Country,
		})
	}

	return users
}

// NormalizeUser converts the user.info result for a single handle. An empty
// result is reported as a *NotFoundError for handle.
func NormalizeUser(raw []RawUser, handle string) (UserProfile, error) {
	users := NormalizeUsers(raw)
	if len(users) == 0 {
		return UserProfile{}, &NotFoundError{Handle: handle}
	}

	key := HandleKey(handle)
	for _, u := range users {
		if HandleKey(u.Handle) == key {
			return u, nil
		}
	}

	return users[0], nil
}

// NormalizeRatingHistory converts user.rating entries into chronological
// order, dropping entries without a contest id.
func NormalizeRatingHistory(raw []RawRatingChange) []RatingHistoryEntry {
	history := make([]RatingHistoryEntry, 0, len(raw))
	for _, r := range raw {
		if r.ContestID == nil {
			continue
		}

		history = append(history, RatingHistoryEntry{
			ContestID:   *r.ContestID,
			ContestName: r.ContestName,
			Rank:        r.Rank,
			OldRating:   r.OldRating,
			NewRating:   r.NewRating,
			UpdateTime:  r.RatingUpdateTimeSeconds,
		})
	}

	slices.SortStableFunc(history, func(a, b RatingHistoryEntry) int {
		switch {
		case a.UpdateTime < b.UpdateTime:
			return -1
		case a.UpdateTime > b.UpdateTime:
			return 1
		default:
			return 0
		}
	})

	return history
}

// NormalizeSubmissions converts user.status entries, keeping input order.
// Entries without a problem are dropped. A missing verdict means the
// submission is still being judged.
func NormalizeSubmissions(raw []RawSubmission) []Submission {
	subs := make([]Submission, 0, len(raw))
	for _, r := range raw {
		if r.Problem == nil || r.Problem.Index == "" {
			continue
		}

		verdict := Verdict(r.Verdict)
		if verdict == "" {
			verdict = VerdictTesting
		}

		tags := make([]string, len(r.Problem.Tags))
		copy(tags, r.Problem.Tags)

		subs = append(subs, Submission{
			ID:           r.ID,
			CreationTime: r.CreationTimeSeconds,
			Verdict:      verdict,
			Language:     r.ProgrammingLanguage,
			Problem: Problem{
				ContestID: r.Problem.ContestID,
				Index:     r.Problem.Index,
				Name:      r.Problem.Name,
				Rating:    derefInt(r.Problem.Rating),
				Tags:      tags,
			},
		})
	}

	return subs
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}

	return *v
}

// normalizeAvatar prefers the full-size photo and fixes protocol-relative URLs.
func normalizeAvatar(titlePhoto, avatar string) string {
	url := titlePhoto
	if url == "" {
		url = avatar
	}

	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}

	return url
}
