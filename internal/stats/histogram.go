// Package stats derives dashboard aggregates from fetched records. Every
// function is pure: inputs are never mutated and empty input yields an
// empty result.
package stats

import (
	"cmp"
	"slices"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
)

// Display labels used by the verdict histogram and top-N bucketing.
const (
	LabelOther    = "Other"
	LabelAccepted = "ACCEPTED"
	LabelHacked   = "HACKED"
)

// KeyCount is one bar of an ordered histogram.
type KeyCount[K cmp.Ordered] struct {
	Key   K   `json:"key"`
	Count int `json:"count"`
}

// LabelCount is one slice of a labelled chart.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// solved returns the first accepted submission of every solved problem, in
// the order the problems were first seen.
func solved(subs []codeforces.Submission) []codeforces.Submission {
	seen := make(map[codeforces.ProblemID]struct{})
	firsts := make([]codeforces.Submission, 0)

	for _, sub := range subs {
		if !sub.Accepted() {
			continue
		}

		id := sub.Problem.ID()
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		firsts = append(firsts, sub)
	}

	return firsts
}

// UniqueSolvedCount returns the number of distinct problems with an OK verdict.
func UniqueSolvedCount(subs []codeforces.Submission) int {
	return len(solved(subs))
}

// RatingHistogram counts solved problems per difficulty rating, ascending.
// Unrated problems are skipped.
func RatingHistogram(subs []codeforces.Submission) []KeyCount[int] {
	counts := make(map[int]int)
	for _, sub := range solved(subs) {
		if sub.Problem.Rating > 0 {
			counts[sub.Problem.Rating]++
		}
	}

	return sortedByKey(counts)
}

// TagCounts credits every tag of every solved problem once.
func TagCounts(subs []codeforces.Submission) map[string]int {
	counts := make(map[string]int)
	for _, sub := range solved(subs) {
		for _, tag := range sub.Problem.Tags {
			counts[tag]++
		}
	}

	return counts
}

// TagHistogram returns the topN tags plus an Other bucket.
func TagHistogram(subs []codeforces.Submission, topN int) []LabelCount {
	return TopN(TagCounts(subs), topN)
}

// LanguageCounts credits each solved problem to the language of its
// first-seen accepted submission in input order.
func LanguageCounts(subs []codeforces.Submission) map[string]int {
	counts := make(map[string]int)
	for _, sub := range solved(subs) {
		if sub.Language != "" {
			counts[sub.Language]++
		}
	}

	return counts
}

// LanguageHistogram returns the topN languages plus an Other bucket.
func LanguageHistogram(subs []codeforces.Submission, topN int) []LabelCount {
	return TopN(LanguageCounts(subs), topN)
}

// VerdictHistogram counts every submission by display verdict, largest first.
func VerdictHistogram(subs []codeforces.Submission) []LabelCount {
	counts := make(map[string]int)
	for _, sub := range subs {
		counts[VerdictLabel(sub.Verdict)]++
	}

	return sortedByCount(counts)
}

// VerdictLabel returns the display label of a verdict.
func VerdictLabel(v codeforces.Verdict) string {
	switch v {
	case codeforces.VerdictOK:
		return LabelAccepted
	case codeforces.VerdictChallenged:
		return LabelHacked
	default:
		return string(v)
	}
}

// TopN keeps the n largest entries and folds the remainder into an Other
// bucket. Ties are broken by label. With n <= 0 only the Other bucket is
// returned, and only when the total is positive.
func TopN(counts map[string]int, n int) []LabelCount {
	sorted := sortedByCount(counts)
	if n < 0 {
		n = 0
	}

	if n >= len(sorted) {
		return sorted
	}

	other := 0
	for _, lc := range sorted[n:] {
		other += lc.Count
	}

	top := slices.Clone(sorted[:n])
	if other > 0 {
		top = append(top, LabelCount{Label: LabelOther, Count: other})
	}

	return top
}

func sortedByCount(counts map[string]int) []LabelCount {
	out := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, LabelCount{Label: label, Count: count})
	}

	slices.SortFunc(out, func(a, b LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Label, b.Label)
	})

	return out
}

func sortedByKey[K cmp.Ordered](counts map[K]int) []KeyCount[K] {
	out := make([]KeyCount[K], 0, len(counts))
	for key, count := range counts {
		out = append(out, KeyCount[K]{Key: key, Count: count})
	}

	slices.SortFunc(out, func(a, b KeyCount[K]) int {
		return cmp.Compare(a.Key, b.Key)
	})

	return out
}
