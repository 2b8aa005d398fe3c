package stats

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
)

// MergedCount pairs two users' counts for one key.
type MergedCount[K cmp.Ordered] struct {
	Key   K   `json:"key"`
	User1 int `json:"user1"`
	User2 int `json:"user2"`
}

// Total returns the combined count.
func (m MergedCount[K]) Total() int {
	return m.User1 + m.User2
}

// MergeByKey unions two histograms into one ascending sequence. Keys
// missing on one side count as zero. Duplicate keys within one side are summed.
func MergeByKey[K cmp.Ordered](a, b []KeyCount[K]) []MergedCount[K] {
	merged := make(map[K]*MergedCount[K])

	entry := func(key K) *MergedCount[K] {
		m, ok := merged[key]
		if !ok {
			m = &MergedCount[K]{Key: key}
			merged[key] = m
		}

		return m
	}

	for _, kc := range a {
		entry(kc.Key).User1 += kc.Count
	}

	for _, kc := range b {
		entry(kc.Key).User2 += kc.Count
	}

	out := make([]MergedCount[K], 0, len(merged))
	for _, m := range merged {
		out = append(out, *m)
	}

	slices.SortFunc(out, func(x, y MergedCount[K]) int {
		return cmp.Compare(x.Key, y.Key)
	})

	return out
}

// MergeTags unions two tag maps, largest combined count first. Ties are
// broken by tag name.
func MergeTags(a, b map[string]int) []MergedCount[string] {
	out := make([]MergedCount[string], 0, len(a)+len(b))
	for tag, count := range a {
		out = append(out, MergedCount[string]{Key: tag, User1: count, User2: b[tag]})
	}

	for tag, count := range b {
		if _, ok := a[tag]; !ok {
			out = append(out, MergedCount[string]{Key: tag, User2: count})
		}
	}

	slices.SortFunc(out, func(x, y MergedCount[string]) int {
		if c := cmp.Compare(y.Total(), x.Total()); c != 0 {
			return c
		}

		return cmp.Compare(x.Key, y.Key)
	})

	return out
}

// Outcome is the result of one shared contest.
type Outcome int

const (
	OutcomeDraw Outcome = iota
	OutcomeUser1
	OutcomeUser2
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUser1:
		return "user1"
	case OutcomeUser2:
		return "user2"
	default:
		return "draw"
	}
}

// DuelSide is one user's result in a shared contest.
type DuelSide struct {
	Rank      int `json:"rank"`
	Delta     int `json:"delta"`
	NewRating int `json:"newRating"`
}

// Duel is a contest both users took part in.
type Duel struct {
	ContestID   int      `json:"contestId"`
	ContestName string   `json:"contestName"`
	Time        int64    `json:"time"`
	User1       DuelSide `json:"user1"`
	User2       DuelSide `json:"user2"`
	Winner      Outcome  `json:"winner"`
}

// DuelSummary is the head-to-head record of two users.
type DuelSummary struct {
	Contests  []Duel `json:"contests"`
	User1Wins int    `json:"user1Wins"`
	User2Wins int    `json:"user2Wins"`
	Draws     int    `json:"draws"`
}

// Duels intersects two rating histories by contest. The lower rank wins.
// Contests are ordered most recent first using the first user's update time.
func Duels(h1, h2 []codeforces.RatingHistoryEntry) DuelSummary {
	byContest := make(map[int]codeforces.RatingHistoryEntry, len(h2))
	for _, e := range h2 {
		byContest[e.ContestID] = e
	}

	firsts := make(map[int]codeforces.RatingHistoryEntry, len(h1))
	for _, e := range h1 {
		firsts[e.ContestID] = e
	}

	summary := DuelSummary{Contests: make([]Duel, 0)}

	for id, e1 := range firsts {
		e2, ok := byContest[id]
		if !ok {
			continue
		}

		name := e1.ContestName
		if name == "" {
			name = fmt.Sprintf("Contest %d", id)
		}

		duel := Duel{
			ContestID:   id,
			ContestName: name,
			Time:        e1.UpdateTime,
			User1:       DuelSide{Rank: e1.Rank, Delta: e1.Delta(), NewRating: e1.NewRating},
			User2:       DuelSide{Rank: e2.Rank, Delta: e2.Delta(), NewRating: e2.NewRating},
		}

		switch {
		case e1.Rank < e2.Rank:
			duel.Winner = OutcomeUser1
			summary.User1Wins++
		case e2.Rank < e1.Rank:
			duel.Winner = OutcomeUser2
			summary.User2Wins++
		default:
			duel.Winner = OutcomeDraw
			summary.Draws++
		}

		summary.Contests = append(summary.Contests, duel)
	}

	slices.SortFunc(summary.Contests, func(a, b Duel) int {
		if c := cmp.Compare(b.Time, a.Time); c != 0 {
			return c
		}

		return cmp.Compare(b.ContestID, a.ContestID)
	})

	return summary
}

// RatingPoint is one timestamp of a two-user rating chart. A nil rating
// means that user has no update at this exact time.
type RatingPoint struct {
	Time        int64  `json:"time"`
	ContestName string `json:"contestName"`
	User1       *int   `json:"user1,omitempty"`
	User2       *int   `json:"user2,omitempty"`
}

// MergeRatingHistories unions both users' update times, ascending, without
// interpolating missing values.
func MergeRatingHistories(h1, h2 []codeforces.RatingHistoryEntry) []RatingPoint {
	points := make(map[int64]*RatingPoint)

	point := func(ts int64) *RatingPoint {
		p, ok := points[ts]
		if !ok {
			p = &RatingPoint{Time: ts}
			points[ts] = p
		}

		return p
	}

	for _, e := range h1 {
		rating := e.NewRating
		p := point(e.UpdateTime)
		p.User1 = &rating
		p.ContestName = e.ContestName
	}

	for _, e := range h2 {
		rating := e.NewRating
		p := point(e.UpdateTime)
		p.User2 = &rating

		if p.ContestName == "" {
			p.ContestName = e.ContestName
		}
	}

	out := make([]RatingPoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}

	slices.SortFunc(out, func(a, b RatingPoint) int {
		return cmp.Compare(a.Time, b.Time)
	})

	return out
}
