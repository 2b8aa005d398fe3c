package stats

import (
	"time"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
)

// ProfileFacts are the headline numbers of a profile. Ranks and dates are
// zero when the user has no rated contests.
type ProfileFacts struct {
	Contests     int       `json:"contests"`
	BestRank     int       `json:"bestRank"`
	WorstRank    int       `json:"worstRank"`
	TotalSolved  int       `json:"totalSolved"`
	FirstContest time.Time `json:"firstContest"`
	LastContest  time.Time `json:"lastContest"`
}

// Facts summarizes a rating history and submission list.
func Facts(history []codeforces.RatingHistoryEntry, subs []codeforces.Submission) ProfileFacts {
	facts := ProfileFacts{
		Contests:    len(history),
		TotalSolved: UniqueSolvedCount(subs),
	}

	if len(history) == 0 {
		return facts
	}

	facts.BestRank = history[0].Rank
	facts.WorstRank = history[0].Rank

	for _, e := range history[1:] {
		facts.BestRank = min(facts.BestRank, e.Rank)
		facts.WorstRank = max(facts.WorstRank, e.Rank)
	}

	facts.FirstContest = history[0].UpdatedAt().UTC()
	facts.LastContest = history[len(history)-1].UpdatedAt().UTC()

	return facts
}

// Comparison is one metric shown side by side for two users.
type Comparison struct {
	Metric string `json:"metric"`
	User1  int    `json:"user1"`
	User2  int    `json:"user2"`
}

// CompareFacts returns the metrics of the comparison view in display order.
func CompareFacts(p1, p2 codeforces.UserProfile, f1, f2 ProfileFacts) []Comparison {
	return []Comparison{
		{Metric: "Current Rating", User1: p1.Rating, User2: p2.Rating},
		{Metric: "Max Rating", User1: p1.MaxRating, User2: p2.MaxRating},
		{Metric: "Problems Solved", User1: f1.TotalSolved, User2: f2.TotalSolved},
		{Metric: "Contests", User1: f1.Contests, User2: f2.Contests},
		{Metric: "Best Rank", User1: f1.BestRank, User2: f2.BestRank},
		{Metric: "Worst Rank", User1: f1.WorstRank, User2: f2.WorstRank},
	}
}

// Tier is a rating band with its display color.
type Tier struct {
	Title     string `json:"title"`
	MinRating int    `json:"minRating"`
	Color     string `json:"color"`
}

// Tiers lists the rating bands from highest to lowest.
var Tiers = []Tier{
	{Title: "legendary grandmaster", MinRating: 3000, Color: "#ff0000"},
	{Title: "international grandmaster", MinRating: 2600, Color: "#ff0000"},
	{Title: "grandmaster", MinRating: 2400, Color: "#ff0000"},
	{Title: "international master", MinRating: 2300, Color: "#ff8c00"},
	{Title: "master", MinRating: 2100, Color: "#ff8c00"},
	{Title: "candidate master", MinRating: 1900, Color: "#aa00aa"},
	{Title: "expert", MinRating: 1600, Color: "#0000ff"},
	{Title: "specialist", MinRating: 1400, Color: "#03a89e"},
	{Title: "pupil", MinRating: 1200, Color: "#008000"},
	{Title: "newbie", MinRating: 0, Color: "#808080"},
}

// RatingTier returns the band a rating falls in.
func RatingTier(rating int) Tier {
	for _, tier := range Tiers {
		if rating >= tier.MinRating {
			return tier
		}
	}

	return Tiers[len(Tiers)-1]
}
