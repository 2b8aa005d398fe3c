package dashboard

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/stats"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ProfileReport is everything the single-profile view shows.
type ProfileReport struct {
	Profile         codeforces.UserProfile          `json:"profile"`
	Tier            stats.Tier                      `json:"tier"`
	Facts           stats.ProfileFacts              `json:"facts"`
	RatingHistogram []stats.KeyCount[int]           `json:"ratingHistogram"`
	Tags            []stats.LabelCount              `json:"tags"`
	Languages       []stats.LabelCount              `json:"languages"`
	Verdicts        []stats.LabelCount              `json:"verdicts"`
	Activity        []stats.KeyCount[string]        `json:"activity"`
	LongestStreak   int                             `json:"longestStreak"`
	CurrentStreak   int                             `json:"currentStreak"`
	History         []codeforces.RatingHistoryEntry `json:"history"`
}

// CompareReport is everything the comparison view shows.
type CompareReport struct {
	User1         codeforces.UserProfile      `json:"user1"`
	User2         codeforces.UserProfile      `json:"user2"`
	Comparison    []stats.Comparison          `json:"comparison"`
	Ratings       []stats.MergedCount[int]    `json:"ratings"`
	Tags          []stats.MergedCount[string] `json:"tags"`
	Duels         stats.DuelSummary           `json:"duels"`
	RatingHistory []stats.RatingPoint         `json:"ratingHistory"`
}

// Write renders report to w in the given format.
func Write(w io.Writer, format string, report any) error {
	switch format {
	case FormatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	case FormatText, "":
		switch r := report.(type) {
		case *ProfileReport:
			return r.WriteText(w)
		case *CompareReport:
			return r.WriteText(w)
		default:
			return fmt.Errorf("%w: %T has no text form", ErrUnknownFormat, report)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteText renders the profile as plain text.
func (r *ProfileReport) WriteText(w io.Writer) error {
	var b strings.Builder

	p := r.Profile
	fmt.Fprintf(&b, "%s (%s)\n", p.Handle, orDash(p.Rank))
	fmt.Fprintf(&b, "Rating: %d (max %d, %s)\n", p.Rating, p.MaxRating, orDash(p.MaxRank))

	if place := joinNonEmpty(p.City, p.Country); place != "" {
		fmt.Fprintf(&b, "From: %s\n", place)
	}

	if p.Organization != "" {
		fmt.Fprintf(&b, "Organization: %s\n", p.Organization)
	}

	f := r.Facts
	fmt.Fprintf(&b, "\nContests: %d  Best rank: %s  Worst rank: %s\n", f.Contests, rankOrDash(f.BestRank), rankOrDash(f.WorstRank))
	fmt.Fprintf(&b, "First contest: %s  Last contest: %s\n", dateOrDash(f.FirstContest), dateOrDash(f.LastContest))
	fmt.Fprintf(&b, "Solved: %d  Longest streak: %d  Current streak: %d\n", f.TotalSolved, r.LongestStreak, r.CurrentStreak)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	writeSection(tw, "Solved by rating", func() {
		for _, kc := range r.RatingHistogram {
			fmt.Fprintf(tw, "  %d\t%d\n", kc.Key, kc.Count)
		}
	})
	writeLabelSection(tw, "Tags", r.Tags)
	writeLabelSection(tw, "Languages", r.Languages)
	writeLabelSection(tw, "Verdicts", r.Verdicts)

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// WriteText renders the comparison as plain text.
func (r *CompareReport) WriteText(w io.Writer) error {
	var b strings.Builder

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	h1, h2 := r.User1.Handle, r.User2.Handle

	fmt.Fprintf(tw, "\t%s\t%s\n", h1, h2)
	for _, c := range r.Comparison {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Metric, c.User1, c.User2)
	}

	writeSection(tw, "Solved by rating", func() {
		for _, m := range r.Ratings {
			fmt.Fprintf(tw, "  %d\t%d\t%d\n", m.Key, m.User1, m.User2)
		}
	})
	writeSection(tw, "Tags", func() {
		for _, m := range r.Tags {
			fmt.Fprintf(tw, "  %s\t%d\t%d\n", m.Key, m.User1, m.User2)
		}
	})

	d := r.Duels
	writeSection(tw, fmt.Sprintf("Contest duels (%s %d, %s %d, draws %d)", h1, d.User1Wins, h2, d.User2Wins, d.Draws), func() {
		for _, duel := range d.Contests {
			winner := "draw"
			switch duel.Winner {
			case stats.OutcomeUser1:
				winner = h1
			case stats.OutcomeUser2:
				winner = h2
			}

			fmt.Fprintf(tw, "  %s\t#%d (%+d)\t#%d (%+d)\t%s\n",
				duel.ContestName, duel.User1.Rank, duel.User1.Delta, duel.User2.Rank, duel.User2.Delta, winner)
		}
	})

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func writeSection(w io.Writer, title string, body func()) {
	fmt.Fprintf(w, "\n%s\n", title)
	body()
}

func writeLabelSection(w io.Writer, title string, counts []stats.LabelCount) {
	writeSection(w, title, func() {
		for _, lc := range counts {
			fmt.Fprintf(w, "  %s\t%d\n", lc.Label, lc.Count)
		}
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func rankOrDash(rank int) string {
	if rank <= 0 {
		return "-"
	}

	return strconv.Itoa(rank)
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(stats.DateLayout)
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, ", ")
}
