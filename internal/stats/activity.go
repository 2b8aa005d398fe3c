package stats

import (
	"fmt"
	"slices"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
)

// DateLayout is the calendar-date format of activity keys.
const DateLayout = time.DateOnly

// DefaultOffsetMinutes is the platform's canonical UTC offset (UTC+5:30).
const DefaultOffsetMinutes = 330

// Location returns a fixed zone for an offset from UTC in minutes.
func Location(offsetMinutes int) *time.Location {
	sign := '+'

	abs := offsetMinutes
	if abs < 0 {
		sign = '-'
		abs = -abs
	}

	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/60, abs%60)

	return time.FixedZone(name, offsetMinutes*60)
}

// DailyActivity counts every submission per calendar date in loc.
func DailyActivity(subs []codeforces.Submission, loc *time.Location) map[string]int {
	counts := make(map[string]int)
	for _, sub := range subs {
		counts[sub.CreatedAt().In(loc).Format(DateLayout)]++
	}

	return counts
}

// ActivitySeries returns DailyActivity as a date-ascending series.
func ActivitySeries(subs []codeforces.Submission, loc *time.Location) []KeyCount[string] {
	return sortedByKey(DailyActivity(subs, loc))
}

// activeDays returns the distinct calendar days in loc with any submission,
// ascending, as day numbers counted from the Unix epoch in that zone.
func activeDays(subs []codeforces.Submission, loc *time.Location) []int64 {
	seen := make(map[int64]struct{})
	days := make([]int64, 0)

	for _, sub := range subs {
		day := dayNumber(sub.CreatedAt(), loc)
		if _, ok := seen[day]; ok {
			continue
		}

		seen[day] = struct{}{}
		days = append(days, day)
	}

	slices.Sort(days)

	return days
}

func dayNumber(t time.Time, loc *time.Location) int64 {
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	return midnight.Unix() / 86400
}

// LongestStreak returns the longest run of consecutive active days in loc.
func LongestStreak(subs []codeforces.Submission, loc *time.Location) int {
	days := activeDays(subs, loc)
	if len(days) == 0 {
		return 0
	}

	longest, current := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			current++
			longest = max(longest, current)
		} else {
			current = 1
		}
	}

	return longest
}

// CurrentStreak counts consecutive active days ending on now's date in loc.
// It is zero when now's date has no activity.
func CurrentStreak(subs []codeforces.Submission, now time.Time, loc *time.Location) int {
	days := activeDays(subs, loc)
	if len(days) == 0 {
		return 0
	}

	active := make(map[int64]struct{}, len(days))
	for _, day := range days {
		active[day] = struct{}{}
	}

	streak := 0
	for today := dayNumber(now, loc); ; today-- {
		if _, ok := active[today]; !ok {
			break
		}

		streak++
	}

	return streak
}
