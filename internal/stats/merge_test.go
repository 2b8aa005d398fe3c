package stats_test

import (
	"math/rand/v2"
	"testing"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(contest, rank, oldRating, newRating int, ts int64) codeforces.RatingHistoryEntry {
	return codeforces.RatingHistoryEntry{
		ContestID:   contest,
		ContestName: "Round",
		Rank:        rank,
		OldRating:   oldRating,
		NewRating:   newRating,
		UpdateTime:  ts,
	}
}

func TestMergeByKey(t *testing.T) {
	t.Parallel()

	a := []stats.KeyCount[int]{{Key: 800, Count: 3}, {Key: 1200, Count: 1}}
	b := []stats.KeyCount[int]{{Key: 1000, Count: 2}, {Key: 800, Count: 1}}

	assert.Equal(t, []stats.MergedCount[int]{
		{Key: 800, User1: 3, User2: 1},
		{Key: 1000, User1: 0, User2: 2},
		{Key: 1200, User1: 1, User2: 0},
	}, stats.MergeByKey(a, b))
	assert.Empty(t, stats.MergeByKey[int](nil, nil))
}

func randomHistogram(rng *rand.Rand) []stats.KeyCount[int] {
	seen := map[int]bool{}

	var out []stats.KeyCount[int]
	for range rng.IntN(10) {
		key := 800 + 100*rng.IntN(12)
		if seen[key] {
			continue
		}

		seen[key] = true
		out = append(out, stats.KeyCount[int]{Key: key, Count: rng.IntN(20) + 1})
	}

	return out
}

func TestMergeByKeyCommutes(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for range 100 {
		a, b := randomHistogram(rng), randomHistogram(rng)

		ab := stats.MergeByKey(a, b)
		ba := stats.MergeByKey(b, a)
		require.Len(t, ba, len(ab))

		keys := map[int]bool{}
		for _, kc := range a {
			keys[kc.Key] = true
		}
		for _, kc := range b {
			keys[kc.Key] = true
		}
		assert.Len(t, ab, len(keys))

		for i := range ab {
			assert.Equal(t, ab[i].Key, ba[i].Key)
			assert.Equal(t, ab[i].User1, ba[i].User2)
			assert.Equal(t, ab[i].User2, ba[i].User1)
			if i > 0 {
				assert.Less(t, ab[i-1].Key, ab[i].Key)
			}
		}
	}
}

func TestMergeTags(t *testing.T) {
	t.Parallel()

	t1 := map[string]int{"dp": 5, "math": 1}
	t2 := map[string]int{"math": 2, "graphs": 4, "dp": 1}

	merged := stats.MergeTags(t1, t2)
	assert.Equal(t, []stats.MergedCount[string]{
		{Key: "dp", User1: 5, User2: 1},
		{Key: "graphs", User1: 0, User2: 4},
		{Key: "math", User1: 1, User2: 2},
	}, merged)

	union := map[string]bool{}
	for tag := range t1 {
		union[tag] = true
	}
	for tag := range t2 {
		union[tag] = true
	}
	assert.Len(t, merged, len(union))

	for _, m := range merged {
		assert.Equal(t, t1[m.Key]+t2[m.Key], m.Total())
	}

	assert.Empty(t, stats.MergeTags(nil, nil))
}

func TestDuelsScenario(t *testing.T) {
	t.Parallel()

	h1 := []codeforces.RatingHistoryEntry{entry(400, 3, 1500, 1550, 100), entry(500, 10, 1550, 1600, 200)}
	h2 := []codeforces.RatingHistoryEntry{entry(500, 50, 1400, 1380, 200), entry(600, 1, 1380, 1500, 300)}

	summary := stats.Duels(h1, h2)
	require.Len(t, summary.Contests, 1)
	assert.Equal(t, 1, summary.User1Wins)
	assert.Equal(t, 0, summary.User2Wins)
	assert.Equal(t, 0, summary.Draws)

	duel := summary.Contests[0]
	assert.Equal(t, 500, duel.ContestID)
	assert.Equal(t, stats.OutcomeUser1, duel.Winner)
	assert.Equal(t, 50, duel.User1.Delta)
	assert.Equal(t, -20, duel.User2.Delta)
}

func TestDuelsOrderingAndDraws(t *testing.T) {
	t.Parallel()

	h1 := []codeforces.RatingHistoryEntry{
		entry(1, 5, 0, 10, 100),
		entry(2, 7, 10, 20, 200),
		entry(3, 9, 20, 30, 300),
	}
	h2 := []codeforces.RatingHistoryEntry{
		entry(1, 5, 0, 5, 100),
		entry(2, 3, 5, 15, 200),
		entry(3, 12, 15, 10, 300),
	}

	summary := stats.Duels(h1, h2)
	require.Len(t, summary.Contests, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{
		summary.Contests[0].ContestID,
		summary.Contests[1].ContestID,
		summary.Contests[2].ContestID,
	})
	assert.Equal(t, 1, summary.User1Wins)
	assert.Equal(t, 1, summary.User2Wins)
	assert.Equal(t, 1, summary.Draws)
	assert.Equal(t, "draw", summary.Contests[2].Winner.String())

	empty := stats.Duels(nil, h2)
	assert.Empty(t, empty.Contests)
	assert.Zero(t, empty.User1Wins+empty.User2Wins+empty.Draws)
}

func TestMergeRatingHistories(t *testing.T) {
	t.Parallel()

	h1 := []codeforces.RatingHistoryEntry{
		{ContestID: 1, ContestName: "Round 1", NewRating: 1500, UpdateTime: 100},
		{ContestID: 3, ContestName: "Round 3", NewRating: 1600, UpdateTime: 300},
	}
	h2 := []codeforces.RatingHistoryEntry{
		{ContestID: 2, ContestName: "Round 2", NewRating: 1400, UpdateTime: 200},
		{ContestID: 3, ContestName: "Round 3 (Div. 2)", NewRating: 1450, UpdateTime: 300},
	}

	points := stats.MergeRatingHistories(h1, h2)
	require.Len(t, points, 3)

	assert.Equal(t, int64(100), points[0].Time)
	require.NotNil(t, points[0].User1)
	assert.Equal(t, 1500, *points[0].User1)
	assert.Nil(t, points[0].User2)

	assert.Nil(t, points[1].User1)
	require.NotNil(t, points[1].User2)
	assert.Equal(t, "Round 2", points[1].ContestName)

	require.NotNil(t, points[2].User1)
	require.NotNil(t, points[2].User2)
	assert.Equal(t, 1600, *points[2].User1)
	assert.Equal(t, 1450, *points[2].User2)
	assert.Equal(t, "Round 3", points[2].ContestName)

	assert.Empty(t, stats.MergeRatingHistories(nil, nil))
}
