package render_test

import (
	"bytes"
	"testing"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/render"
	"github.com/shashank2401/cf-visualizer/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func history() []codeforces.RatingHistoryEntry {
	return []codeforces.RatingHistoryEntry{
		{ContestID: 1, ContestName: "Round 1", Rank: 500, OldRating: 0, NewRating: 1200, UpdateTime: 1_600_000_000},
		{ContestID: 2, ContestName: "Round 2", Rank: 80, OldRating: 1200, NewRating: 1450, UpdateTime: 1_605_000_000},
		{ContestID: 3, ContestName: "Round 3", Rank: 900, OldRating: 1450, NewRating: 1390, UpdateTime: 1_610_000_000},
	}
}

func TestRatingChart(t *testing.T) {
	t.Parallel()

	buf, err := render.RatingChart("alice", history())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngHeader))

	_, err = render.RatingChart("alice", history()[:1])
	require.ErrorIs(t, err, render.ErrNotEnoughData)

	_, err = render.RatingChart("alice", nil)
	require.ErrorIs(t, err, render.ErrNotEnoughData)
}

func TestRatingChartFlatHistory(t *testing.T) {
	t.Parallel()

	flat := history()
	for i := range flat {
		flat[i].NewRating = 1500
	}

	buf, err := render.RatingChart("alice", flat)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngHeader))
}

func TestCompareRatingChart(t *testing.T) {
	t.Parallel()

	other := []codeforces.RatingHistoryEntry{
		{ContestID: 2, ContestName: "Round 2", Rank: 40, OldRating: 1500, NewRating: 1600, UpdateTime: 1_605_000_000},
	}

	buf, err := render.CompareRatingChart("alice", "bob", stats.MergeRatingHistories(history(), other))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngHeader))

	_, err = render.CompareRatingChart("alice", "bob", nil)
	require.ErrorIs(t, err, render.ErrNotEnoughData)
}

func TestBarCharts(t *testing.T) {
	t.Parallel()

	buf, err := render.RatingHistogramChart("Solved by rating", []stats.KeyCount[int]{
		{Key: 800, Count: 12}, {Key: 1200, Count: 5}, {Key: 1900, Count: 1},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngHeader))

	buf, err = render.LabelChart("Tags", []stats.LabelCount{
		{Label: "math", Count: 9}, {Label: "greedy", Count: 4}, {Label: stats.LabelOther, Count: 2},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngHeader))

	_, err = render.LabelChart("Tags", nil)
	require.ErrorIs(t, err, render.ErrNotEnoughData)

	_, err = render.LabelChart("Tags", []stats.LabelCount{{Label: "math", Count: 0}})
	require.ErrorIs(t, err, render.ErrNotEnoughData)
}
