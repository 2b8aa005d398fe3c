// Package render draws dashboard charts as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/stats"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotEnoughData is returned when a chart would have no visible range.
var ErrNotEnoughData = errors.New("not enough data to draw a chart")

// Chart dimensions and styling.
const (
	// titleFontSize sets the size of the chart title text.
	titleFontSize = 12.0
	// axisFontSize sets the size of axis labels.
	axisFontSize = 10.0
	// xAxisRotation angles date and tag labels to prevent overlap.
	xAxisRotation = 45.0
	// gridLineWidth controls the thickness of grid lines.
	gridLineWidth = 1.0
	// seriesLineWidth controls the thickness of rating lines.
	seriesLineWidth = 2.0
	// seriesDotWidth controls the size of rating points.
	seriesDotWidth = 3.0
	// ratingMargin pads the y-axis above and below the rating range.
	ratingMargin = 100.0
	// barWidth and barSpacing size each histogram bar.
	barWidth   = 30
	barSpacing = 12
	// minBarChartWidth keeps narrow histograms readable.
	minBarChartWidth = 480
	// chartHeight is shared by every chart.
	chartHeight = 400
	// padding adds space around all edges.
	padding = 24
)

var (
	user1Color = drawing.ColorFromHex("1f77b4")
	user2Color = drawing.ColorFromHex("ff7f0e")
)

// RatingChart draws one user's rating over time, coloured by their peak tier.
func RatingChart(handle string, history []codeforces.RatingHistoryEntry) (*bytes.Buffer, error) {
	times, ratings := make([]time.Time, 0, len(history)), make([]float64, 0, len(history))
	peak := 0

	for _, e := range history {
		times = append(times, e.UpdatedAt())
		ratings = append(ratings, float64(e.NewRating))
		peak = max(peak, e.NewRating)
	}

	if distinctTimes(times) < 2 {
		return nil, ErrNotEnoughData
	}

	color := tierColor(stats.RatingTier(peak))

	graph := &chart.Chart{
		Title:      handle + " rating",
		TitleStyle: titleStyle(),
		Height:     chartHeight,
		Background: backgroundStyle(),
		XAxis:      timeAxis(),
		YAxis:      ratingAxis(ratings),
		Series:     []chart.Series{timeSeries(handle, times, ratings, color)},
	}

	return renderPNG(graph)
}

// CompareRatingChart draws both users' ratings on shared axes. Points where a
// user has no update are skipped rather than interpolated.
func CompareRatingChart(handle1, handle2 string, points []stats.RatingPoint) (*bytes.Buffer, error) {
	var (
		t1, t2   []time.Time
		r1, r2   []float64
		all      []float64
		allTimes []time.Time
	)

	for _, p := range points {
		at := time.Unix(p.Time, 0).UTC()
		allTimes = append(allTimes, at)

		if p.User1 != nil {
			t1 = append(t1, at)
			r1 = append(r1, float64(*p.User1))
		}

		if p.User2 != nil {
			t2 = append(t2, at)
			r2 = append(r2, float64(*p.User2))
		}
	}

	if distinctTimes(allTimes) < 2 {
		return nil, ErrNotEnoughData
	}

	all = append(append(all, r1...), r2...)

	var series []chart.Series
	if len(t1) > 0 {
		series = append(series, timeSeries(handle1, t1, r1, user1Color))
	}

	if len(t2) > 0 {
		series = append(series, timeSeries(handle2, t2, r2, user2Color))
	}

	graph := &chart.Chart{
		Title:      handle1 + " vs " + handle2,
		TitleStyle: titleStyle(),
		Height:     chartHeight,
		Background: backgroundStyle(),
		XAxis:      timeAxis(),
		YAxis:      ratingAxis(all),
		Series:     series,
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(graph),
	}

	return renderPNG(graph)
}

// RatingHistogramChart draws solved problems per problem rating.
func RatingHistogramChart(title string, counts []stats.KeyCount[int]) (*bytes.Buffer, error) {
	values := make([]chart.Value, 0, len(counts))
	for _, kc := range counts {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%d", kc.Key),
			Value: float64(kc.Count),
			Style: chart.Style{FillColor: tierColor(stats.RatingTier(kc.Key)), StrokeColor: chart.ColorTransparent},
		})
	}

	return barChart(title, values)
}

// LabelChart draws a labelled histogram such as tags, languages or verdicts.
func LabelChart(title string, counts []stats.LabelCount) (*bytes.Buffer, error) {
	values := make([]chart.Value, 0, len(counts))
	for _, lc := range counts {
		values = append(values, chart.Value{
			Label: lc.Label,
			Value: float64(lc.Count),
			Style: chart.Style{FillColor: user1Color, StrokeColor: chart.ColorTransparent},
		})
	}

	return barChart(title, values)
}

func barChart(title string, values []chart.Value) (*bytes.Buffer, error) {
	if len(values) == 0 {
		return nil, ErrNotEnoughData
	}

	peak := 0.0
	for _, v := range values {
		peak = max(peak, v.Value)
	}

	if peak <= 0 {
		return nil, ErrNotEnoughData
	}

	graph := &chart.BarChart{
		Title:      title,
		TitleStyle: titleStyle(),
		Height:     chartHeight,
		Width:      max(minBarChartWidth, len(values)*(barWidth+barSpacing)+4*padding),
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: backgroundStyle(),
		XAxis: chart.Style{
			FontSize:            axisFontSize,
			TextRotationDegrees: xAxisRotation,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: axisFontSize},
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: values,
	}

	buf := new(bytes.Buffer)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", title, err)
	}

	return buf, nil
}

func renderPNG(graph *chart.Chart) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", graph.Title, err)
	}

	return buf, nil
}

func timeSeries(name string, times []time.Time, values []float64, color drawing.Color) chart.Series {
	return chart.TimeSeries{
		Name:    name,
		XValues: times,
		YValues: values,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: seriesLineWidth,
			DotColor:    color,
			DotWidth:    seriesDotWidth,
		},
	}
}

func titleStyle() chart.Style {
	return chart.Style{FontSize: titleFontSize}
}

func backgroundStyle() chart.Style {
	return chart.Style{
		Padding: chart.Box{Top: padding, Left: padding, Right: padding, Bottom: padding},
	}
}

func timeAxis() chart.XAxis {
	return chart.XAxis{
		Style: chart.Style{
			FontSize:            axisFontSize,
			TextRotationDegrees: xAxisRotation,
		},
		ValueFormatter: chart.TimeDateValueFormatter,
	}
}

// ratingAxis pads the rating range so a flat history still has height.
func ratingAxis(ratings []float64) chart.YAxis {
	lo, hi := slices.Min(ratings), slices.Max(ratings)

	return chart.YAxis{
		Style: chart.Style{FontSize: axisFontSize},
		GridMajorStyle: chart.Style{
			StrokeColor: chart.ColorAlternateGray,
			StrokeWidth: gridLineWidth,
		},
		Range: &chart.ContinuousRange{Min: max(0, lo-ratingMargin), Max: hi + ratingMargin},
		ValueFormatter: func(v any) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return ""
		},
	}
}

func tierColor(t stats.Tier) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(t.Color, "#"))
}

func distinctTimes(times []time.Time) int {
	seen := make(map[int64]struct{}, len(times))
	for _, t := range times {
		seen[t.Unix()] = struct{}{}
	}

	return len(seen)
}
