package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shashank2401/cf-visualizer/internal/render"
	"github.com/shashank2401/cf-visualizer/internal/setup"
	"github.com/shashank2401/cf-visualizer/internal/stats"
	"go.uber.org/zap"
)

type chartFile struct {
	name   string
	render func() (*bytes.Buffer, error)
}

func writeProfileCharts(ctx context.Context, app *setup.App, handle, outDir string) error {
	report, err := app.Dashboard.Profile(ctx, handle)
	if err != nil {
		return err
	}

	h := report.Profile.Handle

	return writeCharts(app, outDir, []chartFile{
		{h + "-rating.png", func() (*bytes.Buffer, error) { return render.RatingChart(h, report.History) }},
		{h + "-problems.png", func() (*bytes.Buffer, error) {
			return render.RatingHistogramChart(h+" solved by rating", report.RatingHistogram)
		}},
		{h + "-tags.png", func() (*bytes.Buffer, error) { return render.LabelChart(h+" tags", report.Tags) }},
		{h + "-languages.png", func() (*bytes.Buffer, error) { return render.LabelChart(h+" languages", report.Languages) }},
		{h + "-verdicts.png", func() (*bytes.Buffer, error) { return render.LabelChart(h+" verdicts", report.Verdicts) }},
	})
}

func writeCompareCharts(ctx context.Context, app *setup.App, handle1, handle2, outDir string) error {
	report, err := app.Dashboard.Compare(ctx, handle1, handle2)
	if err != nil {
		return err
	}

	h1, h2 := report.User1.Handle, report.User2.Handle

	split := func(merged []stats.MergedCount[int], second bool) []stats.KeyCount[int] {
		out := make([]stats.KeyCount[int], 0, len(merged))
		for _, m := range merged {
			count := m.User1
			if second {
				count = m.User2
			}

			out = append(out, stats.KeyCount[int]{Key: m.Key, Count: count})
		}

		return out
	}

	return writeCharts(app, outDir, []chartFile{
		{h1 + "-vs-" + h2 + "-rating.png", func() (*bytes.Buffer, error) {
			return render.CompareRatingChart(h1, h2, report.RatingHistory)
		}},
		{h1 + "-vs-" + h2 + "-" + h1 + "-problems.png", func() (*bytes.Buffer, error) {
			return render.RatingHistogramChart(h1+" solved by rating", split(report.Ratings, false))
		}},
		{h1 + "-vs-" + h2 + "-" + h2 + "-problems.png", func() (*bytes.Buffer, error) {
			return render.RatingHistogramChart(h2+" solved by rating", split(report.Ratings, true))
		}},
	})
}

// writeCharts renders each chart into outDir. Charts without enough data
// are skipped.
func writeCharts(app *setup.App, outDir string, charts []chartFile) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, cf := range charts {
		buf, err := cf.render()
		if errors.Is(err, render.ErrNotEnoughData) {
			app.Logger.Info("Skipping chart without data", zap.String("chart", cf.name))
			continue
		}

		if err != nil {
			return err
		}

		path := filepath.Join(outDir, cf.name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		fmt.Println(path)
	}

	return nil
}
