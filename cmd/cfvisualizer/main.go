package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shashank2401/cf-visualizer/internal/dashboard"
	"github.com/shashank2401/cf-visualizer/internal/setup"
	"github.com/urfave/cli/v3"
)

const (
	// LogDir specifies where log files are stored.
	LogDir = "logs/cfvisualizer_logs"

	// ChartDir is the default output directory for rendered charts.
	ChartDir = "charts"
)

var ErrUsage = errors.New("wrong number of arguments")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "cfvisualizer",
		Usage: "Visualize and compare Codeforces profiles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.toml (searches default locations when empty)",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Value: LogDir,
				Usage: "Base directory for log sessions",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   dashboard.FormatText,
				Usage:   "Output format (text or json)",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Named buckets in tag and language histograms (0 uses the config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "profile",
				Usage:     "Show one user's dashboard",
				ArgsUsage: "<handle>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("%w: profile takes one handle", ErrUsage)
					}

					return withApp(ctx, c, func(ctx context.Context, app *setup.App) error {
						report, err := app.Dashboard.Profile(ctx, c.Args().First())
						if err != nil {
							return err
						}

						return dashboard.Write(os.Stdout, c.String("format"), report)
					})
				},
			},
			{
				Name:      "compare",
				Usage:     "Compare two users side by side",
				ArgsUsage: "<handle1> <handle2>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 2 {
						return fmt.Errorf("%w: compare takes two handles", ErrUsage)
					}

					return withApp(ctx, c, func(ctx context.Context, app *setup.App) error {
						report, err := app.Dashboard.Compare(ctx, c.Args().Get(0), c.Args().Get(1))
						if err != nil {
							return err
						}

						return dashboard.Write(os.Stdout, c.String("format"), report)
					})
				},
			},
			{
				Name:      "chart",
				Usage:     "Render dashboard charts as PNG files",
				ArgsUsage: "<handle> [handle2]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   ChartDir,
						Usage:   "Output directory for chart files",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					n := c.Args().Len()
					if n < 1 || n > 2 {
						return fmt.Errorf("%w: chart takes one or two handles", ErrUsage)
					}

					return withApp(ctx, c, func(ctx context.Context, app *setup.App) error {
						if n == 1 {
							return writeProfileCharts(ctx, app, c.Args().First(), c.String("output"))
						}

						return writeCompareCharts(ctx, app, c.Args().Get(0), c.Args().Get(1), c.String("output"))
					})
				},
			},
			{
				Name:  "interactive",
				Usage: "Read handles from stdin and print a report for each line",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, c, func(ctx context.Context, app *setup.App) error {
						return runInteractive(ctx, app, os.Stdin, os.Stdout, c.String("format"))
					})
				},
			},
		},
	}

	return app.Run(ctx, os.Args)
}

// withApp initializes the application for the duration of fn.
func withApp(ctx context.Context, c *cli.Command, fn func(context.Context, *setup.App) error) error {
	app, err := setup.InitializeApp(c.String("config"), c.String("log-dir"), setup.WithTopN(int(c.Int("top"))))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	return fn(ctx, app)
}
