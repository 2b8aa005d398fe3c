package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shashank2401/cf-visualizer/internal/dashboard"
	"github.com/shashank2401/cf-visualizer/internal/setup"
)

// runInteractive reads one query per line: a single handle shows a profile,
// two handles (optionally separated by "vs") compare them. Errors are printed
// and the loop continues until EOF, "quit" or cancellation.
func runInteractive(ctx context.Context, app *setup.App, in io.Reader, out io.Writer, format string) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, "> ")

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fields := strings.Fields(scanner.Text())
		fields = removeWord(fields, "vs")

		var (
			report any
			err    error
		)

		switch {
		case len(fields) == 0:
		case len(fields) == 1 && (fields[0] == "quit" || fields[0] == "exit"):
			return nil
		case len(fields) == 1:
			report, err = app.Dashboard.Profile(ctx, fields[0])
		case len(fields) == 2:
			report, err = app.Dashboard.Compare(ctx, fields[0], fields[1])
		default:
			err = fmt.Errorf("%w: enter one handle or two handles to compare", ErrUsage)
		}

		switch {
		case err != nil:
			fmt.Fprintf(out, "Error: %v\n", err)
		case report != nil:
			if err := dashboard.Write(out, format, report); err != nil {
				return err
			}
		}

		fmt.Fprint(out, "> ")
	}

	return scanner.Err()
}

func removeWord(fields []string, word string) []string {
	kept := fields[:0]
	for _, f := range fields {
		if !strings.EqualFold(f, word) {
			kept = append(kept, f)
		}
	}

	return kept
}
