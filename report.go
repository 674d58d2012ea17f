package main

import (
	"fmt"
	"io"
	"time"

	"imagededup/database"
	"imagededup/datesort"
	"imagededup/scanner"
)

func printDedupReport(w io.Writer, report *scanner.DedupReport, dryRun bool) {
	if len(report.Duplicates) == 0 {
		fmt.Fprintln(w, "No similar images found.")
	} else {
		if dryRun {
			fmt.Fprintln(w, "Similar images found (dry run, nothing moved):")
		} else {
			fmt.Fprintln(w, "Similar images found and moved:")
		}
		for _, pair := range report.Duplicates {
			fmt.Fprintf(w, "Original: %s, Similar: %s\n", pair.Original, pair.Duplicate)
		}
	}

	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "- Unique images: %d\n", len(report.Kept))
	fmt.Fprintf(w, "- Duplicates: %d\n", len(report.Duplicates))
	fmt.Fprintf(w, "- Skipped: %d\n", len(report.Errors))
	printSkipped(w, report.RunID, len(report.Errors))
}

func printSimilarReport(w io.Writer, report *scanner.SimilarReport, dryRun bool) {
	if len(report.Matches) == 0 {
		fmt.Fprintln(w, "No similar images found.")
	} else {
		if dryRun {
			fmt.Fprintln(w, "Similar images found (dry run, nothing moved):")
		} else {
			fmt.Fprintln(w, "Similar images found and moved:")
		}
		for _, m := range report.Matches {
			fmt.Fprintf(w, "%s with difference of %.2f%%\n", m.Path, m.Percent())
		}
	}

	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "- Reference: %s\n", report.Reference.Path)
	fmt.Fprintf(w, "- Similar: %d\n", len(report.Matches))
	fmt.Fprintf(w, "- Not similar: %d\n", len(report.Unmatched))
	fmt.Fprintf(w, "- Skipped: %d\n", len(report.Errors))
	printSkipped(w, report.RunID, len(report.Errors))
}

func printSkipped(w io.Writer, runID string, skipped int) {
	if runID != "" {
		fmt.Fprintf(w, "- Run: %s\n", runID)
	}
	if skipped > 0 {
		fmt.Fprintln(w, "Skipped files are listed in the log.")
	}
}

func printSortResult(w io.Writer, result *datesort.Result) {
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "- Moved: %d\n", len(result.Moved))
	fmt.Fprintf(w, "- Kept: %d\n", len(result.Kept))
	fmt.Fprintf(w, "- Skipped: %d\n", len(result.Skipped))
}

func printRuns(w io.Writer, runs []database.RunStats, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	for i, r := range runs {
		fmt.Fprintf(w, "%d. %s [%s] %s\n", i+1, r.Run.ID, r.Run.Variant, humanTime(r.StartedAt, now))
		fmt.Fprintf(w, "   Source: %s -> %s\n", r.Run.Source, r.Run.Destination)
		if r.Run.Reference != "" {
			fmt.Fprintf(w, "   Reference: %s\n", r.Run.Reference)
		}
		fmt.Fprintf(w, "   Threshold: %.2f%%", r.Run.Threshold*100)
		if r.Run.DryRun {
			fmt.Fprint(w, " (dry run)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   Unique: %d, duplicates: %d, errors: %d\n", r.Unique, r.Duplicates, r.Errors)
		if r.FinishedAt == "" {
			fmt.Fprintln(w, "   Did not finish")
		}
	}
}
