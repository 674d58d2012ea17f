package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"imagededup/config"
	"imagededup/csvfilter"
	"imagededup/database"
	"imagededup/datesort"
	"imagededup/logging"
	"imagededup/scanner"
	"imagededup/signalhandler"
	"imagededup/utils"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// dedup flags
var (
	dedupFolder    string
	dedupDest      string
	dedupThreshold string
	dedupDryRun    bool
	dedupPreviews  bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Move near-duplicate images out of a folder",
	Long: `Walk a folder recursively and compare each png/jpg/jpeg image against the
images kept before it. The first kept image within the threshold wins and the
new image is moved to the destination folder.`,
	RunE: runDedup,
}

// similar flags
var (
	similarFolder    string
	similarDest      string
	similarRef       string
	similarThreshold string
	similarHashSize  int
	similarDryRun    bool
	similarPreviews  bool
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Move images that look like a reference image",
	Long: `Compare every image under a folder against one reference image using an
average hash and move those within the threshold. The reference itself is
never moved.`,
	RunE: runSimilar,
}

// sort flags
var (
	sortFolder string
	sortDest   string
	sortAfter  string
	sortDryRun bool
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Move photos taken after a date",
	Long: `Move the jpg/jpeg/png files of a folder (not its subfolders) whose capture
day is after the given date. The date comes from a YYYY-MM-DD file name prefix,
then EXIF, then exiftool when it is installed.`,
	RunE: runSort,
}

// csvfilter flags
var (
	csvIn    string
	csvOut   string
	csvAfter string
)

var csvFilterCmd = &cobra.Command{
	Use:   "csvfilter",
	Short: "Keep sensor log rows recorded after a time",
	RunE:  runCSVFilter,
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scan runs recorded in the journal",
	RunE:  runRuns,
}

func init() {
	dedupCmd.Flags().StringVar(&dedupFolder, "folder", "", "folder to scan")
	dedupCmd.Flags().StringVar(&dedupDest, "dest", "", "destination for duplicates (default \"similar_images\")")
	dedupCmd.Flags().StringVar(&dedupThreshold, "threshold", "", "maximum distance, fraction or percent (default 0.08)")
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "report without moving files")
	dedupCmd.Flags().BoolVar(&dedupPreviews, "use-thumbnails", false, "hash the EXIF thumbnail of truncated JPEGs instead of skipping them")

	similarCmd.Flags().StringVar(&similarFolder, "folder", "", "folder to scan")
	similarCmd.Flags().StringVar(&similarDest, "dest", "", "destination for matches (default \"similar_images\")")
	similarCmd.Flags().StringVar(&similarRef, "reference", "", "reference image")
	similarCmd.Flags().StringVar(&similarThreshold, "threshold", "", "maximum distance, fraction or percent (default 0.05)")
	similarCmd.Flags().IntVar(&similarHashSize, "hash-size", 0, "average hash edge in pixels, multiple of 8 (default 8)")
	similarCmd.Flags().BoolVar(&similarDryRun, "dry-run", false, "report without moving files")
	similarCmd.Flags().BoolVar(&similarPreviews, "use-thumbnails", false, "hash the EXIF thumbnail of truncated JPEGs instead of skipping them")

	sortCmd.Flags().StringVar(&sortFolder, "folder", "", "folder holding the photos")
	sortCmd.Flags().StringVar(&sortDest, "dest", "", "destination folder")
	sortCmd.Flags().StringVar(&sortAfter, "after", "", "cut-off date, YYYY-MM-DD")
	sortCmd.Flags().BoolVar(&sortDryRun, "dry-run", false, "report without moving files")

	csvFilterCmd.Flags().StringVar(&csvIn, "in", "", "input CSV")
	csvFilterCmd.Flags().StringVar(&csvOut, "out", "", "output CSV")
	csvFilterCmd.Flags().StringVar(&csvAfter, "after", "", "cut-off, \"DD/MM/YYYY HHh\"")

	runsCmd.Flags().IntVar(&runsLimit, "limit", config.DefaultRunsLimit, "number of runs to show")
}

func runDedup(cmd *cobra.Command, args []string) error {
	c := cfg.Dedup
	flags := cmd.Flags()
	if flags.Changed("folder") {
		c.Folder = dedupFolder
	}
	if flags.Changed("dest") {
		c.Destination = dedupDest
	}
	if flags.Changed("dry-run") {
		c.DryRun = dedupDryRun
	}
	if flags.Changed("threshold") {
		t, err := utils.ParseThreshold(dedupThreshold)
		if err != nil {
			return err
		}
		c.Threshold = t
	}
	if c.Folder == "" {
		return errors.New("missing folder path (use --folder)")
	}

	opts := scanner.ScanOptions{
		FolderPath:      c.Folder,
		DestinationPath: c.Destination,
		Threshold:       c.Threshold,
		DryRun:          c.DryRun,
		ShowProgress:    cfg.Progress,
		Output:          cmd.OutOrStdout(),

		UseEmbeddedPreviews: dedupPreviews,
	}

	return withJournal(database.Run{
		Variant:     "dedup",
		Source:      c.Folder,
		Destination: c.Destination,
		Threshold:   c.Threshold,
		DryRun:      c.DryRun,
	}, &opts, func(ctx context.Context) error {
		startTime := time.Now()
		report, err := scanner.FindDuplicateImages(ctx, opts)
		if report != nil {
			printDedupReport(cmd.OutOrStdout(), report, c.DryRun)
			logging.LogInfo("Dedup of %s finished in %v", c.Folder, time.Since(startTime).Round(time.Millisecond))
		}
		return err
	})
}

func runSimilar(cmd *cobra.Command, args []string) error {
	c := cfg.Similar
	flags := cmd.Flags()
	if flags.Changed("folder") {
		c.Folder = similarFolder
	}
	if flags.Changed("dest") {
		c.Destination = similarDest
	}
	if flags.Changed("reference") {
		c.Reference = similarRef
	}
	if flags.Changed("hash-size") {
		c.HashSize = similarHashSize
	}
	if flags.Changed("dry-run") {
		c.DryRun = similarDryRun
	}
	if flags.Changed("threshold") {
		t, err := utils.ParseThreshold(similarThreshold)
		if err != nil {
			return err
		}
		c.Threshold = t
	}
	if c.Folder == "" {
		return errors.New("missing folder path (use --folder)")
	}
	if c.Reference == "" {
		return errors.New("missing reference image (use --reference)")
	}

	opts := scanner.SimilarOptions{
		ScanOptions: scanner.ScanOptions{
			FolderPath:      c.Folder,
			DestinationPath: c.Destination,
			Threshold:       c.Threshold,
			DryRun:          c.DryRun,
			ShowProgress:    cfg.Progress,
			Output:          cmd.OutOrStdout(),

			UseEmbeddedPreviews: similarPreviews,
		},
		ReferencePath: c.Reference,
		HashSize:      c.HashSize,
	}

	return withJournal(database.Run{
		Variant:     "similar",
		Source:      c.Folder,
		Destination: c.Destination,
		Reference:   c.Reference,
		Threshold:   c.Threshold,
		DryRun:      c.DryRun,
	}, &opts.ScanOptions, func(ctx context.Context) error {
		report, err := scanner.FindSimilarImages(ctx, opts)
		if report != nil {
			printSimilarReport(cmd.OutOrStdout(), report, c.DryRun)
		}
		return err
	})
}

// withJournal runs fn under a signal-aware context, recording the run in
// the journal when one is configured. opts receives the journal handle and
// run id before fn is called.
func withJournal(run database.Run, opts *scanner.ScanOptions, fn func(ctx context.Context) error) error {
	ctx, stop := signalhandler.SetupHandler(context.Background())
	defer stop()

	db, err := openJournal(cfg.Database)
	if err != nil {
		return err
	}
	if db == nil {
		return fn(ctx)
	}
	defer db.Close()

	run.ID = uuid.NewString()
	if err := database.StartRun(db, run); err != nil {
		return err
	}
	opts.DB = db
	opts.RunID = run.ID
	logging.WithFields(map[string]interface{}{"run": run.ID, "variant": run.Variant}).Info("scan started")

	scanErr := fn(ctx)
	if err := database.FinishRun(db, run.ID); err != nil {
		logging.LogWarning("%v", err)
	}
	return scanErr
}

func runSort(cmd *cobra.Command, args []string) error {
	c := cfg.Sort
	flags := cmd.Flags()
	if flags.Changed("folder") {
		c.Folder = sortFolder
	}
	if flags.Changed("dest") {
		c.Destination = sortDest
	}
	if flags.Changed("after") {
		c.After = sortAfter
	}
	if c.Folder == "" || c.Destination == "" {
		return errors.New("both --folder and --dest are required")
	}
	after, err := datesort.ParseCutoff(c.After)
	if err != nil {
		return err
	}

	ctx, stop := signalhandler.SetupHandler(context.Background())
	defer stop()

	result, err := datesort.SortByDate(ctx, datesort.Options{
		FolderPath:      c.Folder,
		DestinationPath: c.Destination,
		After:           after,
		DryRun:          sortDryRun,
		UseExiftool:     true,
		Output:          cmd.OutOrStdout(),
	})
	if result != nil {
		printSortResult(cmd.OutOrStdout(), result)
	}
	return err
}

func runCSVFilter(cmd *cobra.Command, args []string) error {
	c := cfg.CSV
	flags := cmd.Flags()
	if flags.Changed("in") {
		c.Input = csvIn
	}
	if flags.Changed("out") {
		c.Output = csvOut
	}
	if flags.Changed("after") {
		c.After = csvAfter
	}
	if c.Input == "" || c.Output == "" {
		return errors.New("both --in and --out are required")
	}
	after, err := csvfilter.ParseCutoff(c.After)
	if err != nil {
		return err
	}

	stats, err := csvfilter.FilterFile(c.Input, c.Output, after)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Kept %d rows, dropped %d (%d with unreadable timestamps)\n",
		stats.Kept, stats.Dropped, stats.Unparseable)
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	if cfg.Database == "" {
		return errors.New("no journal configured (use --database)")
	}
	if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
		return fmt.Errorf("database does not exist: %s. Run a scan with --database first", cfg.Database)
	}

	db, err := database.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	runs, err := database.ListRuns(db, runsLimit)
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs, time.Now())
	return nil
}

// humanTime renders an RFC3339 journal timestamp relative to now
func humanTime(stamp string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
