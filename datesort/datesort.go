// Package datesort moves photos whose capture day is after a cut-off into
// another directory.
package datesort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagededup/logging"
	"imagededup/scanner"
	"imagededup/types"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
)

// DateLayout is the layout of the date prefix in file names and of the cut-off
const DateLayout = "2006-01-02"

const exiftoolLayout = "2006:01:02 15:04:05"

// ErrNoDate is returned when no capture date can be found for a file
var ErrNoDate = errors.New("no capture date found")

var sortExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Options configures a date sort
type Options struct {
	FolderPath      string
	DestinationPath string
	After           time.Time
	DryRun          bool
	// UseExiftool enables the exiftool fallback when the binary is installed
	UseExiftool bool
	Output      io.Writer
}

// Move is a file relocated by the sort
type Move struct {
	Path        string
	Destination string
	Date        time.Time
}

// Result lists what happened to each candidate file
type Result struct {
	Moved   []Move
	Kept    []string
	Skipped []types.FileError
}

// ParseCutoff parses a YYYY-MM-DD cut-off date
func ParseCutoff(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cut-off date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// SortByDate moves the jpg/jpeg/png files directly under FolderPath whose
// capture day is strictly after the cut-off day. Subdirectories are not
// visited. Files without a usable date are logged and skipped.
func SortByDate(ctx context.Context, opts Options) (*Result, error) {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.DestinationPath == "" {
		return nil, errors.New("no destination directory given")
	}

	entries, err := os.ReadDir(opts.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", opts.FolderPath, err)
	}

	if !opts.DryRun {
		if err := os.MkdirAll(opts.DestinationPath, 0755); err != nil {
			return nil, fmt.Errorf("cannot create destination %s: %w", opts.DestinationPath, err)
		}
	}

	r := newResolver(opts.UseExiftool)
	defer r.Close()

	cutoff := dayOf(opts.After)
	result := &Result{}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.Type().IsRegular() || !sortExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(opts.FolderPath, entry.Name())

		date, err := r.CaptureDate(path)
		if err != nil {
			logging.LogWarning("Error processing file %s: %v", entry.Name(), err)
			result.Skipped = append(result.Skipped, types.FileError{Path: path, Err: err})
			continue
		}

		if !dayOf(date).After(cutoff) {
			result.Kept = append(result.Kept, path)
			continue
		}

		if opts.DryRun {
			fmt.Fprintf(opts.Output, "Would move image %s\n", entry.Name())
			result.Moved = append(result.Moved, Move{Path: path, Date: date})
			continue
		}

		dest, err := scanner.MoveFile(path, opts.DestinationPath)
		if err != nil {
			logging.LogWarning("Error processing file %s: %v", entry.Name(), err)
			result.Skipped = append(result.Skipped, types.FileError{Path: path, Err: err})
			continue
		}
		fmt.Fprintf(opts.Output, "Image %s moved to %s\n", entry.Name(), dest)
		result.Moved = append(result.Moved, Move{Path: path, Destination: dest, Date: date})
	}

	return result, nil
}

// dayOf drops the clock and zone, keeping the calendar day as written
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// resolver finds capture dates. The exiftool process is started on first
// use and shared by every file of the sort.
type resolver struct {
	useExiftool bool
	et          *exiftool.Exiftool
	etFailed    bool
}

func newResolver(useExiftool bool) *resolver {
	return &resolver{useExiftool: useExiftool}
}

// CaptureDate tries the file name prefix, then EXIF, then exiftool
func (r *resolver) CaptureDate(path string) (time.Time, error) {
	if t, ok := DateFromFilename(filepath.Base(path)); ok {
		return t, nil
	}

	t, exifErr := exifDate(path)
	if exifErr == nil {
		return t, nil
	}
	logging.DebugLog("No EXIF date in %s: %v", path, exifErr)

	if et := r.exiftool(); et != nil {
		if t, err := exiftoolDate(et, path); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w in %s", ErrNoDate, filepath.Base(path))
}

func (r *resolver) exiftool() *exiftool.Exiftool {
	if !r.useExiftool || r.etFailed {
		return nil
	}
	if r.et == nil {
		et, err := exiftool.NewExiftool()
		if err != nil {
			logging.DebugLog("exiftool unavailable: %v", err)
			r.etFailed = true
			return nil
		}
		r.et = et
	}
	return r.et
}

func (r *resolver) Close() {
	if r.et != nil {
		r.et.Close()
		r.et = nil
	}
}

// DateFromFilename parses the YYYY-MM-DD prefix before the first underscore,
// as written by the capture camera (e.g. 2025-01-21_14-30-00.jpg).
func DateFromFilename(name string) (time.Time, bool) {
	prefix := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.Index(prefix, "_"); i >= 0 {
		prefix = prefix[:i]
	}
	t, err := time.Parse(DateLayout, prefix)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func exifDate(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}
	return x.DateTime()
}

func exiftoolDate(et *exiftool.Exiftool, path string) (time.Time, error) {
	infos := et.ExtractMetadata(path)
	if len(infos) == 0 {
		return time.Time{}, ErrNoDate
	}
	info := infos[0]
	if info.Err != nil {
		return time.Time{}, info.Err
	}

	for _, tag := range []string{"DateTimeOriginal", "CreateDate"} {
		s, err := info.GetString(tag)
		if err != nil || s == "" {
			continue
		}
		// Sub-second and zone suffixes are dropped.
		if len(s) > len(exiftoolLayout) {
			s = s[:len(exiftoolLayout)]
		}
		if t, err := time.Parse(exiftoolLayout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrNoDate
}
