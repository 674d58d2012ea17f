// Package csvfilter trims sensor logs to the rows recorded after a cut-off.
package csvfilter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"imagededup/logging"
)

const (
	// TimestampLayout is the layout of the first column of each row
	TimestampLayout = "02/01/2006 15:04:05"
	// CutoffLayout is the layout of the cut-off, e.g. "24/01/2020 21h"
	CutoffLayout = "02/01/2006 15h"
)

// Stats counts the rows seen by a filter run
type Stats struct {
	Kept        int
	Dropped     int
	Unparseable int
}

// ParseCutoff parses a cut-off in CutoffLayout
func ParseCutoff(s string) (time.Time, error) {
	t, err := time.Parse(CutoffLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cut-off %q, expected DD/MM/YYYY HHh: %w", s, err)
	}
	return t, nil
}

// Filter copies the rows of a header-less CSV whose first column is a
// timestamp strictly after the cut-off. Rows whose timestamp cannot be
// parsed are dropped. Kept rows are written unchanged.
func Filter(r io.Reader, w io.Writer, after time.Time) (Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	writer := csv.NewWriter(w)

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("cannot read row %d: %w", line, err)
		}

		ts, err := time.Parse(TimestampLayout, strings.TrimSpace(record[0]))
		if err != nil {
			logging.DebugLog("Dropping row %d with unparseable timestamp %q", line, record[0])
			stats.Unparseable++
			stats.Dropped++
			continue
		}
		if !ts.After(after) {
			stats.Dropped++
			continue
		}

		if err := writer.Write(record); err != nil {
			return stats, fmt.Errorf("cannot write row %d: %w", line, err)
		}
		stats.Kept++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return stats, fmt.Errorf("cannot flush output: %w", err)
	}
	return stats, nil
}

// FilterFile runs Filter from inPath into outPath, replacing outPath
func FilterFile(inPath, outPath string, after time.Time) (Stats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return Stats{}, fmt.Errorf("cannot open %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Stats{}, fmt.Errorf("cannot create %s: %w", outPath, err)
	}

	stats, err := Filter(in, out, after)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("cannot close %s: %w", outPath, cerr)
	}
	if err != nil {
		return stats, err
	}

	logging.LogInfo("Filtered %s into %s: kept %d, dropped %d (%d unparseable)",
		inPath, outPath, stats.Kept, stats.Dropped, stats.Unparseable)
	return stats, nil
}
