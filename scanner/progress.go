package scanner

import (
	"os"
	"time"

	"imagededup/logging"
	"imagededup/types"

	"github.com/schollz/progressbar/v3"
)

// ProgressTracker counts per-state outcomes and optionally renders a bar on stderr
type ProgressTracker struct {
	bar        *progressbar.ProgressBar
	startTime  time.Time
	totalFiles int
	processed  int
	unique     int
	duplicates int
	errors     int
}

// NewProgressTracker initializes the progress tracker
func NewProgressTracker(totalFiles int, show bool) *ProgressTracker {
	p := &ProgressTracker{
		totalFiles: totalFiles,
		startTime:  time.Now(),
	}
	if show && totalFiles > 0 {
		p.bar = progressbar.NewOptions(totalFiles,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Scanning images"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

// Record updates the tracker state with one result
func (p *ProgressTracker) Record(state types.FileState) {
	p.processed++
	switch state {
	case types.StateUnique:
		p.unique++
	case types.StateDuplicate:
		p.duplicates++
	case types.StateError:
		p.errors++
	}
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Stop ends the progress display and logs the final statistics
func (p *ProgressTracker) Stop() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	logging.DebugLog("Scan completed in %v. Processed: %d/%d, unique: %d, duplicates: %d, errors: %d",
		time.Since(p.startTime).Round(time.Millisecond), p.processed, p.totalFiles,
		p.unique, p.duplicates, p.errors)
}
