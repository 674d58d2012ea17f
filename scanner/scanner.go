package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"imagededup/imageprocessor"
	"imagededup/logging"
	"imagededup/types"
	"imagededup/utils"
)

// ErrMissingFolder is returned when the scan folder is empty or not a directory
var ErrMissingFolder = errors.New("scan folder is not a directory")

// ErrDestinationIsSource is returned when duplicates would be moved into the
// folder being scanned
var ErrDestinationIsSource = errors.New("destination is the scan folder")

func (o *ScanOptions) validate() error {
	if o.FolderPath == "" {
		return fmt.Errorf("%w: no folder given", ErrMissingFolder)
	}
	info, err := os.Stat(o.FolderPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingFolder, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMissingFolder, o.FolderPath)
	}
	if o.DestinationPath == "" {
		return errors.New("no destination directory given")
	}
	if absPath(o.DestinationPath) == absPath(o.FolderPath) {
		return fmt.Errorf("%w: %s", ErrDestinationIsSource, o.DestinationPath)
	}
	if o.Output == nil {
		o.Output = io.Discard
	}
	return utils.ValidateThreshold(o.Threshold)
}

func (o *ScanOptions) newHasher(kind imageprocessor.HashKind, hashSize int) (*imageprocessor.Hasher, error) {
	hasher, err := imageprocessor.NewHasher(kind, hashSize)
	if err != nil {
		return nil, err
	}
	if o.UseEmbeddedPreviews {
		hasher.UseEmbeddedPreviews()
	}
	return hasher, nil
}

func (o *ScanOptions) prepareDestination() error {
	if o.DryRun {
		return nil
	}
	if err := os.MkdirAll(o.DestinationPath, 0755); err != nil {
		return fmt.Errorf("cannot create destination %s: %w", o.DestinationPath, err)
	}
	return nil
}

// FindDuplicateImages walks FolderPath and moves every image whose content
// descriptor lies within Threshold of an image kept earlier in the same pass.
// Each image is compared against the kept images in the order they were
// kept, and the first match wins. Images that fail to decode are logged and
// skipped. On cancellation the partial report is returned with ctx.Err().
func FindDuplicateImages(ctx context.Context, opts ScanOptions) (*DedupReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	hasher, err := opts.newHasher(imageprocessor.HashContent, 0)
	if err != nil {
		return nil, err
	}

	if err := opts.prepareDestination(); err != nil {
		return nil, err
	}

	files, err := collectImageFiles(opts.FolderPath, opts.DestinationPath, imageprocessor.DedupFormats)
	if err != nil {
		return nil, err
	}
	logging.DebugLog("Found %d candidate images under %s", len(files), opts.FolderPath)

	report := &DedupReport{RunID: opts.RunID}
	progress := NewProgressTracker(len(files), opts.ShowProgress)
	defer progress.Stop()

	// Kept descriptors in registration order; owned by this pass only.
	var kept []keptImage

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, desc := classifyAgainstKept(hasher, opts, kept, path)
		switch result.State {
		case types.StateUnique:
			kept = append(kept, keptImage{path: path, descriptor: desc})
			report.Kept = append(report.Kept, types.ImageRecord{
				Path:       path,
				Kind:       string(desc.Kind),
				Descriptor: desc.Hex,
			})
		case types.StateDuplicate:
			report.Duplicates = append(report.Duplicates, types.DuplicatePair{
				Original:    result.MatchedPath,
				Duplicate:   path,
				Destination: result.Destination,
				Distance:    result.Distance,
			})
		case types.StateError:
			report.Errors = append(report.Errors, types.FileError{Path: path, Err: result.Error})
		}

		progress.Record(result.State)
		recordOutcome(opts, result)
	}

	return report, nil
}

// classifyAgainstKept scores one file against the kept table and performs
// the move when it is a duplicate.
func classifyAgainstKept(hasher *imageprocessor.Hasher, opts ScanOptions, kept []keptImage, path string) (ProcessImageResult, imageprocessor.Descriptor) {
	result := ProcessImageResult{Path: path, State: types.StateError}

	desc, err := describe(opts.DB, hasher, path)
	if err != nil {
		result.Error = err
		return result, desc
	}

	for _, k := range kept {
		dist, err := imageprocessor.Distance(desc, k.descriptor)
		if err != nil {
			result.Error = err
			return result, desc
		}
		if dist > opts.Threshold {
			continue
		}

		result.MatchedPath = k.path
		result.Distance = dist
		if err := moveMatch(opts, &result); err != nil {
			result.Error = err
			return result, desc
		}
		result.State = types.StateDuplicate
		return result, desc
	}

	result.State = types.StateUnique
	return result, desc
}

// moveMatch relocates result.Path unless this is a dry run
func moveMatch(opts ScanOptions, result *ProcessImageResult) error {
	if opts.DryRun {
		fmt.Fprintf(opts.Output, "Would move similar image: %s\n", result.Path)
		return nil
	}

	dest, err := MoveFile(result.Path, opts.DestinationPath)
	if err != nil {
		return err
	}
	result.Destination = dest
	fmt.Fprintf(opts.Output, "Similar image moved: %s -> %s\n", result.Path, dest)
	return nil
}
