package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"imagededup/imageprocessor"
	"imagededup/logging"
	"imagededup/types"
)

// ErrReferenceUnreadable is returned when the reference image cannot be hashed
var ErrReferenceUnreadable = errors.New("cannot hash reference image")

// FindSimilarImages walks FolderPath and moves every image whose average
// hash lies within Threshold of the reference image. The reference file is
// never moved, even when it lives inside FolderPath.
func FindSimilarImages(ctx context.Context, opts SimilarOptions) (*SimilarReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.HashSize == 0 {
		opts.HashSize = imageprocessor.DefaultAverageHashSize
	}

	hasher, err := opts.newHasher(imageprocessor.HashAverage, opts.HashSize)
	if err != nil {
		return nil, err
	}

	reference, err := describe(opts.DB, hasher, opts.ReferencePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReferenceUnreadable, err)
	}
	refAbs := absPath(opts.ReferencePath)
	logging.DebugLog("Reference %s hash %s", opts.ReferencePath, reference)

	if err := opts.prepareDestination(); err != nil {
		return nil, err
	}

	files, err := collectImageFiles(opts.FolderPath, opts.DestinationPath, imageprocessor.SimilarFormats)
	if err != nil {
		return nil, err
	}

	report := &SimilarReport{
		RunID: opts.RunID,
		Reference: types.ImageRecord{
			Path:        opts.ReferencePath,
			Kind:        string(reference.Kind),
			Descriptor:  reference.Hex,
			IsReference: true,
		},
	}
	progress := NewProgressTracker(len(files), opts.ShowProgress)
	defer progress.Stop()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if absPath(path) == refAbs {
			continue
		}

		result := classifyAgainstReference(hasher, opts.ScanOptions, opts.ReferencePath, reference, path)
		switch result.State {
		case types.StateDuplicate:
			report.Matches = append(report.Matches, types.SimilarMatch{
				Path:        path,
				Destination: result.Destination,
				Distance:    result.Distance,
			})
		case types.StateUnique:
			report.Unmatched = append(report.Unmatched, path)
		case types.StateError:
			report.Errors = append(report.Errors, types.FileError{Path: path, Err: result.Error})
		}

		progress.Record(result.State)
		recordOutcome(opts.ScanOptions, result)
	}

	return report, nil
}

func classifyAgainstReference(hasher *imageprocessor.Hasher, opts ScanOptions, refPath string, reference imageprocessor.Descriptor, path string) ProcessImageResult {
	result := ProcessImageResult{Path: path, State: types.StateError}

	desc, err := describe(opts.DB, hasher, path)
	if err != nil {
		result.Error = err
		return result
	}

	dist, err := imageprocessor.Distance(reference, desc)
	if err != nil {
		result.Error = err
		return result
	}
	result.Distance = dist

	if dist > opts.Threshold {
		result.State = types.StateUnique
		return result
	}

	result.MatchedPath = refPath
	if err := moveMatch(opts, &result); err != nil {
		result.Error = err
		return result
	}
	result.State = types.StateDuplicate
	return result
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
