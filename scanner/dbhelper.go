package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imagededup/database"
	"imagededup/imageprocessor"
	"imagededup/logging"
	"imagededup/types"
)

// describe returns the descriptor of path, served from the journal cache
// when the file is unchanged since it was last hashed.
func describe(db *sql.DB, hasher *imageprocessor.Hasher, path string) (imageprocessor.Descriptor, error) {
	if db == nil {
		return hasher.HashFile(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return imageprocessor.Descriptor{}, fmt.Errorf("cannot stat file %s: %w", path, err)
	}

	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)
	kind := string(hasher.Kind)

	cached, ok, err := database.LookupDescriptor(db, key, kind, hasher.HashSize, modTime, info.Size())
	if err != nil {
		logging.LogWarning("Descriptor cache lookup failed for %s: %v", path, err)
	} else if ok {
		logging.DebugLog("Skipping unchanged image: %s", path)
		return imageprocessor.Descriptor{Kind: hasher.Kind, Hex: cached}, nil
	}

	desc, err := hasher.HashFile(path)
	if err != nil {
		return imageprocessor.Descriptor{}, err
	}

	rec := types.ImageRecord{
		Path:       key,
		Kind:       kind,
		Descriptor: desc.Hex,
		ModifiedAt: modTime,
		Size:       info.Size(),
	}
	if err := database.StoreDescriptor(db, rec, hasher.HashSize); err != nil {
		logging.LogWarning("Descriptor cache store failed for %s: %v", path, err)
	}
	return desc, nil
}

// recordOutcome writes the file's terminal state to the journal, if any
func recordOutcome(opts ScanOptions, result ProcessImageResult) {
	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	logging.LogImageProcessed(result.Path, string(result.State), errMsg)

	if opts.DB == nil || opts.RunID == "" {
		return
	}
	err := database.RecordOutcome(opts.DB, database.Outcome{
		RunID:       opts.RunID,
		Path:        result.Path,
		State:       result.State,
		MatchedPath: result.MatchedPath,
		Distance:    result.Distance,
		Destination: result.Destination,
		Error:       errMsg,
	})
	if err != nil {
		logging.LogWarning("Journal write failed: %v", err)
	}
}
