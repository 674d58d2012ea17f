package scanner

import (
	"database/sql"
	"io"

	"imagededup/imageprocessor"
	"imagededup/types"
)

// ScanOptions defines the options shared by both scan variants
type ScanOptions struct {
	FolderPath      string
	DestinationPath string
	Threshold       float64
	DryRun          bool
	ShowProgress    bool

	// UseEmbeddedPreviews hashes the EXIF thumbnail of JPEGs whose image
	// data cannot be decoded instead of skipping them.
	UseEmbeddedPreviews bool

	// DB is the optional journal; nil disables caching and outcome recording.
	DB    *sql.DB
	RunID string

	// Output receives one line per move. Nil discards.
	Output io.Writer
}

// SimilarOptions adds the reference image for the reference scan
type SimilarOptions struct {
	ScanOptions
	ReferencePath string
	HashSize      int
}

// ProcessImageResult holds the result of classifying one image
type ProcessImageResult struct {
	Path        string
	State       types.FileState
	MatchedPath string
	Destination string
	Distance    float64
	Error       error
}

// DedupReport is the outcome of a duplicate scan
type DedupReport struct {
	RunID      string
	Kept       []types.ImageRecord
	Duplicates []types.DuplicatePair
	Errors     []types.FileError
}

// SimilarReport is the outcome of a reference scan
type SimilarReport struct {
	RunID     string
	Reference types.ImageRecord
	Matches   []types.SimilarMatch
	Unmatched []string
	Errors    []types.FileError
}

// keptImage is an entry of the kept-descriptor table built during a pass
type keptImage struct {
	path       string
	descriptor imageprocessor.Descriptor
}
