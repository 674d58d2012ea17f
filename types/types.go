package types

// FileState is the terminal classification of a scanned file
type FileState string

const (
	StateUnique    FileState = "unique"
	StateDuplicate FileState = "duplicate"
	StateError     FileState = "error"
)

// ImageRecord holds a scanned image and its descriptor
type ImageRecord struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Descriptor  string `json:"descriptor"`
	IsReference bool   `json:"is_reference"`
	ModifiedAt  string `json:"modified_at"`
	Size        int64  `json:"size"`
}

// DuplicatePair links a moved duplicate to the kept image it matched
type DuplicatePair struct {
	Original    string
	Duplicate   string
	Destination string
	Distance    float64
}

// SimilarMatch is an image found within threshold of the reference image
type SimilarMatch struct {
	Path        string
	Destination string
	Distance    float64
}

// Percent returns the distance as a percentage
func (m SimilarMatch) Percent() float64 {
	return m.Distance * 100
}

// FileError records a file that was skipped
type FileError struct {
	Path string
	Err  error
}
