package imageprocessor

import (
	"fmt"
	"image"
	"runtime/debug"

	"imagededup/logging"
)

// Hasher computes descriptors of one kind for image files
type Hasher struct {
	Kind     HashKind
	HashSize int
	registry *ImageLoaderRegistry
}

// NewHasher creates a Hasher. hashSize only applies to HashAverage; content
// descriptors always use ContentHashSize.
func NewHasher(kind HashKind, hashSize int) (*Hasher, error) {
	switch kind {
	case HashContent:
		hashSize = ContentHashSize
	case HashAverage:
		if err := ValidateHashSize(hashSize); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashKind, kind)
	}

	return &Hasher{
		Kind:     kind,
		HashSize: hashSize,
		registry: NewImageLoaderRegistry(),
	}, nil
}

// UseEmbeddedPreviews lets JPEGs whose main image data is cut short be
// described by their EXIF thumbnail. Off by default: such files are
// otherwise reported as unreadable.
func (h *Hasher) UseEmbeddedPreviews() {
	h.registry.AddFallback(NewEmbeddedPreviewLoader())
}

// HashFile decodes the file and computes its descriptor. Any failure is a
// per-file error the caller is expected to log and skip.
func (h *Hasher) HashFile(path string) (desc Descriptor, err error) {
	// Decoders for malformed input occasionally panic.
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("Panic while hashing %s: %v\n%s", path, r, debug.Stack())
			desc = Descriptor{}
			err = fmt.Errorf("panic while hashing %s: %v", path, r)
		}
	}()

	img, err := h.registry.LoadImage(path)
	if err != nil {
		return Descriptor{}, err
	}

	desc, err = h.HashImage(img)
	if err != nil {
		return Descriptor{}, fmt.Errorf("cannot compute %s hash for %s: %w", h.Kind, path, err)
	}
	return desc, nil
}

// HashImage computes the descriptor of an already decoded image
func (h *Hasher) HashImage(img image.Image) (Descriptor, error) {
	if h.Kind == HashAverage {
		return ComputeAverageHash(img, h.HashSize)
	}
	return ComputeContentHash(img)
}
