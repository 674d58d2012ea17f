package imageprocessor

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// HashKind names the descriptor algorithm
type HashKind string

const (
	// HashContent is an MD5 digest of the image normalized to 128x128 grayscale
	HashContent HashKind = "content"
	// HashAverage is a perceptual average-hash bit grid
	HashAverage HashKind = "average"
)

const (
	// ContentHashSize is the edge length images are resized to before the content digest
	ContentHashSize = 128
	// DefaultAverageHashSize gives a 64 bit average hash
	DefaultAverageHashSize = 8
)

// Descriptor is a fixed-size representation of an image used for approximate comparison.
// Hex holds the hex digest for content descriptors and the 64 bit words of
// the bit grid for average descriptors.
type Descriptor struct {
	Kind HashKind
	Hex  string
}

// Bits returns the number of comparable units: hex characters for content
// descriptors, bits for average descriptors.
func (d Descriptor) Bits() int {
	if d.Kind == HashAverage {
		return len(d.Hex) * 4
	}
	return len(d.Hex)
}

func (d Descriptor) String() string {
	return string(d.Kind) + ":" + d.Hex
}

// ValidateHashSize checks an average-hash edge length
func ValidateHashSize(size int) error {
	if size <= 0 || size%8 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHashSize, size)
	}
	return nil
}

// ComputeContentHash resizes the image to 128x128, converts it to 8 bit
// grayscale and returns the MD5 of the raw pixel bytes.
func ComputeContentHash(img image.Image) (Descriptor, error) {
	if img == nil || img.Bounds().Empty() {
		return Descriptor{}, fmt.Errorf("cannot compute hash for empty image")
	}

	resized := imaging.Resize(img, ContentHashSize, ContentHashSize, imaging.Linear)
	gray := imaging.Grayscale(resized)

	// Grayscale keeps NRGBA layout with equal channels; one byte per pixel.
	pix := make([]byte, 0, ContentHashSize*ContentHashSize)
	for i := 0; i < len(gray.Pix); i += 4 {
		pix = append(pix, gray.Pix[i])
	}

	sum := md5.Sum(pix)
	return Descriptor{Kind: HashContent, Hex: hex.EncodeToString(sum[:])}, nil
}

// ComputeAverageHash computes a size x size average hash.
func ComputeAverageHash(img image.Image, size int) (Descriptor, error) {
	if err := ValidateHashSize(size); err != nil {
		return Descriptor{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return Descriptor{}, fmt.Errorf("cannot compute hash for empty image")
	}

	h, err := goimagehash.ExtAverageHash(img, size, size)
	if err != nil {
		return Descriptor{}, fmt.Errorf("average hash: %w", err)
	}

	var sb strings.Builder
	for _, word := range h.GetHash() {
		fmt.Fprintf(&sb, "%016x", word)
	}
	return Descriptor{Kind: HashAverage, Hex: sb.String()}, nil
}

// Distance returns the normalized distance in [0,1] between two descriptors
// of the same kind and length: the fraction of differing hex characters for
// content descriptors, Hamming distance over bit count for average ones.
func Distance(a, b Descriptor) (float64, error) {
	if a.Kind != b.Kind || len(a.Hex) != len(b.Hex) || len(a.Hex) == 0 {
		return 0, fmt.Errorf("%w: %s (%d) vs %s (%d)", ErrDescriptorMismatch, a.Kind, len(a.Hex), b.Kind, len(b.Hex))
	}

	switch a.Kind {
	case HashContent:
		return float64(CalculateHammingDistance(a.Hex, b.Hex)) / float64(len(a.Hex)), nil
	case HashAverage:
		ha, err := toExtImageHash(a)
		if err != nil {
			return 0, err
		}
		hb, err := toExtImageHash(b)
		if err != nil {
			return 0, err
		}
		dist, err := ha.Distance(hb)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDescriptorMismatch, err)
		}
		return float64(dist) / float64(a.Bits()), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownHashKind, a.Kind)
	}
}

// CalculateHammingDistance counts the positions at which two equal-length strings differ
func CalculateHammingDistance(hash1, hash2 string) int {
	var distance int
	for i := 0; i < len(hash1) && i < len(hash2); i++ {
		if hash1[i] != hash2[i] {
			distance++
		}
	}
	return distance
}

func toExtImageHash(d Descriptor) (*goimagehash.ExtImageHash, error) {
	if len(d.Hex)%16 != 0 {
		return nil, fmt.Errorf("%w: average descriptor of %d hex chars", ErrDescriptorMismatch, len(d.Hex))
	}
	words := make([]uint64, 0, len(d.Hex)/16)
	for i := 0; i < len(d.Hex); i += 16 {
		w, err := strconv.ParseUint(d.Hex[i:i+16], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parse average descriptor: %w", err)
		}
		words = append(words, w)
	}
	return goimagehash.NewExtImageHash(words, goimagehash.AHash, d.Bits()), nil
}
