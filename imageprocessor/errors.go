package imageprocessor

import "errors"

var (
	// ErrDescriptorMismatch is returned when two descriptors of different
	// kinds or lengths are compared.
	ErrDescriptorMismatch = errors.New("descriptors are not comparable")

	// ErrUnsupportedFormat is returned for files no registered loader accepts.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrInvalidHashSize is returned for average-hash sizes that are not a
	// positive multiple of 8.
	ErrInvalidHashSize = errors.New("hash size must be a positive multiple of 8")

	// ErrUnknownHashKind is returned for descriptor kinds this package does not compute.
	ErrUnknownHashKind = errors.New("unknown hash kind")
)
