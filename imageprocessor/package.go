// Package imageprocessor decodes image files and turns them into fixed-size
// descriptors that can be compared with a normalized distance.
package imageprocessor

import "image"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage decodes the file into an image
	LoadImage(path string) (image.Image, error)
}
