package imageprocessor

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"imagededup/logging"
)

// fallbackLoaders are tried, in order, when the registered loader for an
// extension fails. Build-tagged loaders append to it from init.
var fallbackLoaders []ImageLoader

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders   map[string]ImageLoader
	fallbacks []ImageLoader
	mutex     sync.RWMutex
}

// NewImageLoaderRegistry creates a new image loader registry
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders:   make(map[string]ImageLoader),
		fallbacks: append([]ImageLoader(nil), fallbackLoaders...),
	}

	registry.registerStandardLoaders()

	return registry
}

// registerStandardLoaders registers the pure Go loader for every known extension
func (r *ImageLoaderRegistry) registerStandardLoaders() {
	standardLoader := NewStandardImageLoader()
	for _, ext := range GetSupportedExtensions() {
		r.RegisterLoader(ext, standardLoader)
	}
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ext = strings.ToLower(ext)
	r.loaders[ext] = loader
}

// AddFallback appends a loader tried after the registered loader fails
func (r *ImageLoaderRegistry) AddFallback(loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.fallbacks = append(r.fallbacks, loader)
}

// GetLoader returns the loader registered for the file's extension, or nil
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	return r.loaders[ext]
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	return r.GetLoader(path) != nil
}

// LoadImage loads an image using the appropriate registered loader, then
// the fallback loaders if that fails.
func (r *ImageLoaderRegistry) LoadImage(path string) (image.Image, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	img, err := loader.LoadImage(path)
	if err == nil {
		return img, nil
	}

	r.mutex.RLock()
	fallbacks := r.fallbacks
	r.mutex.RUnlock()

	errs := []error{err}
	for _, fb := range fallbacks {
		if !fb.CanLoad(path) {
			continue
		}
		logging.DebugLog("Primary loader failed for %s, trying fallback: %v", path, err)
		img, fbErr := fb.LoadImage(path)
		if fbErr == nil {
			return img, nil
		}
		errs = append(errs, fbErr)
	}

	return nil, errors.Join(errs...)
}
