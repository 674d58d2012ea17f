package imageprocessor

import (
	"path/filepath"
	"strings"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatTIFF    FormatType = "tiff"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
)

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
	".webp": FormatWEBP,
}

// DedupFormats are the formats visited by the content-hash duplicate scan.
var DedupFormats = []FormatType{FormatJPEG, FormatPNG}

// SimilarFormats are the formats visited by the reference-image scan.
var SimilarFormats = []FormatType{FormatJPEG, FormatPNG, FormatBMP, FormatGIF, FormatTIFF}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	ext := strings.ToLower(filepath.Ext(path))
	format, exists := formatExtensions[ext]
	if !exists {
		return FormatUnknown
	}
	return format
}

// HasFormat reports whether path has one of the given formats.
func HasFormat(path string, formats []FormatType) bool {
	format := GetFileFormat(path)
	if format == FormatUnknown {
		return false
	}
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

// GetSupportedExtensions returns all supported image file extensions
func GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(formatExtensions))
	for ext := range formatExtensions {
		extensions = append(extensions, ext)
	}
	return extensions
}
