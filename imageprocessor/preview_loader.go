package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"

	"imagededup/logging"

	"github.com/rwcarlsen/goexif/exif"
)

// errNoPreview is returned when a file carries no embedded preview
var errNoPreview = errors.New("no embedded preview")

// previewTags are the exiftool tags holding an embedded JPEG, best first
var previewTags = []string{
	"PreviewImage",
	"ThumbnailImage",
}

// EmbeddedPreviewLoader decodes the JPEG preview stored in a file's EXIF
// block. It serves as a fallback for camera frames whose main image data
// was cut short: the APP1 segment at the head of the file survives, so the
// thumbnail still describes the frame.
type EmbeddedPreviewLoader struct {
	BaseImageLoader
	// UseExiftool allows the exiftool binary as a second source
	UseExiftool bool
}

// NewEmbeddedPreviewLoader creates a preview loader for JPEG files
func NewEmbeddedPreviewLoader() *EmbeddedPreviewLoader {
	return &EmbeddedPreviewLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG},
		},
		UseExiftool: true,
	}
}

// LoadImage returns the decoded embedded preview
func (l *EmbeddedPreviewLoader) LoadImage(path string) (image.Image, error) {
	data, err := exifThumbnail(path)
	if err != nil && l.UseExiftool && hasExiftool() {
		logging.DebugLog("No EXIF thumbnail in %s (%v), asking exiftool", path, err)
		data, err = exiftoolPreview(path)
	}
	if err != nil {
		return nil, newImageLoadError("failed to read embedded preview", path, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newImageLoadError("failed to decode embedded preview", path, err)
	}
	return img, nil
}

func exifThumbnail(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoPreview, err)
	}
	data, err := x.JpegThumbnail()
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("%w: %v", errNoPreview, err)
	}
	return data, nil
}

// exiftoolPreview extracts the binary preview with the exiftool command,
// since go-exiftool only returns tag values as text.
func exiftoolPreview(path string) ([]byte, error) {
	for _, tag := range previewTags {
		var stderr bytes.Buffer
		cmd := exec.Command("exiftool", "-b", "-"+tag, path)
		cmd.Stderr = &stderr

		out, err := cmd.Output()
		if err != nil {
			logging.DebugLog("exiftool %s extraction failed for %s: %v, stderr: %s", tag, path, err, stderr.String())
			continue
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, errNoPreview
}

func hasExiftool() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}
