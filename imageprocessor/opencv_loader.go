//go:build opencv

package imageprocessor

import (
	"image"

	"gocv.io/x/gocv"
)

func init() {
	fallbackLoaders = append(fallbackLoaders, NewOpenCVImageLoader())
}

// OpenCVImageLoader decodes files through OpenCV. It is registered as a
// fallback for files the Go decoders reject, such as TIFF compressions
// x/image does not implement.
type OpenCVImageLoader struct {
	BaseImageLoader
}

// NewOpenCVImageLoader creates an OpenCV-backed loader
func NewOpenCVImageLoader() *OpenCVImageLoader {
	return &OpenCVImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatBMP,
				FormatTIFF,
				FormatWEBP,
			},
		},
	}
}

// LoadImage reads the file with OpenCV and converts the Mat to an image.Image
func (l *OpenCVImageLoader) LoadImage(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, newImageLoadError("opencv could not read image", path, ErrUnsupportedFormat)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, newImageLoadError("opencv could not convert image", path, err)
	}
	return img, nil
}
