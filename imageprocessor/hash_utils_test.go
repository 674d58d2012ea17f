package imageprocessor

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// gradientImage draws a horizontal gradient; the seed shifts the pattern so
// different seeds give visually different images.
func gradientImage(w, h int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*255)/w) + seed
			img.Set(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}

func halfImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{A: 255}
			if x >= w/2 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestComputeContentHash(t *testing.T) {
	a, err := ComputeContentHash(gradientImage(300, 200, 0))
	require.NoError(t, err)
	assert.Equal(t, HashContent, a.Kind)
	assert.Len(t, a.Hex, 32)

	again, err := ComputeContentHash(gradientImage(300, 200, 0))
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b, err := ComputeContentHash(gradientImage(300, 200, 90))
	require.NoError(t, err)
	assert.NotEqual(t, a.Hex, b.Hex)
}

func TestComputeContentHashRejectsEmptyImage(t *testing.T) {
	_, err := ComputeContentHash(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestComputeAverageHashSizes(t *testing.T) {
	img := gradientImage(64, 64, 0)

	d8, err := ComputeAverageHash(img, 8)
	require.NoError(t, err)
	assert.Len(t, d8.Hex, 16)
	assert.Equal(t, 64, d8.Bits())

	d16, err := ComputeAverageHash(img, 16)
	require.NoError(t, err)
	assert.Len(t, d16.Hex, 64)
	assert.Equal(t, 256, d16.Bits())

	for _, size := range []int{0, -8, 7, 12} {
		_, err := ComputeAverageHash(img, size)
		assert.ErrorIs(t, err, ErrInvalidHashSize, "size %d", size)
	}
}

func TestDistanceIdenticalIsZero(t *testing.T) {
	for _, kind := range []HashKind{HashContent, HashAverage} {
		h, err := NewHasher(kind, DefaultAverageHashSize)
		require.NoError(t, err)

		d, err := h.HashImage(gradientImage(120, 80, 7))
		require.NoError(t, err)

		dist, err := Distance(d, d)
		require.NoError(t, err)
		assert.Zero(t, dist, "kind %s", kind)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]Descriptor{
		{{Kind: HashContent, Hex: "0123456789abcdef0123456789abcdef"}, {Kind: HashContent, Hex: "0123456789abcdef0123456789abcd00"}},
		{{Kind: HashAverage, Hex: "ffff0000ffff0000"}, {Kind: HashAverage, Hex: "0f0f0000ffff00f0"}},
	}
	for _, p := range pairs {
		ab, err := Distance(p[0], p[1])
		require.NoError(t, err)
		ba, err := Distance(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.Greater(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestDistanceValues(t *testing.T) {
	dist, err := Distance(
		Descriptor{Kind: HashContent, Hex: "00000000000000000000000000000000"},
		Descriptor{Kind: HashContent, Hex: "0000000000000000000000000000ffff"},
	)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/32.0, dist, 1e-9)

	dist, err = Distance(
		Descriptor{Kind: HashAverage, Hex: "0000000000000000"},
		Descriptor{Kind: HashAverage, Hex: "00000000000000ff"},
	)
	require.NoError(t, err)
	assert.InDelta(t, 8.0/64.0, dist, 1e-9)
}

func TestDistanceMismatch(t *testing.T) {
	content := Descriptor{Kind: HashContent, Hex: "0123456789abcdef"}
	average := Descriptor{Kind: HashAverage, Hex: "0123456789abcdef"}
	short := Descriptor{Kind: HashContent, Hex: "0123"}

	_, err := Distance(content, average)
	assert.ErrorIs(t, err, ErrDescriptorMismatch)

	_, err = Distance(content, short)
	assert.ErrorIs(t, err, ErrDescriptorMismatch)

	_, err = Distance(Descriptor{}, Descriptor{})
	assert.ErrorIs(t, err, ErrDescriptorMismatch)
}

func TestAverageHashSeparatesDistinctImages(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range flat.Pix {
		flat.Pix[i] = 255
	}

	a, err := ComputeAverageHash(flat, 8)
	require.NoError(t, err)
	b, err := ComputeAverageHash(halfImage(64, 64), 8)
	require.NoError(t, err)

	dist, err := Distance(a, b)
	require.NoError(t, err)
	assert.Greater(t, dist, 0.25)
}

func TestHasherHashFile(t *testing.T) {
	dir := t.TempDir()
	img := gradientImage(64, 48, 3)

	pngPath := filepath.Join(dir, "a.png")
	writePNG(t, pngPath, img)

	bmpPath := filepath.Join(dir, "a.bmp")
	f, err := os.Create(bmpPath)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, img))
	f.Close()

	tiffPath := filepath.Join(dir, "a.tiff")
	f, err = os.Create(tiffPath)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, img, nil))
	f.Close()

	h, err := NewHasher(HashContent, 0)
	require.NoError(t, err)

	fromPNG, err := h.HashFile(pngPath)
	require.NoError(t, err)
	fromBMP, err := h.HashFile(bmpPath)
	require.NoError(t, err)
	fromTIFF, err := h.HashFile(tiffPath)
	require.NoError(t, err)

	// Lossless encodings of the same pixels hash identically.
	assert.Equal(t, fromPNG, fromBMP)
	assert.Equal(t, fromPNG, fromTIFF)
}

func TestHasherHashFileErrors(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(corrupt, []byte("not an image"), 0644))

	notImage := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0644))

	h, err := NewHasher(HashAverage, 8)
	require.NoError(t, err)

	_, err = h.HashFile(corrupt)
	assert.Error(t, err)

	_, err = h.HashFile(notImage)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = h.HashFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestNewHasherValidation(t *testing.T) {
	_, err := NewHasher("sha1", 8)
	assert.ErrorIs(t, err, ErrUnknownHashKind)

	_, err = NewHasher(HashAverage, 10)
	assert.ErrorIs(t, err, ErrInvalidHashSize)

	h, err := NewHasher(HashContent, 10)
	require.NoError(t, err)
	assert.Equal(t, ContentHashSize, h.HashSize)
}
