package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

const (
	normalizedMaxDim = 1280
	jpegQuality      = 85

	thumbnailMaxDim = 320
)

// Normalize decodes the raw image, bounds it to 1280px on the longer
// side, flattens transparency onto white, and re-encodes as JPEG.
// Returns the encoded bytes and the decoded source for reuse.
func Normalize(data []byte) ([]byte, image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}

	encoded, err := encodeBounded(img, normalizedMaxDim)
	if err != nil {
		return nil, nil, err
	}
	return encoded, img, nil
}

// Thumbnail produces a small JPEG preview from a decoded image.
func Thumbnail(img image.Image) ([]byte, error) {
	return encodeBounded(img, thumbnailMaxDim)
}

func encodeBounded(img image.Image, maxDim int) ([]byte, error) {
	bounded := boundDimensions(img, maxDim)
	flat := flatten(bounded)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func boundDimensions(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}
	if width >= height {
		return resize.Resize(uint(maxDim), 0, img, resize.Lanczos3)
	}
	return resize.Resize(0, uint(maxDim), img, resize.Lanczos3)
}

// flatten composites the image over an opaque white background so the
// JPEG encoder never sees alpha.
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)
	return flat
}
