// Package imageio encodes and decodes baseline images.
package imageio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
)

// I/O errors.
var (
	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("imageio: empty data")
)

// dataURIPrefix prefixes inline PNG data URIs.
const dataURIPrefix = "data:image/png;base64,"

// encoder compresses for speed; baselines are written once and read often,
// and the default level dominates recording time on large captures.
var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// DecodePNG decodes PNG bytes into a zero-origin NRGBA image.
func DecodePNG(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes a PNG image from r.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imageio: decode PNG: %w", err)
	}
	return ToNRGBA(img), nil
}

// Encode writes img to w as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := encoder.Encode(w, img); err != nil {
		return fmt.Errorf("imageio: encode PNG: %w", err)
	}
	return nil
}

// EncodePNG encodes img as PNG and returns the bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI encodes img as an inline data:image/png URI for diagnostics.
func DataURI(img image.Image) (string, error) {
	if img == nil {
		return "", nil
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// ToNRGBA converts img to a zero-origin NRGBA image.
// An NRGBA image already at the origin is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()

	// Fast path for NRGBA images
	if n, ok := img.(*image.NRGBA); ok {
		if b.Min == (image.Point{}) {
			return n
		}
		out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := range b.Dy() {
			src := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src[:b.Dx()*4])
		}
		return out
	}

	// Generic path converts premultiplied and paletted images alike.
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}
