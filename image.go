package vrt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/vrt/internal/imageio"
)

// ErrInvalidImage is returned for images with non-positive dimensions or a
// pixel buffer of the wrong length.
var ErrInvalidImage = errors.New("vrt: invalid image")

// Image is a captured or loaded raster: non-premultiplied RGBA, 4 bytes per
// pixel, row-major, with the device pixel density it was captured at.
//
// Images returned by Clone and by normalization are independent copies.
type Image struct {
	width   int
	height  int
	density float64
	data    []uint8
}

// NewImage creates a transparent image with density 1.
func NewImage(width, height int) *Image {
	width, height = max(width, 0), max(height, 0)
	return &Image{
		width:   width,
		height:  height,
		density: 1,
		data:    make([]uint8, width*height*4),
	}
}

// NewImageFromData wraps an RGBA buffer without copying.
func NewImageFromData(width, height int, density float64, data []uint8) (*Image, error) {
	if width <= 0 || height <= 0 || len(data) != width*height*4 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidImage, width, height, len(data))
	}
	if density <= 0 {
		density = 1
	}
	return &Image{width: width, height: height, density: density, data: data}, nil
}

// ImageFromStd copies any image.Image into a new Image.
func ImageFromStd(img image.Image, density float64) *Image {
	n := imageio.ToNRGBA(img)
	b := n.Rect
	out := NewImage(b.Dx(), b.Dy())
	if density > 0 {
		out.density = density
	}
	for y := range b.Dy() {
		copy(out.data[y*b.Dx()*4:(y+1)*b.Dx()*4], n.Pix[y*n.Stride:])
	}
	return out
}

// DecodeImage decodes a PNG baseline. Baselines are always density 1.
func DecodeImage(data []byte) (*Image, error) {
	n, err := imageio.DecodePNG(data)
	if err != nil {
		return nil, err
	}
	return ImageFromStd(n, 1), nil
}

// Width returns the width of the image.
func (i *Image) Width() int { return i.width }

// Height returns the height of the image.
func (i *Image) Height() int { return i.height }

// Density returns the device pixel density the image was captured at.
func (i *Image) Density() float64 { return i.density }

// Data returns the raw pixel data.
func (i *Image) Data() []uint8 { return i.data }

// Bounds returns the image rectangle at the origin.
func (i *Image) Bounds() image.Rectangle { return image.Rect(0, 0, i.width, i.height) }

// At returns the color of a single pixel; out-of-range pixels are transparent.
func (i *Image) At(x, y int) color.NRGBA {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return color.NRGBA{}
	}
	o := (y*i.width + x) * 4
	return color.NRGBA{R: i.data[o], G: i.data[o+1], B: i.data[o+2], A: i.data[o+3]}
}

// Set sets the color of a single pixel; out-of-range pixels are ignored.
func (i *Image) Set(x, y int, c color.NRGBA) {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return
	}
	o := (y*i.width + x) * 4
	i.data[o], i.data[o+1], i.data[o+2], i.data[o+3] = c.R, c.G, c.B, c.A
}

// Fill sets every pixel to c.
func (i *Image) Fill(c color.NRGBA) {
	for o := 0; o < len(i.data); o += 4 {
		i.data[o], i.data[o+1], i.data[o+2], i.data[o+3] = c.R, c.G, c.B, c.A
	}
}

// Clone returns a deep copy of the image.
func (i *Image) Clone() *Image {
	data := make([]uint8, len(i.data))
	copy(data, i.data)
	return &Image{width: i.width, height: i.height, density: i.density, data: data}
}

// NRGBA returns a view of the pixels as *image.NRGBA. The view shares the
// buffer; treat it as read-only.
func (i *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: i.data, Stride: i.width * 4, Rect: i.Bounds()}
}

// Equal reports whether both images have identical size and pixels.
func (i *Image) Equal(o *Image) bool {
	return i.width == o.width && i.height == o.height && bytes.Equal(i.data, o.data)
}

// EncodePNG encodes the image as PNG.
func (i *Image) EncodePNG() ([]byte, error) {
	return imageio.EncodePNG(i.NRGBA())
}
