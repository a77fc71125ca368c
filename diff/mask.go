// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diff

import (
	"image"
	"image/color"
	"math/bits"
)

// DiffColor is the sentinel color of flagged pixels in a rendered mask.
var DiffColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// Mask marks which pixels of a comparison differ.
//
// Pixels are stored as a dense bitset in row-major order.
type Mask struct {
	width  int
	height int
	bits   []uint64
}

// NewMask creates an empty mask. Non-positive dimensions yield an empty mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	n := width * height
	return &Mask{
		width:  width,
		height: height,
		bits:   make([]uint64, (n+63)/64),
	}
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// Set flags the pixel at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	i := y*m.width + x
	m.bits[i>>6] |= 1 << (uint(i) & 63)
}

// At reports whether the pixel at (x, y) is flagged.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return false
	}
	return m.test(y*m.width + x)
}

func (m *Mask) test(i int) bool {
	return m.bits[i>>6]&(1<<(uint(i)&63)) != 0
}

// Count returns the number of flagged pixels.
func (m *Mask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Image renders the mask: flagged pixels in DiffColor, the rest transparent.
func (m *Mask) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.width, m.height))
	for y := range m.height {
		row := img.Pix[y*img.Stride:]
		for x := range m.width {
			if m.test(y*m.width + x) {
				o := x * 4
				row[o] = DiffColor.R
				row[o+1] = DiffColor.G
				row[o+2] = DiffColor.B
				row[o+3] = DiffColor.A
			}
		}
	}
	return img
}
