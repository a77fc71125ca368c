// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diff

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/vrt/internal/parallel"
)

// ErrSizeMismatch is returned when the compared images differ in size.
var ErrSizeMismatch = errors.New("diff: image sizes differ")

// Colors used in the diff image for tolerated differences.
var (
	// AntiAliasedColor marks pixels skipped as antialiasing.
	AntiAliasedColor = color.NRGBA{R: 255, G: 255, B: 0, A: 255}

	// ShiftedColor marks pixels skipped by the shift tolerance.
	ShiftedColor = color.NRGBA{R: 255, G: 160, B: 0, A: 255}
)

// pixel classification written by the comparison pass
const (
	pixelSame uint8 = iota
	pixelDiff
	pixelAntiAliased
	pixelShifted
)

// Result is the raw output of a pixel comparison.
type Result struct {
	// Mask flags every differing pixel.
	Mask *Mask

	// Diff visualizes the comparison: flagged pixels in DiffColor,
	// tolerated ones in AntiAliasedColor or ShiftedColor, the rest as faded
	// grayscale of the expected image.
	Diff *image.NRGBA

	// DiffPixels is the number of flagged pixels.
	DiffPixels int
}

// Compare runs the perceptual per-pixel comparison of actual against expected.
//
// Both images must have the same size. Colors are compared in YIQ space after
// blending onto white; differences on antialiased edges are ignored unless
// t.IncludeAntiAliased is set, and pixels that reappear within
// t.ShiftThreshold pixels in both directions are tolerated.
func Compare(actual, expected image.Image, t Thresholds) (*Result, error) {
	return compare(actual, expected, t, nil)
}

func compare(actual, expected image.Image, t Thresholds, pool *parallel.WorkerPool) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	ab, eb := actual.Bounds(), expected.Bounds()
	if ab.Dx() != eb.Dx() || ab.Dy() != eb.Dy() {
		return nil, fmt.Errorf("%w: actual %dx%d, expected %dx%d",
			ErrSizeMismatch, ab.Dx(), ab.Dy(), eb.Dx(), eb.Dy())
	}

	a, e := toNRGBA(actual), toNRGBA(expected)
	w, h := ab.Dx(), ab.Dy()

	c := comparison{
		a:        a,
		e:        e,
		w:        w,
		h:        h,
		t:        t,
		maxDelta: t.maxDelta(),
		states:   make([]uint8, w*h),
		out:      image.NewNRGBA(image.Rect(0, 0, w, h)),
	}

	pool.Rows(h, c.rows)

	res := &Result{Mask: NewMask(w, h), Diff: c.out}
	for i, s := range c.states {
		if s == pixelDiff {
			res.Mask.Set(i%w, i/w)
			res.DiffPixels++
		}
	}
	return res, nil
}

// comparison holds the read-only inputs and the per-pixel outputs of one
// Compare call. Bands write disjoint rows of states and out.
type comparison struct {
	a, e     *image.NRGBA
	w, h     int
	t        Thresholds
	maxDelta float64
	states   []uint8
	out      *image.NRGBA
}

func (c *comparison) rows(y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := range c.w {
			c.states[y*c.w+x] = c.classify(x, y)
			c.paint(x, y)
		}
	}
}

func (c *comparison) classify(x, y int) uint8 {
	ai, ei := c.a.PixOffset(x, y), c.e.PixOffset(x, y)
	if samePixel(c.a.Pix[ai:ai+4], c.e.Pix[ei:ei+4]) {
		return pixelSame
	}

	delta := colorDelta(c.a.Pix[ai:ai+4], c.e.Pix[ei:ei+4], false)
	if abs(delta) <= c.maxDelta {
		return pixelSame
	}

	if !c.t.IncludeAntiAliased && (antialiased(c.a, x, y, c.w, c.h, c.e) || antialiased(c.e, x, y, c.w, c.h, c.a)) {
		return pixelAntiAliased
	}

	if r := c.t.ShiftThreshold; r > 0 && c.shifted(c.a, c.e, x, y, r) && c.shifted(c.e, c.a, x, y, r) {
		return pixelShifted
	}

	return pixelDiff
}

// shifted reports whether src's pixel at (x, y) matches any pixel of other
// within radius r.
func (c *comparison) shifted(src, other *image.NRGBA, x, y, r int) bool {
	si := src.PixOffset(x, y)
	p := src.Pix[si : si+4]

	for ny := max(y-r, 0); ny <= min(y+r, c.h-1); ny++ {
		for nx := max(x-r, 0); nx <= min(x+r, c.w-1); nx++ {
			oi := other.PixOffset(nx, ny)
			if abs(colorDelta(p, other.Pix[oi:oi+4], false)) <= c.maxDelta {
				return true
			}
		}
	}
	return false
}

func (c *comparison) paint(x, y int) {
	o := c.out.PixOffset(x, y)
	dst := c.out.Pix[o : o+4]

	var col color.NRGBA
	switch c.states[y*c.w+x] {
	case pixelDiff:
		col = DiffColor
	case pixelAntiAliased:
		col = AntiAliasedColor
	case pixelShifted:
		col = ShiftedColor
	default:
		ei := c.e.PixOffset(x, y)
		p := c.e.Pix[ei : ei+4]
		yv := rgb2y(float64(p[0]), float64(p[1]), float64(p[2]))
		v := clampByte(255 + (yv-255)*c.t.Alpha*float64(p[3])/255)
		col = color.NRGBA{R: v, G: v, B: v, A: 255}
	}

	dst[0], dst[1], dst[2], dst[3] = col.R, col.G, col.B, col.A
}

// antialiased reports whether the pixel at (x1, y1) of img looks like part of
// an antialiased edge: it has both darker and brighter neighbors, and either
// extreme sits inside a flat region in both images.
func antialiased(img *image.NRGBA, x1, y1, w, h int, other *image.NRGBA) bool {
	x0, y0 := max(x1-1, 0), max(y1-1, 0)
	x2, y2 := min(x1+1, w-1), min(y1+1, h-1)

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	ci := img.PixOffset(x1, y1)
	center := img.Pix[ci : ci+4]

	for y := y0; y <= y2; y++ {
		for x := x0; x <= x2; x++ {
			if x == x1 && y == y1 {
				continue
			}
			ni := img.PixOffset(x, y)
			delta := colorDelta(center, img.Pix[ni:ni+4], true)

			switch {
			case delta == 0:
				zeroes++
				if zeroes > 2 {
					return false
				}
			case delta < minDelta:
				minDelta, minX, minY = delta, x, y
			case delta > maxDelta:
				maxDelta, maxX, maxY = delta, x, y
			}
		}
	}

	if minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY, w, h) && hasManySiblings(other, minX, minY, w, h)) ||
		(hasManySiblings(img, maxX, maxY, w, h) && hasManySiblings(other, maxX, maxY, w, h))
}

// hasManySiblings reports whether at least three neighbors of (x1, y1) have
// exactly the same color.
func hasManySiblings(img *image.NRGBA, x1, y1, w, h int) bool {
	x0, y0 := max(x1-1, 0), max(y1-1, 0)
	x2, y2 := min(x1+1, w-1), min(y1+1, h-1)

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	ci := img.PixOffset(x1, y1)
	center := img.Pix[ci : ci+4]

	for y := y0; y <= y2; y++ {
		for x := x0; x <= x2; x++ {
			if x == x1 && y == y1 {
				continue
			}
			ni := img.PixOffset(x, y)
			if samePixel(center, img.Pix[ni:ni+4]) {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}
	return false
}

// colorDelta returns the signed perceptual distance between two NRGBA
// pixels, after blending both onto white. The sign is negative when p1 is
// brighter. With yOnly, only the luma difference is returned.
func colorDelta(p1, p2 []uint8, yOnly bool) float64 {
	r1, g1, b1 := blendWhite(p1)
	r2, g2, b2 := blendWhite(p2)

	y1, y2 := rgb2y(r1, g1, b1), rgb2y(r2, g2, b2)
	dy := y1 - y2
	if yOnly {
		return dy
	}

	di := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	dq := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)
	delta := 0.5053*dy*dy + 0.299*di*di + 0.1957*dq*dq

	if y1 > y2 {
		return -delta
	}
	return delta
}

func blendWhite(p []uint8) (r, g, b float64) {
	r, g, b = float64(p[0]), float64(p[1]), float64(p[2])
	if a := p[3]; a < 255 {
		f := float64(a) / 255
		r = 255 + (r-255)*f
		g = 255 + (g-255)*f
		b = 255 + (b-255)*f
	}
	return r, g, b
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

func samePixel(p1, p2 []uint8) bool {
	return p1[0] == p2[0] && p1[1] == p2[1] && p1[2] == p2[2] && p1[3] == p2[3]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// toNRGBA returns img as a zero-origin *image.NRGBA, converting if needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Rect, img, b.Min, draw.Src)
	return n
}
