// Package normalize prepares two captures for pixelwise comparison.
//
// Both images are scaled by one shared factor and composited over an opaque
// background color that real content is unlikely to use, so transparent
// regions compare equal and size differences show up as background.
package normalize

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Default option values.
const (
	// DefaultMaxSide bounds the longest side of the compared rasters.
	DefaultMaxSide = 512
)

// DefaultBackground is the canvas fill color. It is opaque and sits in a
// corner of the RGB cube that UI content almost never uses.
var DefaultBackground = color.NRGBA{R: 1, G: 255, B: 254, A: 255}

// epsilon absorbs float error before rounding scaled sizes up.
const epsilon = 1e-9

// Options configures normalization.
type Options struct {
	// MaxSide is the longest side the larger raster is scaled to.
	MaxSide int

	// Background is the opaque color both canvases are filled with.
	Background color.NRGBA

	// Scaler resamples images when the scale factor is not 1.
	Scaler draw.Scaler

	// NoUpscale caps the scale factor at 1, comparing small captures at
	// their native resolution.
	NoUpscale bool
}

// DefaultOptions returns the default normalization options.
func DefaultOptions() Options {
	return Options{
		MaxSide:    DefaultMaxSide,
		Background: DefaultBackground,
		Scaler:     draw.ApproxBiLinear,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSide <= 0 {
		o.MaxSide = d.MaxSide
	}
	if o.Background.A == 0 {
		o.Background = d.Background
	}
	if o.Scaler == nil {
		o.Scaler = d.Scaler
	}
	return o
}

// ScaleFactor returns the factor both images are scaled by.
//
// The factor fits the longest side of the larger raster into MaxSide. It is
// doubled when that raster is not square, since shrinking narrow or wide
// captures as hard as square ones loses too much structure to diff reliably.
// Small captures are scaled up the same way large ones are scaled down.
// NoUpscale caps the factor at 1.
func ScaleFactor(actual, expected image.Rectangle, opts Options) float64 {
	opts = opts.withDefaults()

	larger := expected
	if max(actual.Dx(), actual.Dy()) > max(expected.Dx(), expected.Dy()) {
		larger = actual
	}

	side := max(larger.Dx(), larger.Dy())
	if side == 0 {
		return 1
	}

	s := float64(opts.MaxSide) / float64(side)
	if larger.Dx() != larger.Dy() {
		s *= 2
	}
	if opts.NoUpscale && s > 1 {
		s = 1
	}
	return s
}

// ScaledSize returns the size of r scaled by s, rounding both sides up.
func ScaledSize(r image.Rectangle, s float64) image.Point {
	return image.Point{
		X: int(math.Ceil(float64(r.Dx())*s - epsilon)),
		Y: int(math.Ceil(float64(r.Dy())*s - epsilon)),
	}
}

// Pair is the normalized output: two opaque images of identical size.
type Pair struct {
	Actual   *image.NRGBA
	Expected *image.NRGBA
	Scale    float64
}

// Normalize scales actual and expected by a shared factor and draws each onto
// its own canvas the size of the scaled expected image.
//
// The returned images are new allocations; the inputs are never modified or
// aliased.
func Normalize(actual, expected image.Image, opts Options) Pair {
	opts = opts.withDefaults()

	ab, eb := actual.Bounds(), expected.Bounds()
	s := ScaleFactor(ab, eb, opts)
	canvas := ScaledSize(eb, s)

	return Pair{
		Actual:   compose(actual, s, canvas, opts),
		Expected: compose(expected, s, canvas, opts),
		Scale:    s,
	}
}

func compose(src image.Image, s float64, canvas image.Point, opts Options) *image.NRGBA {
	dst := image.NewNRGBA(image.Rectangle{Max: canvas})
	draw.Draw(dst, dst.Rect, image.NewUniform(opts.Background), image.Point{}, draw.Src)

	sb := src.Bounds()
	if s == 1 {
		draw.Draw(dst, image.Rectangle{Max: sb.Size()}, src, sb.Min, draw.Over)
		return dst
	}

	dr := image.Rectangle{Max: ScaledSize(sb, s)}
	opts.Scaler.Scale(dst, dr, src, sb, draw.Over, nil)
	return dst
}
