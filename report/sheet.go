package report

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	sheetPad    = 8
	labelHeight = 18
)

var (
	sheetBackground = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	labelColor      = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	missingColor    = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
)

// Panel is one labelled image of a sheet. A nil Image leaves an empty slot.
type Panel struct {
	Label string
	Image image.Image
}

// Sheet lays the panels out left to right, each under its label.
func Sheet(panels ...Panel) *image.NRGBA {
	w, h := sheetPad, 0
	for _, p := range panels {
		pw, ph := panelSize(p)
		w += pw + sheetPad
		h = max(h, ph)
	}
	h += labelHeight + 2*sheetPad

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Rect, image.NewUniform(sheetBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: out, Src: image.NewUniform(labelColor), Face: face}

	x := sheetPad
	for _, p := range panels {
		pw, ph := panelSize(p)
		d.Dot = fixed.P(x, sheetPad+face.Ascent)
		d.DrawString(p.Label)

		top := sheetPad + labelHeight
		r := image.Rect(x, top, x+pw, top+ph)
		if p.Image != nil {
			draw.Draw(out, r, p.Image, p.Image.Bounds().Min, draw.Over)
		} else {
			draw.Draw(out, r, image.NewUniform(missingColor), image.Point{}, draw.Src)
		}
		x += pw + sheetPad
	}
	return out
}

// panelSize returns the slot size: the image size, or enough room for the
// label when there is no image.
func panelSize(p Panel) (int, int) {
	lw := font.MeasureString(basicfont.Face7x13, p.Label).Ceil()
	if p.Image == nil {
		return max(lw, 32), 32
	}
	b := p.Image.Bounds()
	return max(b.Dx(), lw), b.Dy()
}
