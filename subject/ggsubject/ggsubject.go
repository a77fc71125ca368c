// Package ggsubject renders test subjects with the gg 2D graphics library.
//
// A subject has a logical size and is drawn by a DrawFunc in logical
// coordinates. Captures re-render the current DrawFunc at the requested
// pixel density, so a capture at density 1 is pixel-exact rather than a
// downsampled high-density frame.
package ggsubject

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gg"

	"github.com/gogpu/vrt"
)

// ErrDestroyed is returned when capturing a destroyed subject.
var ErrDestroyed = errors.New("ggsubject: subject destroyed")

// ErrNotGGSubject is returned by Update for subjects of other packages.
var ErrNotGGSubject = errors.New("ggsubject: subject is not a *ggsubject.Subject")

// DrawFunc draws the subject. dc is already scaled to the render density.
type DrawFunc func(dc *gg.Context) error

// Subject is a vrt.Subject drawn with gg.
type Subject struct {
	width   int
	height  int
	density float64

	mu        sync.Mutex
	draw      DrawFunc
	destroyed bool
}

// New creates a subject of the given logical size.
func New(width, height int, density float64, draw DrawFunc) *Subject {
	if density <= 0 {
		density = 1
	}
	return &Subject{width: width, height: height, density: density, draw: draw}
}

// Factory returns a vrt.SubjectFactory creating subjects of the given
// logical size, each starting with draw and the frame's density.
func Factory(width, height int, draw DrawFunc) vrt.SubjectFactory {
	return vrt.SubjectFactoryFunc(func(_ context.Context, cfg vrt.SubjectConfig) (vrt.Subject, error) {
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("ggsubject: invalid size %dx%d", width, height)
		}
		return New(width, height, cfg.Density, draw), nil
	})
}

// Density returns the density the subject renders at by default.
func (s *Subject) Density() float64 { return s.density }

// SetDraw replaces the draw function used by subsequent captures.
func (s *Subject) SetDraw(draw DrawFunc) {
	s.mu.Lock()
	s.draw = draw
	s.mu.Unlock()
}

// Render draws the subject at its own density.
func (s *Subject) Render(ctx context.Context) (*vrt.Image, error) {
	return s.Capture(ctx, s.density)
}

// Capture implements vrt.Subject.
func (s *Subject) Capture(ctx context.Context, density float64) (*vrt.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	draw, destroyed := s.draw, s.destroyed
	s.mu.Unlock()
	if destroyed {
		return nil, ErrDestroyed
	}
	if density <= 0 {
		density = 1
	}

	w := int(math.Ceil(float64(s.width) * density))
	h := int(math.Ceil(float64(s.height) * density))
	dc := gg.NewContext(w, h)
	defer func() { _ = dc.Close() }()

	dc.Scale(density, density)
	if draw != nil {
		if err := draw(dc); err != nil {
			return nil, fmt.Errorf("ggsubject: draw: %w", err)
		}
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("ggsubject: flush: %w", err)
	}

	img := vrt.ImageFromStd(dc.Image(), density)
	vrt.Logger().Debug("ggsubject: captured", "width", w, "height", h, "density", density)
	return img, nil
}

// Destroy implements vrt.Subject.
func (s *Subject) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.destroyed = true
	return nil
}

// Update returns a step that switches a *Subject to draw.
//
// Example:
//
//	s.It("pressed", vrt.Steps(nil, ggsubject.Update(drawPressed)))
func Update(draw DrawFunc) vrt.Step {
	return func(_ context.Context, subj vrt.Subject) error {
		s, ok := subj.(*Subject)
		if !ok {
			return ErrNotGGSubject
		}
		s.SetDraw(draw)
		return nil
	}
}

// Fill returns a DrawFunc filling the whole canvas with an opaque color.
func Fill(r, g, b float64) DrawFunc {
	return func(dc *gg.Context) error {
		// The canvas size is in device pixels, so fill it untransformed.
		dc.Push()
		defer dc.Pop()
		dc.Identity()
		dc.SetRGB(r, g, b)
		dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
		return dc.Fill()
	}
}
