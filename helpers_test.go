package vrt

import (
	"context"
	"fmt"
	"image/color"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func solid(w, h int, c color.NRGBA) *Image {
	img := NewImage(w, h)
	img.Fill(c)
	return img
}

// withBlock returns a copy of img with a filled square at (x, y).
func withBlock(img *Image, x, y, size int, c color.NRGBA) *Image {
	out := img.Clone()
	for yy := y; yy < y+size; yy++ {
		for xx := x; xx < x+size; xx++ {
			out.Set(xx, yy, c)
		}
	}
	return out
}

// fakeSubject returns its frames in order, repeating the last one.
type fakeSubject struct {
	f      *fakeFactory
	frames []*Image
	next   int
}

func (s *fakeSubject) Capture(_ context.Context, density float64) (*Image, error) {
	if density != CaptureDensity {
		return nil, fmt.Errorf("capture at density %v", density)
	}
	img := s.frames[min(s.next, len(s.frames)-1)]
	s.next++
	return img.Clone(), nil
}

func (s *fakeSubject) Destroy() error {
	s.f.destroyed++
	return nil
}

type fakeFactory struct {
	frames    []*Image
	configs   []SubjectConfig
	destroyed int
	err       error
}

func newFactory(frames ...*Image) *fakeFactory {
	return &fakeFactory{frames: frames}
}

func (f *fakeFactory) NewSubject(_ context.Context, cfg SubjectConfig) (Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.configs = append(f.configs, cfg)
	return &fakeSubject{f: f, frames: f.frames}, nil
}

// shots returns a scenario capturing n times.
func shots(n int) Scenario {
	return Steps(make([]Step, n)...)
}
