package vrt

import "context"

// CaptureDensity is the pixel density every screenshot is taken at,
// independent of the density the subject renders with.
const CaptureDensity = 1.0

// Subject is the thing under test: a rendered page, widget, or canvas.
//
// A Subject is created for exactly one test and destroyed when the test
// ends, whatever its outcome.
type Subject interface {
	// Capture renders the current state at the given pixel density.
	Capture(ctx context.Context, density float64) (*Image, error)

	// Destroy releases the subject. It is called exactly once.
	Destroy() error
}

// SubjectConfig describes the subject a test needs.
type SubjectConfig struct {
	// Identity is the identity of the test the subject is created for.
	Identity string

	// Density is the device pixel density inherited from the suite frame.
	Density float64
}

// SubjectFactory creates subjects.
type SubjectFactory interface {
	NewSubject(ctx context.Context, cfg SubjectConfig) (Subject, error)
}

// SubjectFactoryFunc adapts a function to SubjectFactory.
type SubjectFactoryFunc func(ctx context.Context, cfg SubjectConfig) (Subject, error)

// NewSubject calls f.
func (f SubjectFactoryFunc) NewSubject(ctx context.Context, cfg SubjectConfig) (Subject, error) {
	return f(ctx, cfg)
}
