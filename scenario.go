package vrt

import (
	"context"
	"iter"
)

// Scenario drives a subject and yields screenshots in order.
//
// The sequence is consumed once. Yielding a non-nil error stops the test.
// Screenshots must be taken at CaptureDensity, as Capture does; any other
// density fails the test with ErrInvalidImage.
type Scenario func(ctx context.Context, subj Subject) iter.Seq2[*Image, error]

// Step mutates the subject before the next screenshot.
type Step func(ctx context.Context, subj Subject) error

// Capture takes a screenshot of subj at CaptureDensity.
func Capture(ctx context.Context, subj Subject) (*Image, error) {
	return subj.Capture(ctx, CaptureDensity)
}

// Steps returns a scenario that runs each step and captures after it.
// A nil step captures the subject unchanged.
//
// Example:
//
//	s.It("toggle", vrt.Steps(nil, press, release))
func Steps(steps ...Step) Scenario {
	return func(ctx context.Context, subj Subject) iter.Seq2[*Image, error] {
		return func(yield func(*Image, error) bool) {
			for _, step := range steps {
				if step != nil {
					if err := step(ctx, subj); err != nil {
						yield(nil, err)
						return
					}
				}
				img, err := Capture(ctx, subj)
				if !yield(img, err) || err != nil {
					return
				}
			}
		}
	}
}

// Snapshot returns a scenario with a single screenshot of the initial state.
func Snapshot() Scenario {
	return Steps(nil)
}
