package vrt

import (
	"github.com/gogpu/vrt/diff"
	"github.com/gogpu/vrt/internal/normalize"
	"github.com/gogpu/vrt/store"
)

// Mode controls whether a registered suite or test is selected to run.
type Mode uint8

const (
	// ModeNormal runs unless a sibling elsewhere in the tree is focused.
	ModeNormal Mode = iota

	// ModeFocused restricts the run to focused nodes and their descendants.
	ModeFocused

	// ModeSkipped never runs.
	ModeSkipped
)

// String returns a string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeFocused:
		return "focused"
	case ModeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Option configures a suite, a test, or a frame entered on a Stack.
//
// Example:
//
//	root.Describe("buttons", func(s *vrt.Suite) {
//	    s.It("primary", scenario, vrt.WithShiftThreshold(0))
//	}, vrt.WithDensity(2))
type Option func(*nodeConfig)

// nodeConfig collects the effect of a list of Options.
type nodeConfig struct {
	mode      Mode
	shift     *int
	density   float64
	tolerance *diff.Thresholds
}

func newNodeConfig(opts []Option) *nodeConfig {
	cfg := &nodeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// applyTo overrides f with every explicitly set value.
// A full tolerance applies first so a shift override always wins.
func (c *nodeConfig) applyTo(f *Frame) {
	if c.tolerance != nil {
		f.Thresholds = *c.tolerance
	}
	if c.shift != nil {
		f.Thresholds.ShiftThreshold = *c.shift
	}
	if c.density > 0 {
		f.Density = c.density
	}
}

// Focus runs only this node (and other focused nodes).
func Focus() Option {
	return func(c *nodeConfig) { c.mode = ModeFocused }
}

// Skip excludes this node from the run.
func Skip() Option {
	return func(c *nodeConfig) { c.mode = ModeSkipped }
}

// WithShiftThreshold sets the shift tolerance for this node and its
// descendants until overridden again.
func WithShiftThreshold(pixels int) Option {
	return func(c *nodeConfig) { c.shift = &pixels }
}

// WithDensity sets the device pixel density subjects are created with.
// Captures are always taken at density 1.
func WithDensity(density float64) Option {
	return func(c *nodeConfig) { c.density = density }
}

// WithTolerance replaces all comparison thresholds for this node and its
// descendants.
func WithTolerance(t diff.Thresholds) Option {
	return func(c *nodeConfig) { c.tolerance = &t }
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithStore sets the baseline store. Required.
func WithStore(s store.Store) HarnessOption {
	return func(h *Harness) { h.store = s }
}

// WithSubjects sets the factory creating one render subject per test. Required.
func WithSubjects(f SubjectFactory) HarnessOption {
	return func(h *Harness) { h.subjects = f }
}

// WithThresholds sets the root thresholds suites inherit.
func WithThresholds(t diff.Thresholds) HarnessOption {
	return func(h *Harness) { h.root.Thresholds = t }
}

// WithRootDensity sets the density of the root frame.
func WithRootDensity(density float64) HarnessOption {
	return func(h *Harness) {
		if density > 0 {
			h.root.Density = density
		}
	}
}

// WithNormalizer sets the normalization options.
func WithNormalizer(o normalize.Options) HarnessOption {
	return func(h *Harness) { h.normalize = o }
}

// WithEngine sets the diff engine, e.g. one with parallel workers.
// Per-frame thresholds still apply.
func WithEngine(e *diff.Engine) HarnessOption {
	return func(h *Harness) { h.engine = e }
}

// WithStrictBaselines fails a test with ErrMissingBaselineImage when the
// metadata promises an image the store lacks. By default the missing image
// is recorded and the screenshot passes.
func WithStrictBaselines(strict bool) HarnessOption {
	return func(h *Harness) { h.strict = strict }
}

// WithObserver adds an observer notified of test and run progress.
func WithObserver(o Observer) HarnessOption {
	return func(h *Harness) { h.observers = append(h.observers, o) }
}

// WithArtifacts sets the sink receiving every mismatch for inspection.
func WithArtifacts(s ArtifactSink) HarnessOption {
	return func(h *Harness) { h.artifacts = s }
}
