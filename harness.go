package vrt

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/gogpu/vrt/diff"
	"github.com/gogpu/vrt/internal/normalize"
	"github.com/gogpu/vrt/store"
)

// ArtifactSink receives every mismatch, e.g. to write the compared images
// next to a report. Errors are logged and never fail the test a second time.
type ArtifactSink interface {
	WriteMismatch(ctx context.Context, err *MismatchError) error
}

// Harness runs screenshot tests against a baseline store.
//
// A Harness is immutable after NewHarness and may be shared by runners.
type Harness struct {
	store     store.Store
	subjects  SubjectFactory
	engine    *diff.Engine
	normalize normalize.Options
	root      Frame
	strict    bool
	observers []Observer
	artifacts ArtifactSink
}

// NewHarness creates a Harness. WithStore and WithSubjects are required.
func NewHarness(opts ...HarnessOption) (*Harness, error) {
	h := &Harness{
		root:      DefaultFrame(),
		normalize: normalize.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.store == nil {
		return nil, ErrNoStore
	}
	if h.subjects == nil {
		return nil, ErrNoSubjects
	}
	if err := h.root.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if h.engine == nil {
		h.engine = diff.NewEngine()
	}
	return h, nil
}

// Root returns the frame every run starts from.
func (h *Harness) Root() Frame { return h.root }

// Store returns the baseline store.
func (h *Harness) Store() store.Store { return h.store }

// RunTest runs one test in frame f.
//
// The test identity is f.Identity(name). On the first run the captures are
// recorded as the baseline; afterwards each capture is compared with its
// baseline and the first mismatch fails the test.
func (h *Harness) RunTest(ctx context.Context, f Frame, name string, scenario Scenario) *TestResult {
	start := time.Now()
	res := &TestResult{Identity: f.Identity(name), Name: name}

	res.Verdicts, res.Err = h.runTest(ctx, f, res.Identity, scenario)
	res.Duration = time.Since(start)
	res.Status = statusOf(res)

	Logger().Info("vrt: test finished", "test", res)
	return res
}

func statusOf(r *TestResult) Status {
	if r.Err != nil {
		return StatusFailed
	}
	for _, v := range r.Verdicts {
		if v.Outcome != diff.BaselineRecorded {
			return StatusPassed
		}
	}
	return StatusRecorded
}

func (h *Harness) runTest(ctx context.Context, f Frame, id string, scenario Scenario) ([]diff.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scenario == nil {
		return nil, fmt.Errorf("vrt: %s: nil scenario", id)
	}
	if err := f.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("vrt: %s: %w", id, err)
	}

	meta, recorded, err := h.readMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	subj, err := h.subjects.NewSubject(ctx, SubjectConfig{Identity: id, Density: f.Density})
	if err != nil {
		return nil, fmt.Errorf("vrt: %s: create subject: %w", id, err)
	}
	defer func() {
		if err := subj.Destroy(); err != nil {
			Logger().Warn("vrt: destroy subject", "identity", id, "error", err)
		}
	}()

	shots, err := collect(ctx, scenario(ctx, subj))
	if err != nil {
		return nil, fmt.Errorf("vrt: %s: %w", id, err)
	}
	if len(shots) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScreenshots, id)
	}

	if !recorded {
		return h.record(ctx, id, shots)
	}
	if meta.NumScreenshots != len(shots) {
		return nil, &CountMismatchError{Identity: id, Expected: meta.NumScreenshots, Actual: len(shots)}
	}
	return h.compare(ctx, f, id, shots)
}

// readMetadata returns the recorded metadata and whether there was any.
func (h *Harness) readMetadata(ctx context.Context, id string) (Metadata, bool, error) {
	data, err := h.store.ReadFile(ctx, MetadataKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("vrt: %s: read metadata: %w", id, err)
	}
	m, err := parseMetadata(data)
	if err != nil {
		return Metadata{}, false, fmt.Errorf("vrt: %s: %w", id, err)
	}
	return m, true, nil
}

// collect drains a scenario. The first error stops the scenario.
func collect(ctx context.Context, seq iter.Seq2[*Image, error]) ([]*Image, error) {
	var shots []*Image
	for img, err := range seq {
		if err != nil {
			return shots, err
		}
		if img == nil {
			return shots, fmt.Errorf("%w: nil screenshot %d", ErrInvalidImage, len(shots))
		}
		if d := img.Density(); d != CaptureDensity {
			return shots, fmt.Errorf("%w: screenshot %d captured at density %v, want %v",
				ErrInvalidImage, len(shots), d, CaptureDensity)
		}
		shots = append(shots, img)
		if err := ctx.Err(); err != nil {
			return shots, err
		}
	}
	return shots, nil
}

// record writes every capture and then the metadata. Metadata goes last so an
// interrupted recording is retried from scratch on the next run.
func (h *Harness) record(ctx context.Context, id string, shots []*Image) ([]diff.Verdict, error) {
	verdicts := make([]diff.Verdict, 0, len(shots))
	for i, img := range shots {
		if err := h.writeImage(ctx, id, i, img); err != nil {
			return verdicts, err
		}
		verdicts = append(verdicts, recordedVerdict(img))
	}

	data, err := Metadata{NumScreenshots: len(shots)}.marshal()
	if err != nil {
		return verdicts, fmt.Errorf("vrt: %s: %w", id, err)
	}
	if err := h.store.WriteFile(ctx, MetadataKey(id), data); err != nil {
		return verdicts, fmt.Errorf("vrt: %s: write metadata: %w", id, err)
	}

	Logger().Info("vrt: baseline recorded", "identity", id, "screenshots", len(shots))
	return verdicts, nil
}

func (h *Harness) compare(ctx context.Context, f Frame, id string, shots []*Image) ([]diff.Verdict, error) {
	engine := h.engine.With(f.Thresholds)
	verdicts := make([]diff.Verdict, 0, len(shots))

	for i, img := range shots {
		data, err := h.store.ReadFile(ctx, ImageKey(id, i))
		switch {
		case errors.Is(err, store.ErrNotFound):
			if h.strict {
				return verdicts, &MissingBaselineError{Identity: id, Index: i}
			}
			if err := h.writeImage(ctx, id, i, img); err != nil {
				return verdicts, err
			}
			Logger().Warn("vrt: missing baseline image recorded", "identity", id, "index", i)
			verdicts = append(verdicts, recordedVerdict(img))
			continue
		case err != nil:
			return verdicts, fmt.Errorf("vrt: %s: read baseline %d: %w", id, i, err)
		}

		expected, err := DecodeImage(data)
		if err != nil {
			return verdicts, fmt.Errorf("vrt: %s: decode baseline %d: %w", id, i, err)
		}

		pair := normalize.Normalize(img.NRGBA(), expected.NRGBA(), h.normalize)
		v, err := engine.Compare(pair.Actual, pair.Expected)
		if err != nil {
			return verdicts, fmt.Errorf("vrt: %s: compare %d: %w", id, i, err)
		}
		Logger().Debug("vrt: compared", "identity", id, "index", i, "verdict", v)

		if v.Outcome == diff.Mismatch {
			verdicts = append(verdicts, v)
			merr := &MismatchError{Identity: id, Index: i, Verdict: v}
			if h.artifacts != nil {
				if err := h.artifacts.WriteMismatch(ctx, merr); err != nil {
					Logger().Warn("vrt: write mismatch artifacts", "identity", id, "index", i, "error", err)
				}
			}
			return verdicts, merr
		}

		// Passing comparisons keep only the counts.
		v.Diff, v.Actual, v.Expected = nil, nil, nil
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

func (h *Harness) writeImage(ctx context.Context, id string, index int, img *Image) error {
	data, err := img.EncodePNG()
	if err != nil {
		return fmt.Errorf("vrt: %s: encode screenshot %d: %w", id, index, err)
	}
	if err := h.store.WriteFile(ctx, ImageKey(id, index), data); err != nil {
		return fmt.Errorf("vrt: %s: write baseline %d: %w", id, index, err)
	}
	return nil
}

func recordedVerdict(img *Image) diff.Verdict {
	return diff.Verdict{Outcome: diff.BaselineRecorded, Actual: img.NRGBA()}
}
