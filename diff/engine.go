// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diff

import (
	"image"
	"log/slog"

	"github.com/gogpu/vrt/internal/parallel"
)

// Outcome is the result category of a single image comparison.
type Outcome uint8

const (
	// Match means the images are considered the same.
	Match Outcome = iota

	// Mismatch means the differences are significant.
	Mismatch

	// BaselineRecorded means no comparison ran; the capture became the baseline.
	BaselineRecorded
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case BaselineRecorded:
		return "recorded"
	default:
		return "unknown"
	}
}

// Verdict is the judged result of comparing one capture with its baseline.
type Verdict struct {
	Outcome Outcome

	// DiffPixels is the raw number of flagged pixels.
	DiffPixels int

	// SignificantPixels is the summed size of significant clusters.
	// Always <= DiffPixels.
	SignificantPixels int

	// Clusters is the number of connected components in the mask.
	Clusters int

	// SignificantClusters is the number of components of at least
	// MinClusterSize pixels.
	SignificantClusters int

	// Diff, Actual and Expected are kept for diagnostics. Diff is nil for
	// identical images and recorded baselines.
	Diff     *image.NRGBA
	Actual   *image.NRGBA
	Expected *image.NRGBA
}

// Passed reports whether the verdict does not fail a test.
func (v Verdict) Passed() bool {
	return v.Outcome != Mismatch
}

// LogValue implements slog.LogValuer.
func (v Verdict) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("outcome", v.Outcome.String()),
		slog.Int("diff_pixels", v.DiffPixels),
		slog.Int("significant_pixels", v.SignificantPixels),
		slog.Int("clusters", v.Clusters),
		slog.Int("significant_clusters", v.SignificantClusters),
	)
}

// Judge applies the significance test to a set of cluster sizes.
//
// The result is Match when there are no significant pixels, or when the
// significant pixels stay within MaxSignificantPixels and are spread over at
// most MaxSignificantClusters clusters.
func Judge(clusters []int, t Thresholds) Verdict {
	v := Verdict{Clusters: len(clusters)}
	for _, s := range clusters {
		v.DiffPixels += s
	}
	v.SignificantClusters, v.SignificantPixels = Significant(clusters, t.MinClusterSize)

	switch {
	case v.DiffPixels == 0, v.SignificantPixels == 0:
		v.Outcome = Match
	case v.SignificantPixels <= t.MaxSignificantPixels && v.SignificantClusters <= t.MaxSignificantClusters:
		v.Outcome = Match
	default:
		v.Outcome = Mismatch
	}
	return v
}

// Engine compares normalized image pairs and judges the differences.
//
// An Engine is safe for concurrent use once configured.
type Engine struct {
	thresholds Thresholds
	pool       *parallel.WorkerPool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithThresholds sets the comparison thresholds.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithWorkers compares large images on n goroutines. n <= 0 uses GOMAXPROCS.
// Call Close to release the workers.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.pool = parallel.NewWorkerPool(n)
	}
}

// NewEngine creates an Engine with DefaultThresholds unless overridden.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the engine's thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Workers returns the number of pooled workers, or 0 when comparisons run
// on the calling goroutine.
func (e *Engine) Workers() int {
	if e.pool == nil {
		return 0
	}
	return e.pool.Workers()
}

// With returns a copy of the engine using t. The copy shares the worker pool.
func (e *Engine) With(t Thresholds) *Engine {
	c := *e
	c.thresholds = t
	return &c
}

// Compare compares actual against expected and returns the verdict.
// The images must have the same size; see ErrSizeMismatch.
func (e *Engine) Compare(actual, expected image.Image) (Verdict, error) {
	res, err := compare(actual, expected, e.thresholds, e.pool)
	if err != nil {
		return Verdict{}, err
	}

	a, x := toNRGBA(actual), toNRGBA(expected)

	// Nothing flagged: skip clustering entirely.
	if res.DiffPixels == 0 {
		return Verdict{Outcome: Match, Actual: a, Expected: x}, nil
	}

	v := Judge(FindClusters(res.Mask), e.thresholds)
	v.Diff, v.Actual, v.Expected = res.Diff, a, x
	return v, nil
}

// Close releases the worker pool, if any.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}
