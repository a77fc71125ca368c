// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package diff implements perceptual image comparison for visual regression
// tests.
//
// A comparison runs in three stages:
//
//  1. [Compare] flags pixels whose perceptual color distance exceeds the
//     color threshold, ignoring antialiased edges and small shifts.
//  2. [FindClusters] groups flagged pixels into 8-connected components.
//  3. [Judge] decides whether the clusters amount to a real regression.
//
// [Engine] ties the stages together and returns a [Verdict].
//
// The thresholds are tuned for small raster UI and graphics captures. They
// are not meant for photographs and will not reliably catch sub-pixel,
// color-only shifts.
package diff

import (
	"errors"
	"fmt"
)

// Default threshold values.
const (
	// DefaultColorThreshold is the per-channel tolerance on a 0-255 scale.
	// 25/255 is close to pixelmatch's customary 0.1.
	DefaultColorThreshold = 25

	// DefaultMinClusterSize is the smallest connected component counted as
	// a real difference. Anything smaller is rendering jitter.
	DefaultMinClusterSize = 4

	// DefaultMaxSignificantPixels caps the summed size of significant clusters.
	DefaultMaxSignificantPixels = 40

	// DefaultMaxSignificantClusters caps how many significant clusters may appear.
	DefaultMaxSignificantClusters = 2

	// DefaultShiftThreshold is the search radius, in pixels, within which a
	// moved pixel is still considered present.
	DefaultShiftThreshold = 2

	// DefaultAlpha is the opacity of unchanged pixels in the diff image.
	DefaultAlpha = 0.1
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("diff: invalid thresholds")

// Thresholds configures comparison sensitivity and the significance test.
//
// The defaults are empirically tuned against the rendering noise seen when
// generating baselines; none of them has a formal derivation.
type Thresholds struct {
	// ColorThreshold is the tolerated color distance per channel (0-255).
	ColorThreshold int

	// MinClusterSize is the minimum size of a significant cluster.
	MinClusterSize int

	// MaxSignificantPixels is the largest accepted sum of significant cluster sizes.
	MaxSignificantPixels int

	// MaxSignificantClusters is the largest accepted number of significant clusters.
	MaxSignificantClusters int

	// ShiftThreshold is the shift tolerance radius in pixels. Zero disables it.
	ShiftThreshold int

	// Alpha is the blending factor of unchanged pixels in the diff image.
	Alpha float64

	// IncludeAntiAliased flags antialiased pixels as differences instead of
	// ignoring them.
	IncludeAntiAliased bool
}

// DefaultThresholds returns the tuned default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ColorThreshold:         DefaultColorThreshold,
		MinClusterSize:         DefaultMinClusterSize,
		MaxSignificantPixels:   DefaultMaxSignificantPixels,
		MaxSignificantClusters: DefaultMaxSignificantClusters,
		ShiftThreshold:         DefaultShiftThreshold,
		Alpha:                  DefaultAlpha,
	}
}

// Validate reports whether all thresholds are within their valid range.
func (t Thresholds) Validate() error {
	switch {
	case t.ColorThreshold < 0 || t.ColorThreshold > 255:
		return fmt.Errorf("%w: color threshold %d not in [0,255]", ErrInvalidThresholds, t.ColorThreshold)
	case t.MinClusterSize < 1:
		return fmt.Errorf("%w: min cluster size %d < 1", ErrInvalidThresholds, t.MinClusterSize)
	case t.MaxSignificantPixels < 0:
		return fmt.Errorf("%w: max significant pixels %d < 0", ErrInvalidThresholds, t.MaxSignificantPixels)
	case t.MaxSignificantClusters < 0:
		return fmt.Errorf("%w: max significant clusters %d < 0", ErrInvalidThresholds, t.MaxSignificantClusters)
	case t.ShiftThreshold < 0:
		return fmt.Errorf("%w: shift threshold %d < 0", ErrInvalidThresholds, t.ShiftThreshold)
	case t.Alpha < 0 || t.Alpha > 1:
		return fmt.Errorf("%w: alpha %g not in [0,1]", ErrInvalidThresholds, t.Alpha)
	}
	return nil
}

// maxDelta converts ColorThreshold into the squared YIQ distance bound.
// 35215 is the largest possible YIQ delta between two colors.
func (t Thresholds) maxDelta() float64 {
	f := float64(t.ColorThreshold) / 255
	return 35215 * f * f
}
