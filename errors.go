package vrt

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/vrt/diff"
	"github.com/gogpu/vrt/internal/imageio"
)

// Test failures. None of them is retried.
var (
	// ErrNoScreenshots is returned when a scenario captured no images.
	ErrNoScreenshots = errors.New("vrt: no screenshots captured")

	// ErrScreenshotCountMismatch is matched by *CountMismatchError.
	ErrScreenshotCountMismatch = errors.New("vrt: screenshot count mismatch")

	// ErrMismatch is matched by *MismatchError.
	ErrMismatch = errors.New("vrt: screenshot does not match baseline")

	// ErrMissingBaselineImage is matched by *MissingBaselineError.
	ErrMissingBaselineImage = errors.New("vrt: missing baseline image")

	// ErrNoSubjects is returned when a harness has no subject factory.
	ErrNoSubjects = errors.New("vrt: no subject factory configured")

	// ErrNoStore is returned when a harness has no baseline store.
	ErrNoStore = errors.New("vrt: no baseline store configured")
)

// CountMismatchError reports that the recorded baseline count differs from
// the number of captured screenshots.
type CountMismatchError struct {
	Identity string
	Expected int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("vrt: %s: expected %d screenshots, captured %d (delete the baseline to re-record)",
		e.Identity, e.Expected, e.Actual)
}

// Is reports whether target is ErrScreenshotCountMismatch.
func (e *CountMismatchError) Is(target error) bool { return target == ErrScreenshotCountMismatch }

// MissingBaselineError reports that metadata promises a baseline image that
// the store does not have.
type MissingBaselineError struct {
	Identity string
	Index    int
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("vrt: %s: baseline image %s is missing", e.Identity, ImageKey(e.Identity, e.Index))
}

// Is reports whether target is ErrMissingBaselineImage.
func (e *MissingBaselineError) Is(target error) bool { return target == ErrMissingBaselineImage }

// MismatchError reports a screenshot that failed the significance test.
// It carries the compared images for diagnostics.
type MismatchError struct {
	Identity string
	Index    int
	Verdict  diff.Verdict
}

func (e *MismatchError) Error() string {
	v := e.Verdict
	return fmt.Sprintf("vrt: %s: screenshot %d differs from baseline: %d significant pixels in %d clusters (%d pixels flagged)",
		e.Identity, e.Index, v.SignificantPixels, v.SignificantClusters, v.DiffPixels)
}

// Is reports whether target is ErrMismatch.
func (e *MismatchError) Is(target error) bool { return target == ErrMismatch }

// Diagnostic returns the failure message followed by the expected, actual
// and diff images as inline data URIs that can be pasted into a browser.
func (e *MismatchError) Diagnostic() string {
	var b strings.Builder
	b.WriteString(e.Error())
	writeURI(&b, "Expected", e.Verdict.Expected)
	writeURI(&b, "Actual", e.Verdict.Actual)
	writeURI(&b, "Diff", e.Verdict.Diff)
	return b.String()
}

func writeURI(b *strings.Builder, label string, img *image.NRGBA) {
	if img == nil {
		return
	}
	uri, err := imageio.DataURI(img)
	if err != nil {
		fmt.Fprintf(b, "\n%s: <%v>", label, err)
		return
	}
	fmt.Fprintf(b, "\n%s: %s", label, uri)
}
