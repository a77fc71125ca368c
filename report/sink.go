package report

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/internal/imageio"
)

// DirSink is a vrt.ArtifactSink writing the images of every mismatch below
// a directory:
//
//	<dir>/<identity>/003.expected.png
//	<dir>/<identity>/003.actual.png
//	<dir>/<identity>/003.diff.png
//	<dir>/<identity>/003.sheet.png
type DirSink struct {
	Dir string
}

// WriteMismatch implements vrt.ArtifactSink.
func (s DirSink) WriteMismatch(_ context.Context, m *vrt.MismatchError) error {
	dir := filepath.Join(s.Dir, filepath.FromSlash(m.Identity))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	expected, actual, diff := optional(m.Verdict.Expected), optional(m.Verdict.Actual), optional(m.Verdict.Diff)
	files := []struct {
		suffix string
		img    image.Image
	}{
		{"expected", expected},
		{"actual", actual},
		{"diff", diff},
		{"sheet", Sheet(
			Panel{Label: "expected", Image: expected},
			Panel{Label: "actual", Image: actual},
			Panel{Label: "diff", Image: diff},
		)},
	}
	for _, f := range files {
		if f.img == nil {
			continue
		}
		if err := writePNG(filepath.Join(dir, ArtifactName(m.Index, f.suffix)), f.img); err != nil {
			return err
		}
	}
	vrt.Logger().Info("report: mismatch artifacts written", "identity", m.Identity, "dir", dir)
	return nil
}

// optional converts a nil *image.NRGBA into a nil image.Image.
func optional(img *image.NRGBA) image.Image {
	if img == nil {
		return nil
	}
	return img
}

// ArtifactName returns the file name of one artifact of screenshot index.
func ArtifactName(index int, suffix string) string {
	return fmt.Sprintf("%03d.%s.png", index, suffix)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := imageio.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("report: encode %s: %w", path, err)
	}
	return f.Close()
}
