package main

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gogpu/vrt/diff"
	"github.com/gogpu/vrt/internal/imageio"
	"github.com/gogpu/vrt/internal/normalize"
	"github.com/gogpu/vrt/report"
)

type compareOptions struct {
	diffPath  string
	sheetPath string
	color     int
	shift     int
	includeAA bool
	workers   int
}

func newCompareCmd() *cobra.Command {
	opts := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare ACTUAL.png EXPECTED.png",
		Short: "Compare two PNG files",
		Long: `Compare two PNG files the way a test compares a screenshot with its
baseline, and exit non-zero when they differ significantly.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareFiles(cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.diffPath, "diff", "", "write the diff image to this PNG file")
	cmd.Flags().StringVar(&opts.sheetPath, "sheet", "", "write an expected/actual/diff contact sheet to this PNG file")
	cmd.Flags().IntVar(&opts.color, "color-threshold", diff.DefaultColorThreshold, "tolerated color distance per channel (0-255)")
	cmd.Flags().IntVar(&opts.shift, "shift", diff.DefaultShiftThreshold, "shift tolerance radius in pixels")
	cmd.Flags().BoolVar(&opts.includeAA, "include-antialiased", false, "count antialiased pixels as differences")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "goroutines comparing the images, 0 for GOMAXPROCS")
	return cmd
}

func compareFiles(w io.Writer, actualPath, expectedPath string, opts *compareOptions) error {
	actual, err := readPNG(actualPath)
	if err != nil {
		return err
	}
	expected, err := readPNG(expectedPath)
	if err != nil {
		return err
	}

	t := diff.DefaultThresholds()
	t.ColorThreshold = opts.color
	t.ShiftThreshold = opts.shift
	t.IncludeAntiAliased = opts.includeAA
	if err := t.Validate(); err != nil {
		return err
	}

	e, err := newEngine(t, opts.workers)
	if err != nil {
		return err
	}
	defer e.Close()

	pair := normalize.Normalize(actual, expected, normalize.DefaultOptions())

	v, err := e.Compare(pair.Actual, pair.Expected)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendRows([]table.Row{
		{"Outcome", v.Outcome},
		{"Scale", fmt.Sprintf("%.3f", pair.Scale)},
		{"Diff pixels", v.DiffPixels},
		{"Significant pixels", v.SignificantPixels},
		{"Clusters", v.Clusters},
		{"Significant clusters", v.SignificantClusters},
	})
	tw.Render()

	if opts.diffPath != "" && v.Diff != nil {
		if err := writePNG(opts.diffPath, v.Diff); err != nil {
			return err
		}
	}
	if opts.sheetPath != "" {
		panels := []report.Panel{
			{Label: "expected", Image: v.Expected},
			{Label: "actual", Image: v.Actual},
		}
		if v.Diff != nil {
			panels = append(panels, report.Panel{Label: "diff", Image: v.Diff})
		}
		if err := writePNG(opts.sheetPath, report.Sheet(panels...)); err != nil {
			return err
		}
	}

	if !v.Passed() {
		return errTestsFailed
	}
	return nil
}

// newEngine returns a diff engine comparing on the given number of
// goroutines. Zero uses GOMAXPROCS; 1 compares on the calling goroutine.
func newEngine(t diff.Thresholds, workers int) (*diff.Engine, error) {
	if workers < 0 {
		return nil, fmt.Errorf("workers %d must not be negative", workers)
	}
	opts := []diff.EngineOption{diff.WithThresholds(t)}
	if workers != 1 {
		opts = append(opts, diff.WithWorkers(workers))
	}
	return diff.NewEngine(opts...), nil
}

func readPNG(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := imageio.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imageio.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
