package report

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/internal/imageio"
)

// IndexFile is the name of the HTML page written by Write.
const IndexFile = "index.html"

//go:embed index.html.tmpl
var indexTemplate string

var pageTemplate = template.Must(template.New("report").Parse(indexTemplate))

type pageData struct {
	*File
	Rows []rowData
}

type rowData struct {
	Test
	Failed   bool
	Expected template.URL
	Actual   template.URL
	Diff     template.URL
}

// Write renders run into dir as IndexFile and ResultsFile.
func Write(dir string, run *vrt.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	var page bytes.Buffer
	if err := HTML(&page, run); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), page.Bytes(), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	var js bytes.Buffer
	if err := WriteJSON(&js, run); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ResultsFile), js.Bytes(), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// HTML renders the self-contained report page. Mismatch images are inlined
// as data URIs.
func HTML(w io.Writer, run *vrt.RunResult) error {
	f := NewFile(run)
	data := pageData{File: f, Rows: make([]rowData, len(run.Tests))}
	for i, r := range run.Tests {
		row := rowData{Test: f.Tests[i], Failed: r.Status == vrt.StatusFailed}
		var m *vrt.MismatchError
		if errors.As(r.Err, &m) {
			row.Expected = dataURL(m.Verdict.Expected)
			row.Actual = dataURL(m.Verdict.Actual)
			row.Diff = dataURL(m.Verdict.Diff)
		}
		data.Rows[i] = row
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

func dataURL(img *image.NRGBA) template.URL {
	if img == nil {
		return ""
	}
	uri, err := imageio.DataURI(img)
	if err != nil {
		vrt.Logger().Warn("report: encode image", "error", err)
		return ""
	}
	return template.URL(uri)
}
