package vrt_test

import (
	"context"
	"fmt"

	"github.com/gogpu/gg"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/store/memstore"
	"github.com/gogpu/vrt/subject/ggsubject"
)

func drawButton(dc *gg.Context) error {
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(0, 0, 120, 40)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.SetRGB(0.2, 0.4, 0.8)
	dc.DrawRectangle(10, 8, 100, 24)
	return dc.Fill()
}

func Example() {
	ctx := context.Background()

	h, err := vrt.NewHarness(
		vrt.WithStore(memstore.New()),
		vrt.WithSubjects(ggsubject.Factory(120, 40, drawButton)),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	root := vrt.NewSuite("widgets")
	root.Describe("button", func(s *vrt.Suite) {
		s.It("idle", vrt.Snapshot())
		s.It("disabled", vrt.Snapshot(), vrt.Skip())
	})

	runner := vrt.NewRunner(h)
	for range 2 {
		run := runner.Run(ctx, root)
		for _, r := range run.Tests {
			fmt.Println(r.Identity, r.Status)
		}
	}
	// Output:
	// widgets/button/idle recorded
	// widgets/button/disabled skipped
	// widgets/button/idle passed
	// widgets/button/disabled skipped
}

func ExampleSteps() {
	pressed := func(dc *gg.Context) error {
		dc.SetRGB(0.1, 0.2, 0.4)
		dc.DrawRectangle(0, 0, 120, 40)
		return dc.Fill()
	}

	// Two screenshots: the initial state, then after the update.
	scenario := vrt.Steps(nil, ggsubject.Update(pressed))

	subj := ggsubject.New(120, 40, 1, drawButton)
	defer subj.Destroy()

	n := 0
	for img, err := range scenario(context.Background(), subj) {
		if err != nil {
			fmt.Println(err)
			return
		}
		n++
		fmt.Println(img.Width(), img.Height())
	}
	fmt.Println(n, "screenshots")
	// Output:
	// 120 40
	// 120 40
	// 2 screenshots
}
