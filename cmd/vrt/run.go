package main

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/internal/config"
	"github.com/gogpu/vrt/metrics"
	"github.com/gogpu/vrt/report"
	"github.com/gogpu/vrt/subject/rodsubject"
)

type runOptions struct {
	suites    []string
	update    bool
	strict    bool
	reportDir string
	noColor   bool
	workers   int
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured suites",
		Long: `Run every suite of the configuration in headless Chrome.

Tests without baselines record them and pass. Tests whose screenshots differ
significantly from their baselines fail; their images are written to the
report directory next to an HTML report and a JSON results file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				cfg.Strict = opts.strict
			}
			if opts.reportDir != "" {
				cfg.Report.Dir = opts.reportDir
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = opts.workers
			}
			return runSuites(contextOf(cmd), cmd, cfg, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.suites, "suite", "s", nil, "run only these suites (repeatable)")
	cmd.Flags().BoolVarP(&opts.update, "update", "u", false, "delete the baselines of the selected suites and record them again")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail tests whose baseline image is missing")
	cmd.Flags().StringVar(&opts.reportDir, "report", "", "report directory (overrides the config)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "goroutines per image comparison, 0 for GOMAXPROCS (overrides the config)")
	return cmd
}

func runSuites(ctx context.Context, cmd *cobra.Command, cfg config.Config, opts *runOptions) error {
	if len(cfg.Suites) == 0 {
		return fmt.Errorf("no suites configured")
	}
	for _, name := range opts.suites {
		if !slices.ContainsFunc(cfg.Suites, func(s config.SuiteConfig) bool { return s.Name == name }) {
			return fmt.Errorf("unknown suite %q", name)
		}
	}

	thresholds, err := cfg.Thresholds.Resolve()
	if err != nil {
		return err
	}
	engine, err := newEngine(thresholds, cfg.Workers)
	if err != nil {
		return err
	}
	defer engine.Close()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	root, urls := buildSuites(cfg, opts.suites)

	if opts.update {
		for _, s := range cfg.Suites {
			if !selected(s.Name, opts.suites) {
				continue
			}
			n, err := st.Delete(ctx, vrt.EscapeName(s.Name)+vrt.Separator)
			if err != nil {
				return fmt.Errorf("failed to delete baselines of %q: %w", s.Name, err)
			}
			vrt.Logger().Info("vrt: baselines deleted", "suite", s.Name, "files", n)
		}
	}

	reportDir, err := cfg.Path(cfg.Report.Dir)
	if err != nil {
		return err
	}

	browser, err := rodsubject.Launch(ctx, rodsubject.Config{
		RemoteURL:       cfg.Browser.RemoteURL,
		Width:           cfg.Browser.Width,
		Height:          cfg.Browser.Height,
		FullPage:        cfg.Browser.FullPage,
		NavigateTimeout: cfg.Browser.Timeout,
		Settle:          cfg.Browser.Settle,
		Logger:          vrt.Logger(),
	})
	if err != nil {
		return err
	}
	defer browser.Close()

	reg := prometheus.NewRegistry()
	collector := &report.Collector{}
	h, err := vrt.NewHarness(
		vrt.WithStore(st),
		vrt.WithSubjects(pageFactory(browser, urls)),
		vrt.WithThresholds(thresholds),
		vrt.WithEngine(engine),
		vrt.WithRootDensity(cfg.Density),
		vrt.WithStrictBaselines(cfg.Strict),
		vrt.WithObserver(collector),
		vrt.WithObserver(metrics.New(reg)),
		vrt.WithArtifacts(report.DirSink{Dir: filepath.Join(reportDir, "artifacts")}),
	)
	if err != nil {
		return err
	}

	run := vrt.NewRunner(h).Run(ctx, root)

	out := cmd.OutOrStdout()
	report.Summary(out, run, !opts.noColor && isTerminal(out))

	if err := report.Write(reportDir, run); err != nil {
		return err
	}
	fmt.Fprintf(out, "report: %s\n", filepath.Join(reportDir, report.IndexFile))

	if cfg.Report.Metrics != "" {
		path, err := cfg.Path(cfg.Report.Metrics)
		if err != nil {
			return err
		}
		if err := metrics.WriteTextfile(reg, path); err != nil {
			return err
		}
	}

	if run.Failed() {
		return errTestsFailed
	}
	return nil
}

// buildSuites turns the configuration into a suite tree. Suites left out of
// only are registered as skipped so they still show up in reports. The
// returned map holds the page URL of every test identity.
func buildSuites(cfg config.Config, only []string) (*vrt.Suite, map[string]string) {
	root := vrt.NewSuite("")
	urls := make(map[string]string)

	for _, sc := range cfg.Suites {
		opts := nodeOptions(sc.Focus, sc.Skip || !selected(sc.Name, only), sc.Shift)
		if sc.Density > 0 {
			opts = append(opts, vrt.WithDensity(sc.Density))
		}

		root.Describe(sc.Name, func(s *vrt.Suite) {
			tests := sc.Tests
			if len(tests) == 0 {
				tests = []config.TestConfig{{Name: "default"}}
			}
			for _, tc := range tests {
				t := s.It(tc.Name, scenario(tc.Steps), nodeOptions(tc.Focus, tc.Skip, tc.Shift)...)
				urls[t.Identity()] = sc.URL
			}
		}, opts...)
	}
	return root, urls
}

func selected(name string, only []string) bool {
	return len(only) == 0 || slices.Contains(only, name)
}

func nodeOptions(focus, skip bool, shift *int) []vrt.Option {
	var opts []vrt.Option
	switch {
	case skip:
		opts = append(opts, vrt.Skip())
	case focus:
		opts = append(opts, vrt.Focus())
	}
	if shift != nil {
		opts = append(opts, vrt.WithShiftThreshold(*shift))
	}
	return opts
}

// scenario runs the configured steps. Without a capture step, one
// screenshot is taken after the last step.
func scenario(steps []config.StepConfig) vrt.Scenario {
	return func(ctx context.Context, subj vrt.Subject) iter.Seq2[*vrt.Image, error] {
		return func(yield func(*vrt.Image, error) bool) {
			captured := false
			for _, sc := range steps {
				if sc.Capture {
					captured = true
					img, err := vrt.Capture(ctx, subj)
					if !yield(img, err) || err != nil {
						return
					}
					continue
				}
				if err := step(sc)(ctx, subj); err != nil {
					yield(nil, err)
					return
				}
			}
			if !captured {
				yield(vrt.Capture(ctx, subj))
			}
		}
	}
}

func step(sc config.StepConfig) vrt.Step {
	switch {
	case sc.Eval != "":
		return rodsubject.Eval(sc.Eval)
	case sc.Click != "":
		return rodsubject.Click(sc.Click)
	case sc.Hover != "":
		return rodsubject.Hover(sc.Hover)
	default:
		return rodsubject.Navigate(sc.Navigate)
	}
}

// pageFactory opens the page configured for each test's identity.
func pageFactory(b *rodsubject.Browser, urls map[string]string) vrt.SubjectFactory {
	return vrt.SubjectFactoryFunc(func(ctx context.Context, cfg vrt.SubjectConfig) (vrt.Subject, error) {
		url, ok := urls[cfg.Identity]
		if !ok {
			return nil, fmt.Errorf("no page configured for %q", cfg.Identity)
		}
		return b.Open(ctx, url, cfg.Density)
	})
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
