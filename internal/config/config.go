// Package config loads the vrt.yaml file driving the vrt command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/vrt/diff"
)

// Filename is the name of the configuration file searched for by Find.
const Filename = "vrt.yaml"

// CurrentVersion is the configuration format version.
const CurrentVersion = 1

// Config is the root of vrt.yaml.
type Config struct {
	Version    int              `yaml:"version"`
	Baselines  BaselinesConfig  `yaml:"baselines"`
	Report     ReportConfig     `yaml:"report"`
	Thresholds ThresholdsConfig `yaml:"thresholds,omitempty"`

	// Strict fails tests whose baseline image is missing instead of
	// recording it.
	Strict bool `yaml:"strict,omitempty"`

	// Density is the default render density of subjects.
	Density float64 `yaml:"density,omitempty"`

	// Workers is the number of goroutines comparing each image pair. Zero
	// uses GOMAXPROCS; 1 compares on the calling goroutine.
	Workers int `yaml:"workers,omitempty"`

	Browser BrowserConfig `yaml:"browser"`
	Suites  []SuiteConfig `yaml:"suites"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// BaselinesConfig selects the baseline store.
type BaselinesConfig struct {
	// Dir stores baselines as files. Ignored when SQLite is set.
	Dir string `yaml:"dir,omitempty"`

	// SQLite stores baselines in a single database file.
	SQLite string `yaml:"sqlite,omitempty"`

	// CacheMB is the size of the in-memory read cache in MiB. Zero uses the
	// default; a negative value disables the cache.
	CacheMB int `yaml:"cache_mb,omitempty"`
}

// ReportConfig configures run reports.
type ReportConfig struct {
	Dir string `yaml:"dir,omitempty"`

	// Metrics is an optional Prometheus textfile path.
	Metrics string `yaml:"metrics,omitempty"`
}

// ThresholdsConfig overrides the comparison thresholds. Unset fields keep
// their defaults.
type ThresholdsConfig struct {
	Color                  int     `yaml:"color,omitempty"`
	MinClusterSize         int     `yaml:"min_cluster_size,omitempty"`
	MaxSignificantPixels   int     `yaml:"max_significant_pixels,omitempty"`
	MaxSignificantClusters int     `yaml:"max_significant_clusters,omitempty"`
	Shift                  *int    `yaml:"shift,omitempty"`
	Alpha                  float64 `yaml:"alpha,omitempty"`
	IncludeAntiAliased     bool    `yaml:"include_antialiased,omitempty"`
}

// BrowserConfig configures headless Chrome.
type BrowserConfig struct {
	RemoteURL string        `yaml:"remote_url,omitempty"`
	Width     int           `yaml:"width,omitempty"`
	Height    int           `yaml:"height,omitempty"`
	FullPage  bool          `yaml:"full_page,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Settle    time.Duration `yaml:"settle,omitempty"`
}

// SuiteConfig is one page under test.
type SuiteConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	Focus bool `yaml:"focus,omitempty"`
	Skip  bool `yaml:"skip,omitempty"`

	Density float64 `yaml:"density,omitempty"`
	Shift   *int    `yaml:"shift,omitempty"`

	Tests []TestConfig `yaml:"tests"`
}

// TestConfig is one test of a suite. Without any capture step, a single
// screenshot is taken after the last step.
type TestConfig struct {
	Name  string       `yaml:"name"`
	Focus bool         `yaml:"focus,omitempty"`
	Skip  bool         `yaml:"skip,omitempty"`
	Shift *int         `yaml:"shift,omitempty"`
	Steps []StepConfig `yaml:"steps,omitempty"`
}

// StepConfig is a single action. Exactly one field must be set.
type StepConfig struct {
	Eval     string `yaml:"eval,omitempty"`
	Click    string `yaml:"click,omitempty"`
	Hover    string `yaml:"hover,omitempty"`
	Navigate string `yaml:"navigate,omitempty"`
	Capture  bool   `yaml:"capture,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Version:   CurrentVersion,
		Baselines: BaselinesConfig{Dir: "testdata/baselines"},
		Report:    ReportConfig{Dir: "vrt-report"},
		Density:   1,
		Browser: BrowserConfig{
			Width:   1280,
			Height:  720,
			Timeout: 30 * time.Second,
		},
	}
}

// Find searches for vrt.yaml from startDir up to the filesystem root. It
// returns "" when there is none.
func Find(startDir string) string {
	dir := startDir
	for {
		p := filepath.Join(dir, Filename)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads the configuration at path. An empty path searches from the
// working directory. A missing file yields Default; invalid YAML or an
// invalid configuration is an error.
func Load(path string) (Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Default(), nil
		}
		if path = Find(cwd); path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes, defaults and validates a configuration.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid YAML: %w", err)
	}
	cfg = applyDefaults(cfg)
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	d := Default()
	if cfg.Version == 0 {
		cfg.Version = d.Version
	}
	if cfg.Baselines.Dir == "" && cfg.Baselines.SQLite == "" {
		cfg.Baselines.Dir = d.Baselines.Dir
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = d.Report.Dir
	}
	if cfg.Density == 0 {
		cfg.Density = d.Density
	}
	if cfg.Browser.Width == 0 {
		cfg.Browser.Width = d.Browser.Width
	}
	if cfg.Browser.Height == 0 {
		cfg.Browser.Height = d.Browser.Height
	}
	if cfg.Browser.Timeout == 0 {
		cfg.Browser.Timeout = d.Browser.Timeout
	}
	return cfg
}

func (c *Config) expand() {
	c.Browser.RemoteURL = ExpandEnvVars(c.Browser.RemoteURL)
	for i := range c.Suites {
		c.Suites[i].URL = ExpandEnvVars(c.Suites[i].URL)
		for j := range c.Suites[i].Tests {
			for k := range c.Suites[i].Tests[j].Steps {
				st := &c.Suites[i].Tests[j].Steps[k]
				st.Navigate = ExpandEnvVars(st.Navigate)
			}
		}
	}
}

// Validate checks the configuration for errors that would only surface
// halfway through a run.
func (c Config) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	if c.Density < 0 {
		return fmt.Errorf("density %g must be positive", c.Density)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	if _, err := c.Thresholds.Resolve(); err != nil {
		return err
	}

	names := make(map[string]bool, len(c.Suites))
	for i, s := range c.Suites {
		if s.Name == "" {
			return fmt.Errorf("suites[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("suite %q: defined twice", s.Name)
		}
		names[s.Name] = true
		if s.URL == "" {
			return fmt.Errorf("suite %q: url is required", s.Name)
		}
		if s.Density < 0 {
			return fmt.Errorf("suite %q: density %g must be positive", s.Name, s.Density)
		}
		for j, t := range s.Tests {
			if t.Name == "" {
				return fmt.Errorf("suite %q: tests[%d]: name is required", s.Name, j)
			}
			for k, st := range t.Steps {
				if n := st.actions(); n != 1 {
					return fmt.Errorf("suite %q: test %q: steps[%d]: want exactly one action, got %d", s.Name, t.Name, k, n)
				}
			}
		}
	}
	return nil
}

func (s StepConfig) actions() int {
	n := 0
	for _, set := range []bool{s.Eval != "", s.Click != "", s.Hover != "", s.Navigate != "", s.Capture} {
		if set {
			n++
		}
	}
	return n
}

// Resolve applies the overrides to diff.DefaultThresholds.
func (t ThresholdsConfig) Resolve() (diff.Thresholds, error) {
	out := diff.DefaultThresholds()
	if t.Color != 0 {
		out.ColorThreshold = t.Color
	}
	if t.MinClusterSize != 0 {
		out.MinClusterSize = t.MinClusterSize
	}
	if t.MaxSignificantPixels != 0 {
		out.MaxSignificantPixels = t.MaxSignificantPixels
	}
	if t.MaxSignificantClusters != 0 {
		out.MaxSignificantClusters = t.MaxSignificantClusters
	}
	if t.Shift != nil {
		out.ShiftThreshold = *t.Shift
	}
	if t.Alpha != 0 {
		out.Alpha = t.Alpha
	}
	out.IncludeAntiAliased = t.IncludeAntiAliased

	if err := out.Validate(); err != nil {
		return diff.Thresholds{}, err
	}
	return out, nil
}

// Path resolves p against the directory of the loaded file and expands a
// leading ~.
func (c Config) Path(p string) (string, error) {
	p, err := ExpandPath(p)
	if err != nil || p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p, err
	}
	return filepath.Join(c.dir, p), nil
}

// Write writes cfg to path as YAML.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
