package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vrt/diff"
)

const sample = `
version: 1
baselines:
  sqlite: baselines.db
thresholds:
  color: 30
  shift: 0
strict: true
workers: 4
browser:
  remote_url: ${VRT_TEST_CHROME:-ws://localhost:9222}
  timeout: 5s
suites:
  - name: home
    url: ${VRT_TEST_BASE}/index.html
    density: 2
    tests:
      - name: default
      - name: menu open
        steps:
          - click: "#menu"
          - capture: true
          - hover: "#menu li"
`

func TestParse(t *testing.T) {
	t.Setenv("VRT_TEST_BASE", "http://localhost:8080")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "baselines.db", cfg.Baselines.SQLite)
	assert.Empty(t, cfg.Baselines.Dir)
	assert.Equal(t, "vrt-report", cfg.Report.Dir)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1.0, cfg.Density)
	assert.Equal(t, "ws://localhost:9222", cfg.Browser.RemoteURL)
	assert.Equal(t, 5*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 1280, cfg.Browser.Width)

	require.Len(t, cfg.Suites, 1)
	s := cfg.Suites[0]
	assert.Equal(t, "http://localhost:8080/index.html", s.URL)
	assert.Equal(t, 2.0, s.Density)
	require.Len(t, s.Tests, 2)
	assert.Len(t, s.Tests[1].Steps, 3)
	assert.True(t, s.Tests[1].Steps[1].Capture)

	th, err := cfg.Thresholds.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 30, th.ColorThreshold)
	assert.Equal(t, 0, th.ShiftThreshold)
	assert.Equal(t, diff.DefaultMinClusterSize, th.MinClusterSize)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "suites: [", "invalid YAML"},
		{"future version", "version: 9", "unsupported config version"},
		{"bad threshold", "thresholds: {color: 300}", "invalid thresholds"},
		{"negative workers", "workers: -1", "must not be negative"},
		{"suite without name", "suites: [{url: x}]", "name is required"},
		{"suite without url", "suites: [{name: a}]", "url is required"},
		{"duplicate suite", "suites: [{name: a, url: x}, {name: a, url: y}]", "defined twice"},
		{"test without name", "suites: [{name: a, url: x, tests: [{}]}]", "name is required"},
		{"empty step", "suites: [{name: a, url: x, tests: [{name: t, steps: [{}]}]}]", "exactly one action"},
		{"two actions", "suites: [{name: a, url: x, tests: [{name: t, steps: [{click: b, capture: true}]}]}]", "exactly one action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), Filename))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Filename)
	require.NoError(t, os.WriteFile(path, []byte("baselines: {dir: golden}\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	p, err := cfg.Path(cfg.Baselines.Dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "golden"), p)

	p, err = cfg.Path("/abs/report")
	require.NoError(t, err)
	assert.Equal(t, "/abs/report", p)
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	assert.Empty(t, Find(nested))

	path := filepath.Join(root, Filename)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))
	assert.Equal(t, path, Find(nested))
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	want := Default()
	want.Suites = []SuiteConfig{{Name: "home", URL: "http://x", Tests: []TestConfig{{Name: "default"}}}}
	require.NoError(t, Write(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.Suites, got.Suites)
	assert.Equal(t, want.Browser, got.Browser)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("VRT_TEST_VAR", "value")

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${VRT_TEST_VAR}", "value"},
		{"a-${VRT_TEST_VAR}-b", "a-value-b"},
		{"${VRT_TEST_UNSET}", ""},
		{"${VRT_TEST_UNSET:-fallback}", "fallback"},
		{"${VRT_TEST_VAR:-fallback}", "value"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnvVars(tt.in), tt.in)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	for in, want := range map[string]string{
		"":      "",
		"/a/b":  "/a/b",
		"a/b":   "a/b",
		"~":     home,
		"~/a/b": home + "/a/b",
	} {
		got, err := ExpandPath(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
