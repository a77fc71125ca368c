package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/vrt"
	"github.com/gogpu/vrt/cache"
	"github.com/gogpu/vrt/internal/config"
	"github.com/gogpu/vrt/store"
	"github.com/gogpu/vrt/store/fsstore"
	"github.com/gogpu/vrt/store/sqlitestore"
)

// Version is set at build time.
var Version = "dev"

// errTestsFailed is returned by commands whose checks failed. The failure
// has already been reported, so main only sets the exit code.
var errTestsFailed = errors.New("vrt: tests failed")

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "vrt",
		Short: "Visual regression testing for web pages",
		Long: `vrt captures screenshots of web pages in headless Chrome and compares
them with recorded baselines. The first run of a test records its
baselines; later runs fail when the pages change visibly.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			vrt.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to "+config.Filename+" (default: search upwards from the working directory)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newCompareCmd(),
		newBaselinesCmd(opts),
		newServeCmd(opts),
		newInitCmd(),
	)
	return cmd
}

func (o *globalOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// baselineStore is a store that can also enumerate and delete keys.
type baselineStore interface {
	store.Store
	store.Lister
	store.Deleter
}

// openStore opens the configured baseline store. The returned function
// releases it.
func openStore(cfg config.Config) (baselineStore, func() error, error) {
	var (
		base    baselineStore
		closeFn = func() error { return nil }
	)

	if cfg.Baselines.SQLite != "" {
		path, err := cfg.Path(cfg.Baselines.SQLite)
		if err != nil {
			return nil, nil, err
		}
		db, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open baselines: %w", err)
		}
		base, closeFn = db, db.Close
	} else {
		dir, err := cfg.Path(cfg.Baselines.Dir)
		if err != nil {
			return nil, nil, err
		}
		base = fsstore.New(dir)
	}

	if cfg.Baselines.CacheMB < 0 {
		return base, closeFn, nil
	}
	return store.NewCached(base, cache.New(int64(cfg.Baselines.CacheMB)<<20)), closeFn, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
