// Package rodsubject captures web pages in headless Chrome through go-rod.
//
// One Browser is shared by a run; every test gets its own page, closed when
// the test ends.
package rodsubject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gogpu/vrt"
)

// ErrClosed is returned when using a closed Browser.
var ErrClosed = errors.New("rodsubject: browser is closed")

// Config configures the browser and the pages it opens.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// Width and Height set the viewport in CSS pixels. Default: 1280x720.
	Width  int
	Height int

	// FullPage captures the whole scrollable page instead of the viewport.
	FullPage bool

	// NavigateTimeout bounds navigation and load. Default: 30s.
	NavigateTimeout time.Duration

	// Settle waits for the DOM to stop changing for this long before each
	// capture. Zero disables it.
	Settle time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = vrt.Logger()
	}
}

// Browser owns a Chrome connection.
type Browser struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// Launch starts Chrome, or connects to cfg.RemoteURL.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger

	wsURL := cfg.RemoteURL
	var l *launcher.Launcher
	if wsURL == "" {
		l = launcher.New().Context(ctx).Headless(true).
			Set("hide-scrollbars").
			Set("force-color-profile", "srgb").
			Set("font-render-hinting", "none")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("rodsubject: launch: %w", err)
		}
		wsURL = u
		log.Info("rodsubject: launched local chrome", "url", wsURL)
	} else {
		log.Info("rodsubject: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("rodsubject: connect: %w", err)
	}
	return &Browser{cfg: cfg, browser: b, lnch: l}, nil
}

// Close disconnects and, for a launched Chrome, kills it.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.browser.Close()
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch.Cleanup()
	}
	return err
}

// Factory returns a vrt.SubjectFactory opening url in a new page per test.
func (b *Browser) Factory(url string) vrt.SubjectFactory {
	return vrt.SubjectFactoryFunc(func(ctx context.Context, cfg vrt.SubjectConfig) (vrt.Subject, error) {
		return b.Open(ctx, url, cfg.Density)
	})
}

// Open creates a page with the configured viewport at density and
// navigates to url. It returns once the page has loaded.
func (b *Browser) Open(ctx context.Context, url string, density float64) (*Subject, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if density <= 0 {
		density = 1
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("rodsubject: create page: %w", err)
	}
	s := &Subject{page: page, cfg: b.cfg, density: density}

	if err := s.setDensity(density); err != nil {
		_ = page.Close()
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("rodsubject: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("rodsubject: load %s: %w", url, err)
	}
	b.cfg.Logger.Debug("rodsubject: page ready", "url", url, "density", density)
	return s, nil
}

// Subject is a vrt.Subject backed by one browser page.
type Subject struct {
	page    *rod.Page
	cfg     Config
	density float64
}

// Page returns the underlying page for custom steps.
func (s *Subject) Page() *rod.Page { return s.page }

func (s *Subject) setDensity(density float64) error {
	err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.Width,
		Height:            s.cfg.Height,
		DeviceScaleFactor: density,
		Mobile:            false,
	})
	if err != nil {
		return fmt.Errorf("rodsubject: set viewport: %w", err)
	}
	return nil
}

// Capture implements vrt.Subject. The page is switched to density for the
// screenshot and back afterwards.
func (s *Subject) Capture(ctx context.Context, density float64) (*vrt.Image, error) {
	if density <= 0 {
		density = 1
	}
	if density != s.density {
		if err := s.setDensity(density); err != nil {
			return nil, err
		}
		defer func() {
			if err := s.setDensity(s.density); err != nil {
				s.cfg.Logger.Warn("rodsubject: restore density", "error", err)
			}
		}()
	}

	page := s.page.Context(ctx)
	if s.cfg.Settle > 0 {
		if err := page.WaitStable(s.cfg.Settle); err != nil {
			return nil, fmt.Errorf("rodsubject: settle: %w", err)
		}
	}

	data, err := page.Screenshot(s.cfg.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("rodsubject: screenshot: %w", err)
	}
	img, err := vrt.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("rodsubject: decode screenshot: %w", err)
	}
	return vrt.ImageFromStd(img.NRGBA(), density), nil
}

// Destroy implements vrt.Subject.
func (s *Subject) Destroy() error {
	return s.page.Close()
}

func page(subj vrt.Subject) (*rod.Page, error) {
	s, ok := subj.(*Subject)
	if !ok {
		return nil, fmt.Errorf("rodsubject: step needs a *rodsubject.Subject, got %T", subj)
	}
	return s.page, nil
}

// Eval returns a step evaluating a JavaScript function, e.g.
// `() => document.body.classList.add("dark")`.
func Eval(js string) vrt.Step {
	return func(ctx context.Context, subj vrt.Subject) error {
		p, err := page(subj)
		if err != nil {
			return err
		}
		if _, err := p.Context(ctx).Eval(js); err != nil {
			return fmt.Errorf("rodsubject: eval: %w", err)
		}
		return nil
	}
}

// Click returns a step clicking the first element matching selector.
func Click(selector string) vrt.Step {
	return func(ctx context.Context, subj vrt.Subject) error {
		p, err := page(subj)
		if err != nil {
			return err
		}
		el, err := p.Context(ctx).Element(selector)
		if err != nil {
			return fmt.Errorf("rodsubject: find %s: %w", selector, err)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("rodsubject: click %s: %w", selector, err)
		}
		return nil
	}
}

// Hover returns a step moving the mouse over the first element matching
// selector.
func Hover(selector string) vrt.Step {
	return func(ctx context.Context, subj vrt.Subject) error {
		p, err := page(subj)
		if err != nil {
			return err
		}
		el, err := p.Context(ctx).Element(selector)
		if err != nil {
			return fmt.Errorf("rodsubject: find %s: %w", selector, err)
		}
		if err := el.Hover(); err != nil {
			return fmt.Errorf("rodsubject: hover %s: %w", selector, err)
		}
		return nil
	}
}

// Navigate returns a step loading url in the subject's page.
func Navigate(url string) vrt.Step {
	return func(ctx context.Context, subj vrt.Subject) error {
		p, err := page(subj)
		if err != nil {
			return err
		}
		p = p.Context(ctx)
		if err := p.Navigate(url); err != nil {
			return fmt.Errorf("rodsubject: navigate %s: %w", url, err)
		}
		return p.WaitLoad()
	}
}
