// Package browser provides the go-rod backed interactive surface that the
// replay engine dispatches compiled scripts to.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var ErrNotStarted = errors.New("browser not started")

// Config holds browser launch options.
type Config struct {
	Headless  bool          `json:"headless" yaml:"headless"`
	UserAgent string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Proxy     string        `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Width     int           `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int           `json:"height,omitempty" yaml:"height,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Browser manages one rod browser instance and the page scripts run against.
type Browser struct {
	config   *Config
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
}

// New creates a browser with the given config. Call Start before use.
func New(config *Config) *Browser {
	if config == nil {
		config = &Config{Headless: true}
	}
	return &Browser{config: config}
}

// Start launches the browser process and connects to it.
func (b *Browser) Start() error {
	l := launcher.New().Headless(b.config.Headless)
	if b.config.Proxy != "" {
		l = l.Proxy(b.config.Proxy)
	}
	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	b.launcher = l

	br := rod.New().ControlURL(url)
	if err := br.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	if b.config.Timeout > 0 {
		br = br.Timeout(b.config.Timeout)
	}
	b.browser = br
	return nil
}

// Open navigates a fresh page to the given URL and makes it the surface's
// target. An empty URL opens a blank page.
func (b *Browser) Open(url string) error {
	if b.browser == nil {
		return ErrNotStarted
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	if b.config.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.config.UserAgent})
		if err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if b.config.Width > 0 && b.config.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.config.Width,
			Height:            b.config.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	if url != "" {
		if err := page.WaitLoad(); err != nil {
			return fmt.Errorf("failed to load %s: %w", url, err)
		}
	}

	b.page = page
	return nil
}

// Stop closes the page and browser process.
func (b *Browser) Stop() error {
	if b.page != nil {
		_ = b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return nil
}

// Surface returns the script-execution capability bound to the open page.
// It satisfies the replay engine's Surface contract.
func (b *Browser) Surface() *Surface {
	return &Surface{page: b.page}
}

// Surface executes compiled scripts against one page.
type Surface struct {
	page *rod.Page
}

// ExecuteScript evaluates the script on the page and returns its value.
func (s *Surface) ExecuteScript(ctx context.Context, script string) (any, error) {
	if s == nil || s.page == nil {
		return nil, ErrNotStarted
	}
	obj, err := s.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, err
	}
	return obj.Value.Val(), nil
}

// IsAvailable reports whether a page is connected and ready for scripts.
func (s *Surface) IsAvailable() bool {
	return s != nil && s.page != nil
}
