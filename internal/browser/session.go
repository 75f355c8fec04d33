// Package browser owns the stealth-configured Chromium instance the
// booking flow drives. One session is one launched browser with one
// page; the reservation site tracks state server-side, so there is
// nothing to gain from multiple tabs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds browser launch configuration.
type Config struct {
	Headless            bool     `json:"headless"`
	Bin                 string   `json:"bin"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	UserAgent           string   `json:"user_agent"`
	LaunchFlags         []string `json:"launch_flags"`
}

// DefaultConfig returns the stealth launch profile. The flag set keeps
// Chromium from advertising automation and from throttling background
// work while the bot waits for the booking window.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeoutMs: 30000,
		UserAgent:           defaultUserAgent,
		LaunchFlags: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-web-security",
			"--disable-features=VizDisplayCompositor",
			"--disable-dev-shm-usage",
			"--no-first-run",
			"--disable-default-apps",
			"--disable-extensions",
			"--disable-translate",
			"--disable-background-timer-throttling",
			"--disable-renderer-backgrounding",
			"--disable-backgrounding-occluded-windows",
			"--disable-client-side-phishing-detection",
			"--disable-sync",
			"--metrics-recording-only",
			"--disable-ipc-flooding-protection",
		},
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Session is a launched browser with its single page.
type Session struct {
	cfg      Config
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewSession creates an unstarted session.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Start launches Chromium, connects, and prepares the page with the
// viewport, user agent, and stealth script.
func (s *Session) Start(ctx context.Context) error {
	if s.browser != nil {
		return nil
	}

	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}
	for _, rawFlag := range s.cfg.LaunchFlags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	if ua := s.userAgent(); ua != "" {
		l = l.Set(flags.Flag("user-agent"), ua)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}
	s.launcher = l

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("connect to chromium: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.viewportWidth(),
		Height:            s.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.logger.Warn("set viewport failed", zap.Error(err))
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: s.userAgent(),
	}); err != nil {
		s.logger.Warn("set user agent failed", zap.Error(err))
	}

	if _, err := page.EvalOnNewDocument(StealthScript()); err != nil {
		return fmt.Errorf("install stealth script: %w", err)
	}

	s.logger.Info("browser started", zap.Bool("headless", s.cfg.Headless))
	return nil
}

// Page returns the session page.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Navigate loads a URL and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.page == nil {
		return errors.New("session not started")
	}
	p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// Reload reloads the page and waits for the load event.
func (s *Session) Reload(ctx context.Context) error {
	if s.page == nil {
		return errors.New("session not started")
	}
	p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load after reload: %w", err)
	}
	return nil
}

// Screenshot writes a viewport screenshot to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	if s.page == nil {
		return errors.New("session not started")
	}
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Close shuts down the page, browser, and launched process.
func (s *Session) Close() error {
	var err error
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	if err == nil {
		s.logger.Info("browser closed")
	}
	return err
}

func (s *Session) userAgent() string {
	if s.cfg.UserAgent == "" {
		return defaultUserAgent
	}
	return s.cfg.UserAgent
}

func (s *Session) viewportWidth() int {
	if s.cfg.ViewportWidth == 0 {
		return 1920
	}
	return s.cfg.ViewportWidth
}

func (s *Session) viewportHeight() int {
	if s.cfg.ViewportHeight == 0 {
		return 1080
	}
	return s.cfg.ViewportHeight
}
