package browser

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Headless {
		t.Error("default should be headless")
	}
	if cfg.ViewportWidth != 1920 || cfg.ViewportHeight != 1080 {
		t.Errorf("unexpected viewport: %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if got := cfg.NavigationTimeout(); got != 30*time.Second {
		t.Errorf("unexpected navigation timeout: %v", got)
	}

	wantFlags := []string{
		"--no-sandbox",
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
	}
	for _, f := range wantFlags {
		found := false
		for _, have := range cfg.LaunchFlags {
			if have == f {
				found = true
			}
		}
		if !found {
			t.Errorf("launch flag %s missing", f)
		}
	}
}

func TestNavigationTimeout_Fallback(t *testing.T) {
	cfg := Config{}
	if got := cfg.NavigationTimeout(); got != 30*time.Second {
		t.Errorf("zero config should fall back to 30s, got %v", got)
	}
	cfg.NavigationTimeoutMs = 1500
	if got := cfg.NavigationTimeout(); got != 1500*time.Millisecond {
		t.Errorf("unexpected timeout: %v", got)
	}
}

func TestStealthScript(t *testing.T) {
	js := StealthScript()
	for _, marker := range []string{"webdriver", "window.chrome", "plugins", "zh-CN"} {
		if !strings.Contains(js, marker) {
			t.Errorf("stealth script missing %q", marker)
		}
	}
}

func TestHumanizerBetween(t *testing.T) {
	h := NewHumanizerWithRand(rand.New(rand.NewSource(1)))

	min, max := 50*time.Millisecond, 150*time.Millisecond
	for i := 0; i < 1000; i++ {
		d := h.between(min, max)
		if d < min || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, min, max)
		}
	}

	if d := h.between(max, min); d != max {
		t.Errorf("inverted range should clamp to min argument, got %v", d)
	}
}

func TestHumanizerDelay_Cancelled(t *testing.T) {
	h := NewHumanizerWithRand(rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.Delay(ctx, time.Hour, 2*time.Hour); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestSessionUnstarted(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)

	if err := s.Navigate(context.Background(), "https://example.com"); err == nil {
		t.Error("navigate on unstarted session should fail")
	}
	if err := s.Reload(context.Background()); err == nil {
		t.Error("reload on unstarted session should fail")
	}
	if s.Page() != nil {
		t.Error("unstarted session should have no page")
	}
	if err := s.Close(); err != nil {
		t.Errorf("closing unstarted session should be a no-op, got %v", err)
	}
}
