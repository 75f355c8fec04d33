package main

import (
	"os"
	"testing"

	"go.uber.org/zap"
)

func clearBookingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"USERNAME", "PASSWORD", "CAMPUS_NAME", "FACILITY_NAME",
		"DATE_NUMBER", "TIME_SLOT", "BASE_URL", "DEBUG",
		"CAPTCHA_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL",
		"GYMBOOK_DATA_DIR", "GYMBOOK_BROWSER_BIN", "GYMBOOK_NAV_TIMEOUT_MS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"book", "setup", "history", "version"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestBookFlags(t *testing.T) {
	for _, name := range []string{
		"username", "password", "campus", "facility",
		"date", "time", "debug", "booking-time",
	} {
		if bookCmd.Flags().Lookup(name) == nil {
			t.Errorf("book flag --%s not defined", name)
		}
	}
}

func TestLoadBookConfig_FlagsWin(t *testing.T) {
	clearBookingEnv(t)
	t.Chdir(t.TempDir())
	logger = zap.NewNop()
	t.Setenv("USERNAME", "env-user")
	t.Setenv("PASSWORD", "env-pass")

	bookUsername = "flag-user"
	bookDate = "9-18"
	bookDebug = true
	defer func() {
		bookUsername, bookDate, bookDebug = "", "", false
	}()

	cfg, err := loadBookConfig()
	if err != nil {
		t.Fatalf("loadBookConfig: %v", err)
	}
	if cfg.Username != "flag-user" {
		t.Errorf("flag should override env, got %s", cfg.Username)
	}
	if cfg.Password != "env-pass" {
		t.Errorf("env password should survive, got %s", cfg.Password)
	}
	if cfg.DateNumber != "9-18" || !cfg.Debug {
		t.Errorf("flag overrides not applied: %+v", cfg)
	}
}

func TestLoadBookConfig_RequiresCredentials(t *testing.T) {
	clearBookingEnv(t)
	t.Chdir(t.TempDir())
	logger = zap.NewNop()

	if _, err := loadBookConfig(); err == nil {
		t.Fatal("missing credentials should fail validation")
	}
}

func TestBrowserConfig_DebugShowsWindow(t *testing.T) {
	clearBookingEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("USERNAME", "u")
	t.Setenv("PASSWORD", "p")
	logger = zap.NewNop()

	cfg, err := loadBookConfig()
	if err != nil {
		t.Fatalf("loadBookConfig: %v", err)
	}

	bc := browserConfig(cfg)
	if !bc.Headless {
		t.Error("non-debug runs should be headless")
	}

	cfg.Debug = true
	if browserConfig(cfg).Headless {
		t.Error("debug runs should show the browser window")
	}
}

func TestBuildSolver_FallsBackToManual(t *testing.T) {
	clearBookingEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("USERNAME", "u")
	t.Setenv("PASSWORD", "p")
	logger = zap.NewNop()

	cfg, err := loadBookConfig()
	if err != nil {
		t.Fatalf("loadBookConfig: %v", err)
	}

	// Default provider is gemini but no key is set.
	solver, err := buildSolver(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildSolver: %v", err)
	}
	if solver.Name() != "manual" {
		t.Errorf("expected manual fallback, got %s", solver.Name())
	}

	cfg.CaptchaProvider = "nope"
	if _, err := buildSolver(t.Context(), cfg); err == nil {
		t.Error("unknown provider should error")
	}
}
