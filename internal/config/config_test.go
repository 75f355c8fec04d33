package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks out the variables the loader reads so host environments
// (which usually export USERNAME) don't leak into assertions. t.Setenv
// registers restoration, Unsetenv does the actual clearing.
func clearEnv(t *testing.T) {
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

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CampusName != "广州校区南校园" {
		t.Errorf("unexpected default campus: %q", cfg.CampusName)
	}
	if cfg.FacilityName != "南校园新体育馆羽毛球场（学生）" {
		t.Errorf("unexpected default facility: %q", cfg.FacilityName)
	}
	if cfg.DateNumber != "9-17" {
		t.Errorf("unexpected default date: %q", cfg.DateNumber)
	}
	if cfg.TimeSlot != "21:00-22:00" {
		t.Errorf("unexpected default slot: %q", cfg.TimeSlot)
	}
	if cfg.BaseURL != "https://gym.sysu.edu.cn" {
		t.Errorf("unexpected default base URL: %q", cfg.BaseURL)
	}
	if cfg.Debug {
		t.Error("debug should default to off")
	}
	if got := cfg.NavigationTimeout(); got != 30*time.Second {
		t.Errorf("unexpected navigation timeout: %v", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("USERNAME", "student42")
	t.Setenv("CAMPUS_NAME", "珠海校区")
	t.Setenv("GYMBOOK_NAV_TIMEOUT_MS", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Username != "student42" {
		t.Errorf("USERNAME not applied: %q", cfg.Username)
	}
	if cfg.CampusName != "珠海校区" {
		t.Errorf("CAMPUS_NAME not applied: %q", cfg.CampusName)
	}
	if got := cfg.NavigationTimeout(); got != 5*time.Second {
		t.Errorf("unexpected navigation timeout: %v", got)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	env := "USERNAME=envfileuser\nPASSWORD=secret\nTIME_SLOT=20:00-21:00\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Username != "envfileuser" || cfg.Password != "secret" {
		t.Errorf("credentials not read from .env: %q/%q", cfg.Username, cfg.Password)
	}
	if cfg.TimeSlot != "20:00-21:00" {
		t.Errorf("TIME_SLOT not read from .env: %q", cfg.TimeSlot)
	}
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	yamlPath := filepath.Join(dir, "config.yaml")
	body := "username: yamluser\ndate_number: \"3-11\"\n"
	if err := os.WriteFile(yamlPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("USERNAME", "envuser")

	cfg, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Username != "envuser" {
		t.Errorf("environment should override file, got %q", cfg.Username)
	}
	if cfg.DateNumber != "3-11" {
		t.Errorf("file value lost: %q", cfg.DateNumber)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{BaseURL: "https://gym.sysu.edu.cn"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without credentials")
	}

	cfg.Username = "u"
	cfg.Password = "p"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without base URL")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	path := filepath.Join(dir, "gymbook.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.FacilityName != cfg.FacilityName {
		t.Errorf("facility lost in round trip: %q", loaded.FacilityName)
	}
}

func TestSelectors(t *testing.T) {
	sel := DefaultSelectors()

	row := sel.TimeSlotRowFor("21:00-22:00")
	if !strings.Contains(row, `contains(., "21:00-22:00")`) {
		t.Errorf("slot row template not filled: %q", row)
	}
	if sel.UsernameInput != `//*[@id="username"]` {
		t.Errorf("unexpected username selector: %q", sel.UsernameInput)
	}
	if sel.BookableSlot != "button.slot-btn.available" {
		t.Errorf("unexpected bookable slot selector: %q", sel.BookableSlot)
	}
}
