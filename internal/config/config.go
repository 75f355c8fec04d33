// Package config loads gymbook configuration from defaults, an optional
// YAML file, a .env file, and the process environment, in that order of
// precedence. Environment variable names match the original deployment
// (.env with USERNAME/PASSWORD/...), so an existing .env keeps working.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all gymbook settings.
type Config struct {
	// Reservation target
	Username     string `yaml:"username" env:"USERNAME"`
	Password     string `yaml:"password" env:"PASSWORD"`
	CampusName   string `yaml:"campus_name" env:"CAMPUS_NAME" env-default:"广州校区南校园"`
	FacilityName string `yaml:"facility_name" env:"FACILITY_NAME" env-default:"南校园新体育馆羽毛球场（学生）"`
	DateNumber   string `yaml:"date_number" env:"DATE_NUMBER" env-default:"9-17"`
	TimeSlot     string `yaml:"time_slot" env:"TIME_SLOT" env-default:"21:00-22:00"`

	// Site
	BaseURL string `yaml:"base_url" env:"BASE_URL" env-default:"https://gym.sysu.edu.cn"`

	// Debug mode shows the browser window and saves failure screenshots.
	Debug bool `yaml:"debug" env:"DEBUG" env-default:"false"`

	// Captcha solving
	CaptchaProvider string `yaml:"captcha_provider" env:"CAPTCHA_PROVIDER" env-default:"gemini"` // gemini, manual
	GeminiAPIKey    string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	GeminiModel     string `yaml:"gemini_model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`

	// Local plumbing
	DataDir             string `yaml:"data_dir" env:"GYMBOOK_DATA_DIR" env-default:".gymbook"`
	BrowserBin          string `yaml:"browser_bin" env:"GYMBOOK_BROWSER_BIN"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms" env:"GYMBOOK_NAV_TIMEOUT_MS" env-default:"30000"`
}

// Load builds a Config. A .env file in the working directory is loaded
// into the environment first (missing file is fine). When path is
// non-empty the YAML file is read before environment overrides apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a booking run cannot proceed without.
func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("username and password are required (flags, .env, or environment)")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	return nil
}

// NavigationTimeout returns the page navigation timeout.
func (c *Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Save writes the config as YAML. Used by setup to scaffold a starting
// config file; never called with secrets filled in.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
