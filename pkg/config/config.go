// Package config loads browser and pacing settings. Values come from
// defaults, then an optional YAML file, then .env and REVIEWS_* variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/review-scraper/pkg/browser"
	"github.com/dtnitsch/review-scraper/pkg/scraper"
)

type Config struct {
	Browser Browser `yaml:"browser"`
	Pacing  Pacing  `yaml:"pacing"`
	Output  Output  `yaml:"output"`
}

type Browser struct {
	Headless              bool          `yaml:"headless" env:"REVIEWS_HEADLESS"`
	ChromePath            string        `yaml:"chrome_path" env:"REVIEWS_CHROME_PATH"`
	UserAgent             string        `yaml:"user_agent" env:"REVIEWS_USER_AGENT"`
	Locale                string        `yaml:"locale"`
	Width                 int           `yaml:"width"`
	Height                int           `yaml:"height"`
	NavigationTimeout     time.Duration `yaml:"navigation_timeout" env:"REVIEWS_NAV_TIMEOUT"`
	ActionTimeout         time.Duration `yaml:"action_timeout"`
	MinNavigationInterval time.Duration `yaml:"min_navigation_interval"`
	Stealth               bool          `yaml:"stealth"`
}

type Pacing struct {
	NavigationAttempts int           `yaml:"navigation_attempts"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	PageDelayMin       time.Duration `yaml:"page_delay_min"`
	PageDelayMax       time.Duration `yaml:"page_delay_max"`
	ReviewWaitTimeout  time.Duration `yaml:"review_wait_timeout"`
	ProductWaitTimeout time.Duration `yaml:"product_wait_timeout"`
}

type Output struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"`
	ArtifactDir string `yaml:"artifact_dir" env:"REVIEWS_ARTIFACT_DIR"`
	DBPath      string `yaml:"db_path" env:"REVIEWS_DB_PATH"`
}

// Default returns the settings used against the live sites.
func Default() Config {
	b := browser.DefaultOptions()
	s := scraper.DefaultOptions()
	return Config{
		Browser: Browser{
			Headless:              b.Headless,
			UserAgent:             b.UserAgent,
			Locale:                b.Locale,
			Width:                 b.Width,
			Height:                b.Height,
			NavigationTimeout:     b.NavigationTimeout,
			ActionTimeout:         b.ActionTimeout,
			MinNavigationInterval: b.MinNavigationInterval,
			Stealth:               b.Stealth,
		},
		Pacing: Pacing{
			NavigationAttempts: s.NavigationAttempts,
			RetryDelay:         s.RetryDelay,
			PageDelayMin:       s.PageDelayMin,
			PageDelayMax:       s.PageDelayMax,
			ReviewWaitTimeout:  s.ReviewWaitTimeout,
			ProductWaitTimeout: s.ProductWaitTimeout,
		},
		Output: Output{
			Dir:         "Output",
			Format:      "json",
			ArtifactDir: "artifacts",
		},
	}
}

// Load builds the config. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}

// BrowserOptions converts the browser section for browser.Launch.
func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:              c.Browser.Headless,
		ExecPath:              c.Browser.ChromePath,
		UserAgent:             c.Browser.UserAgent,
		Locale:                c.Browser.Locale,
		Width:                 c.Browser.Width,
		Height:                c.Browser.Height,
		NavigationTimeout:     c.Browser.NavigationTimeout,
		ActionTimeout:         c.Browser.ActionTimeout,
		MinNavigationInterval: c.Browser.MinNavigationInterval,
		Stealth:               c.Browser.Stealth,
	}
}

// ScraperOptions applies the pacing section over the scraper defaults.
func (c Config) ScraperOptions() scraper.Options {
	opts := scraper.DefaultOptions()
	if c.Pacing.NavigationAttempts > 0 {
		opts.NavigationAttempts = c.Pacing.NavigationAttempts
	}
	opts.RetryDelay = c.Pacing.RetryDelay
	opts.PageDelayMin = c.Pacing.PageDelayMin
	opts.PageDelayMax = max(c.Pacing.PageDelayMax, c.Pacing.PageDelayMin)
	if c.Pacing.ReviewWaitTimeout > 0 {
		opts.ReviewWaitTimeout = c.Pacing.ReviewWaitTimeout
	}
	if c.Pacing.ProductWaitTimeout > 0 {
		opts.ProductWaitTimeout = c.Pacing.ProductWaitTimeout
	}
	return opts
}
