// Package config handles navcontrast configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/navcontrast/horosafe"
)

// Config is the top-level navcontrast configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Pages    []PageConfig   `yaml:"pages"`
	Sampling SamplingConfig `yaml:"sampling"`
	Classify ClassifyConfig `yaml:"classify"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Capture  CaptureConfig  `yaml:"capture"`
	Sinks    []SinkConfig   `yaml:"sinks"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Mode             string        `yaml:"mode"` // headless | headful
	Stealth          bool          `yaml:"stealth"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// PageConfig defines a page whose navbar is themed.
type PageConfig struct {
	ID              string `yaml:"id"`
	URL             string `yaml:"url"`
	ViewportWidth   int    `yaml:"viewport_width"`
	ViewportHeight  int    `yaml:"viewport_height"`
	// ExcludeSelector names elements hidden during each screenshot, usually
	// the navbar. Headless only: a headful window would show them blink.
	ExcludeSelector string `yaml:"exclude_selector"`
}

// SamplingConfig controls the sampling grid, in source pixels.
type SamplingConfig struct {
	StepX      int `yaml:"step_x"`
	StepY      int `yaml:"step_y"`
	BandHeight int `yaml:"band_height"`
}

// ClassifyConfig controls the light/dark decision.
type ClassifyConfig struct {
	// BrightnessThreshold on the 0-255 scale. Nil takes 150; 0 is honoured.
	BrightnessThreshold *float64 `yaml:"brightness_threshold"`
}

// TriggerConfig controls cycle scheduling.
type TriggerConfig struct {
	ScrollThreshold *int          `yaml:"scroll_threshold"` // explicit 0 allowed
	Settle          time.Duration `yaml:"settle"`
	MaxSettle       time.Duration `yaml:"max_settle"`
	CaptureTimeout  time.Duration `yaml:"capture_timeout"`
}

// CaptureConfig controls the screenshot encoding.
type CaptureConfig struct {
	Format  string `yaml:"format"`  // png | jpeg | webp
	Quality int    `yaml:"quality"` // jpeg/webp only
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | sqlite | metrics
	URL  string `yaml:"url"`  // webhook
	Path string `yaml:"path"` // sqlite, metrics
}

// HTTPConfig controls the theme API listener. Empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Sampling.StepX <= 0 {
		c.Sampling.StepX = 20
	}
	if c.Sampling.StepY <= 0 {
		c.Sampling.StepY = 10
	}
	if c.Sampling.BandHeight <= 0 {
		c.Sampling.BandHeight = 80
	}
	if c.Classify.BrightnessThreshold == nil {
		v := 150.0
		c.Classify.BrightnessThreshold = &v
	}
	if c.Trigger.ScrollThreshold == nil {
		v := 10
		c.Trigger.ScrollThreshold = &v
	}
	if c.Trigger.Settle <= 0 {
		c.Trigger.Settle = 150 * time.Millisecond
	}
	if c.Trigger.MaxSettle <= 0 {
		c.Trigger.MaxSettle = time.Second
	}
	if c.Trigger.CaptureTimeout <= 0 {
		c.Trigger.CaptureTimeout = 10 * time.Second
	}
	if c.Capture.Format == "" {
		c.Capture.Format = "png"
	}
	for i := range c.Pages {
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
		if c.Pages[i].ViewportWidth <= 0 {
			c.Pages[i].ViewportWidth = 1280
		}
		if c.Pages[i].ViewportHeight <= 0 {
			c.Pages[i].ViewportHeight = 800
		}
	}
}

// Validate rejects configurations the engine cannot run.
func (c *Config) Validate() error {
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode %q: want headless or headful", c.Browser.Mode)
	}
	switch c.Capture.Format {
	case "png", "jpeg", "webp":
	default:
		return fmt.Errorf("config: capture.format %q: want png, jpeg or webp", c.Capture.Format)
	}
	if t := c.Classify.BrightnessThreshold; t != nil && (*t < 0 || *t > 255) {
		return fmt.Errorf("config: classify.brightness_threshold %v out of range 0-255", *t)
	}
	if t := c.Trigger.ScrollThreshold; t != nil && *t < 0 {
		return fmt.Errorf("config: trigger.scroll_threshold %d must not be negative", *t)
	}
	if c.Capture.Quality < 0 || c.Capture.Quality > 100 {
		return fmt.Errorf("config: capture.quality %d out of range 0-100", c.Capture.Quality)
	}

	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("config: page %q has no url", p.ID)
		}
		if err := horosafe.ValidateIdentifier(p.ID); err != nil {
			return fmt.Errorf("config: page id: %w", err)
		}
		if err := horosafe.ValidateHTTPURL(p.URL); err != nil {
			return fmt.Errorf("config: page %q: %w", p.ID, err)
		}
		if p.ExcludeSelector != "" && c.Browser.Mode == "headful" {
			return fmt.Errorf("config: page %q: exclude_selector requires browser.mode headless", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("config: duplicate page id %q", p.ID)
		}
		seen[p.ID] = true
	}

	for _, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: webhook sink needs url")
			}
			if err := horosafe.ValidateHTTPURL(s.URL); err != nil {
				return fmt.Errorf("config: webhook sink: %w", err)
			}
		case "sqlite", "metrics":
			if s.Path == "" {
				return fmt.Errorf("config: %s sink needs path", s.Type)
			}
		default:
			return fmt.Errorf("config: unknown sink type %q", s.Type)
		}
	}
	return nil
}
