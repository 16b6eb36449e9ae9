package navcontrast

import (
	"github.com/hazyhaar/navcontrast/navcontrast/internal/config"
)

// Config is the top-level navcontrast configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a page whose navbar is themed.
type PageConfig = config.PageConfig

// SamplingConfig controls the sampling grid.
type SamplingConfig = config.SamplingConfig

// ClassifyConfig controls the light/dark decision.
type ClassifyConfig = config.ClassifyConfig

// TriggerConfig controls cycle scheduling.
type TriggerConfig = config.TriggerConfig

// CaptureConfig controls the screenshot encoding.
type CaptureConfig = config.CaptureConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// HTTPConfig controls the theme API listener.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}
