// CLAUDE:SUMMARY Defines styleimpact config structs (browser, jobs, sinks, http) and parses YAML configuration files with defaults.
// Package config handles styleimpact configuration from YAML files or SQLite.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level styleimpact configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Jobs    []JobConfig   `yaml:"jobs"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Bin              string        `yaml:"bin"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // plain | headless | headful
	ViewportWidth    int           `yaml:"viewport_width"`
	ViewportHeight   int           `yaml:"viewport_height"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// JobConfig defines one style impact measurement. Exactly one of URL (live
// page in Chrome) or HTML (in-memory document) is set. For HTML jobs,
// Stylesheets maps each source ID to its CSS text.
type JobConfig struct {
	ID                 string            `yaml:"id" json:"id"`
	URL                string            `yaml:"url" json:"url,omitempty"`
	HTML               string            `yaml:"html" json:"html,omitempty"`
	Stylesheets        map[string]string `yaml:"stylesheets" json:"stylesheets,omitempty"`
	Sources            []string          `yaml:"sources" json:"sources"`
	RulePropertiesOnly bool              `yaml:"rule_properties_only" json:"rule_properties_only,omitempty"`
	Itemized           bool              `yaml:"itemized" json:"itemized,omitempty"` // default: squashed
	Scope              string            `yaml:"scope" json:"scope,omitempty"`
	Breakpoints        []int             `yaml:"breakpoints" json:"breakpoints,omitempty"`
	CounterCSS         bool              `yaml:"counter_css" json:"counter_css,omitempty"`
	Restore            bool              `yaml:"restore" json:"restore,omitempty"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type       string `yaml:"type"` // stdout | webhook
	URL        string `yaml:"url"`  // for webhook
	MaxRetries int    `yaml:"max_retries"`
}

// HTTPConfig controls the HTTP/MCP listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Validate checks that a job can run.
func (j *JobConfig) Validate() error {
	switch {
	case j.ID == "":
		return errors.New("config: job without id")
	case (j.URL == "") == (j.HTML == ""):
		return fmt.Errorf("config: job %s: exactly one of url or html is required", j.ID)
	case len(j.Sources) == 0:
		return fmt.Errorf("config: job %s: no sources", j.ID)
	}
	for _, w := range j.Breakpoints {
		if w <= 0 {
			return fmt.Errorf("config: job %s: invalid breakpoint %d", j.ID, w)
		}
	}
	return nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	for i := range cfg.Jobs {
		if err := cfg.Jobs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1280
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 800
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8090"
	}
	for i := range c.Sinks {
		if c.Sinks[i].MaxRetries <= 0 {
			c.Sinks[i].MaxRetries = 3
		}
	}
	for i := range c.Jobs {
		if c.Jobs[i].Scope == "" {
			c.Jobs[i].Scope = "*"
		}
	}
}
