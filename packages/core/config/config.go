package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitrun/packages/core/meta"
)

// Config is the project configuration. Pointer fields distinguish "unset"
// from an explicit false so that Merge only overrides what was written.
type Config struct {
	Host            string            `yaml:"host,omitempty"`
	Timeout         int               `yaml:"timeout,omitempty"` // milliseconds
	Display         string            `yaml:"display,omitempty"`
	FailFast        *bool             `yaml:"failFast,omitempty"`
	FollowRedirects *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `yaml:"validateSSL,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Output          string            `yaml:"output,omitempty"`
	OutputFile      string            `yaml:"outputFile,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty"`
	EnvFiles        []string          `yaml:"envFiles,omitempty"`
	History         string            `yaml:"history,omitempty"`
	Rate            float64           `yaml:"rate,omitempty"` // requests per second
	Vars            map[string]any    `yaml:"vars,omitempty"`

	// Path is the file the config was loaded from, if any.
	Path string `yaml:"-"`
}

func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFailFast defaults to false.
func (c *Config) GetFailFast() bool {
	return getBool(c.FailFast, false)
}

// GetFollowRedirects defaults to true.
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL defaults to true.
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetNoColor defaults to false.
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// Filenames are the config file names looked up in each directory.
var Filenames = []string{
	".hitrun.yaml",
	".hitrun.yml",
	".hitrun.json",
}

// Load reads the config at path, or searches upward from the working
// directory when path is empty. Defaults are returned when no file exists.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return Find(wd)
}

// Find searches dir and its parents for a config file.
func Find(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range Filenames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return loadFile(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return DefaultConfig(), nil
		}
		dir = parent
	}
}

// loadFile parses YAML or JSON; JSON documents are valid YAML.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Merge returns c with the fields set in other taking precedence.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Host != "" {
		result.Host = other.Host
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Display != "" {
		result.Display = other.Display
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}

	if other.FailFast != nil {
		result.FailFast = other.FailFast
	}
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.EnvFiles) > 0 {
		result.EnvFiles = append([]string(nil), other.EnvFiles...)
	}
	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Vars = mergeMaps(c.Vars, other.Vars)

	return &result
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// ToMeta builds the global default meta. Every var stays a user key, even
// one named like a reserved key; only the host, timeout and display
// settings are reserved.
func (c *Config) ToMeta() (meta.Meta, error) {
	values := make(map[string]any, 3)
	if c.Host != "" {
		values["host"] = c.Host
	}
	if c.Timeout > 0 {
		values["timeout"] = c.Timeout
	}
	if c.Display != "" {
		values["display"] = c.Display
	}
	reserved, err := meta.FromMap(values)
	if err != nil {
		return meta.Meta{}, err
	}
	return meta.FromVars(c.Vars).Merge(reserved), nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
