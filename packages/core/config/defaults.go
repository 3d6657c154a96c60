package config

// DefaultConfig returns a configuration with default values. No request
// timeout is set by default.
func DefaultConfig() *Config {
	return &Config{
		Display:      "standard",
		MaxRedirects: 10,
		Output:       "console",
	}
}

// IsDefault reports whether c carries no settings beyond the defaults.
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Host == "" &&
		c.Timeout == 0 &&
		c.Display == defaults.Display &&
		c.FailFast == nil &&
		c.FollowRedirects == nil &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.ValidateSSL == nil &&
		c.Proxy == "" &&
		len(c.Headers) == 0 &&
		c.Output == defaults.Output &&
		c.OutputFile == "" &&
		c.NoColor == nil &&
		len(c.EnvFiles) == 0 &&
		c.History == "" &&
		c.Rate == 0 &&
		len(c.Vars) == 0
}
