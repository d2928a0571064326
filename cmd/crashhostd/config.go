package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HostConfig is the crashhostd configuration file format
type HostConfig struct {
	// HTTP listen address, e.g. ":8080"
	Listen string `yaml:"listen"`

	// Base URL crash report trace strings point at
	ReportBaseURL string `yaml:"report_base_url"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	LogJSON  bool   `yaml:"log_json"`

	// Crash handler switches
	Verbose bool `yaml:"verbose"` // emit non-fatal internal error reports
	Debug   bool `yaml:"debug"`   // local symbolized backtraces instead of trace strings
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*HostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config HostConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *HostConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *HostConfig {
	c := &HostConfig{}
	c.applyDefaults()
	return c
}

// ExampleConfig documents the config file format
const ExampleConfig = `# crashhostd configuration

# HTTP listen address
listen: ":8080"

# Where emitted crash report trace strings decode
# (leave empty for the built-in default)
report_base_url: ""

# Logging
log_level: "info"
log_json: false

# Emit non-fatal internal error reports to stderr
verbose: false

# Print local symbolized backtraces instead of trace strings
debug: false
`
