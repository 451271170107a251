// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/telekom/kestrel/internal/helper"
	"github.com/telekom/kestrel/internal/ping"
	"github.com/telekom/kestrel/internal/traceroute"
	"github.com/telekom/kestrel/pkg/api"
	"github.com/telekom/kestrel/pkg/telemetry"
)

// Output selects how the results of a run are rendered.
type Output string

const (
	// OutputText renders the results like the classic ping and traceroute tools.
	OutputText Output = "text"
	// OutputJSON renders the results as a JSON document.
	OutputJSON Output = "json"
	// OutputYAML renders the results as a YAML document.
	OutputYAML Output = "yaml"
)

// IsValid reports whether the output format is supported.
func (o Output) IsValid() bool {
	switch o {
	case OutputText, OutputJSON, OutputYAML:
		return true
	default:
		return false
	}
}

type Config struct {
	// Ping is the configuration of the ping command
	Ping ping.Options `yaml:"ping" mapstructure:"ping"`
	// Traceroute is the configuration of the traceroute command
	Traceroute traceroute.Options `yaml:"traceroute" mapstructure:"traceroute"`
	// Retry configures how often a failed transmission is repeated
	Retry helper.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Output is the rendering format of the results
	Output Output `yaml:"output" mapstructure:"output"`
	// Api is the configuration of the metrics endpoint
	Api api.Config `yaml:"api" mapstructure:"api"`
	// Telemetry is the configuration for the telemetry
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// New returns a configuration holding the default options of both tools.
func New() *Config {
	return &Config{
		Ping:       ping.DefaultOptions(),
		Traceroute: traceroute.DefaultOptions(),
		Output:     OutputText,
	}
}

// HasTelemetry returns true if the config has telemetry enabled
func (c *Config) HasTelemetry() bool {
	return c.Telemetry.Enabled
}
