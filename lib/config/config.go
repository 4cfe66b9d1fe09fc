// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides tool configuration for the zenohsec
// binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - ZENOHSEC_CONFIG environment variable, or
//   - --tool-config flag passed to the command
//
// The file holds defaults for values the command line can override:
// the output directory, the ROS domain ID, and the bridge endpoint
// settings. There is no automatic discovery; a missing setting means
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the tool configuration shared by zenohsec-policy and
// zenohsec-bridge.
type Config struct {
	// OutputDir is where generated configuration files are written.
	OutputDir string `yaml:"output_dir"`

	// DomainID is the ROS domain ID used as the leading segment of
	// every generated key expression.
	DomainID uint16 `yaml:"domain_id"`

	// Bridge configures the bridge configuration generator.
	Bridge BridgeConfig `yaml:"bridge"`
}

// BridgeConfig holds defaults for zenohsec-bridge.
type BridgeConfig struct {
	// Protocols are the transport protocols to enable ("tcp", "tls").
	Protocols []string `yaml:"protocols"`

	// ListenEndpoint is the default endpoint to listen on.
	ListenEndpoint string `yaml:"listen_endpoint"`

	// ConnectEndpoint is the default endpoint to connect to.
	ConnectEndpoint string `yaml:"connect_endpoint"`
}

// Default returns the built-in defaults, used as the base before a
// config file is merged in.
func Default() *Config {
	return &Config{
		OutputDir: ".",
		DomainID:  0,
		Bridge: BridgeConfig{
			Protocols:       []string{"tls"},
			ListenEndpoint:  "tls/localhost:7447",
			ConnectEndpoint: "tls/localhost:7447",
		},
	}
}

// Load loads configuration from the ZENOHSEC_CONFIG environment
// variable when set, and returns defaults otherwise.
func Load() (*Config, error) {
	path := os.Getenv("ZENOHSEC_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults. The only expansion performed is ${HOME} and
// similar path variables in the output directory.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tool config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing tool config %s: %w", path, err)
	}

	cfg.OutputDir = expandVars(cfg.OutputDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tool config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is required"))
	}

	for _, protocol := range c.Bridge.Protocols {
		if protocol != "tcp" && protocol != "tls" {
			errs = append(errs, fmt.Errorf("bridge.protocols: unknown protocol %q (want tcp or tls)", protocol))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// expandVars expands ${VAR} and ${VAR:-default} patterns from the
// environment.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}
