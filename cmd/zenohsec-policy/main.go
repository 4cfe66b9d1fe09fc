// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// zenohsec-policy compiles a ROS 2 access-control policy document into
// per-node zenoh configuration files with access_control sections.
//
// Usage:
//
//	zenohsec-policy --policy policy.xml [--config base.json5] [--output-dir out] [--domain-id 0]
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/zenoh-security/zenohsec/lib/compiler"
	"github.com/zenoh-security/zenohsec/lib/config"
	"github.com/zenoh-security/zenohsec/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("zenohsec-policy", pflag.ContinueOnError)
	policyPath := flags.String("policy", "", "path to the XML policy document (required)")
	baseConfig := flags.String("config", "", "zenoh JSON5 config to merge the access-control keys into")
	outputDir := flags.StringP("output", "o", "", "output directory for the generated configurations")
	domainID := flags.Uint16("domain-id", 0, "ROS domain ID used in generated key expressions")
	toolConfig := flags.String("tool-config", "", "zenohsec tool configuration file (YAML)")
	showVersion := flags.Bool("version", false, "print version and exit")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("zenohsec-policy %s\n", version.Info())
		return nil
	}
	if *policyPath == "" {
		fmt.Fprintf(os.Stderr, "Usage of zenohsec-policy:\n")
		flags.PrintDefaults()
		return fmt.Errorf("--policy is required")
	}

	cfg, err := loadToolConfig(*toolConfig)
	if err != nil {
		return err
	}
	if !flags.Changed("output") {
		*outputDir = cfg.OutputDir
	}
	if !flags.Changed("domain-id") {
		*domainID = cfg.DomainID
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	summary, err := compiler.Run(compiler.Options{
		PolicyPath:     *policyPath,
		BaseConfigPath: *baseConfig,
		OutputDir:      *outputDir,
		DomainID:       *domainID,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("compilation complete",
		"written", len(summary.Written),
		"unchanged", len(summary.Unchanged))
	return nil
}

// loadToolConfig loads the tool configuration: an explicit path when
// the flag is set, the ZENOHSEC_CONFIG environment variable otherwise,
// and built-in defaults when neither is present.
func loadToolConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
