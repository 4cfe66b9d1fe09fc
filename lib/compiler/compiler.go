// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package compiler drives a full policy compilation run. For every
// enclave in the policy document, and every profile in the enclave, it
// extracts the profile's permission sets, synthesizes the access
// control rules and bindings, and emits one zenoh configuration file
// named after the node.
//
// Failure containment follows three tiers: a policy document that
// cannot be parsed aborts the run; an invalid declaration or a write
// failure aborts only the profile it belongs to, is logged with
// enclave and profile context, and the run continues; a run that
// skipped any profile reports an error after finishing the rest.
//
// Profiles share no mutable state; the run processes them
// sequentially, and all rules for a profile are fully computed before
// any are written.
package compiler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zenoh-security/zenohsec/lib/aclgen"
	"github.com/zenoh-security/zenohsec/lib/permission"
	"github.com/zenoh-security/zenohsec/lib/policy"
	"github.com/zenoh-security/zenohsec/lib/zenohcfg"
)

// Options configures a compilation run.
type Options struct {
	// PolicyPath is the XML policy document to compile. Required.
	PolicyPath string

	// BaseConfigPath is an optional zenoh JSON5 configuration to
	// merge the access-control keys into. Every profile starts from
	// the same base.
	BaseConfigPath string

	// OutputDir is where the per-node configuration files are
	// written. Defaults to the current directory.
	OutputDir string

	// DomainID is the ROS domain ID, the leading segment of every
	// generated key expression.
	DomainID uint16

	// Logger receives per-profile progress and failure reports.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Summary reports what a compilation run did.
type Summary struct {
	// Written lists the files created or updated.
	Written []string

	// Unchanged lists the files skipped because the target already
	// held identical content.
	Unchanged []string

	// Failed counts the profiles skipped because of an invalid
	// declaration or a write failure.
	Failed int
}

// Run compiles every profile of the policy document at
// opts.PolicyPath. Returns an error if the document is malformed, or
// if any profile had to be skipped.
func Run(opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	doc, err := policy.Load(opts.PolicyPath)
	if err != nil {
		return nil, err
	}

	// The base config is read once; each profile parses its own copy
	// so profiles stay independent.
	var baseConfig []byte
	if opts.BaseConfigPath != "" {
		baseConfig, err = os.ReadFile(opts.BaseConfigPath)
		if err != nil {
			return nil, fmt.Errorf("reading base config %s: %w", opts.BaseConfigPath, err)
		}
		// Fail before any output if the base config does not parse.
		if _, err := zenohcfg.Parse(baseConfig); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.BaseConfigPath, err)
		}
	}

	summary := &Summary{}
	for _, enclave := range doc.Enclaves.Enclaves {
		for _, profile := range enclave.Profiles {
			path, written, err := compileProfile(enclave, profile, baseConfig, outputDir, opts.DomainID)
			if err != nil {
				logger.Warn("skipping profile",
					"enclave", enclave.Path,
					"profile", profile.Node,
					"error", err)
				summary.Failed++
				continue
			}
			if written {
				logger.Info("wrote configuration", "path", path, "profile", profile.Node)
				summary.Written = append(summary.Written, path)
			} else {
				logger.Info("configuration unchanged", "path", path, "profile", profile.Node)
				summary.Unchanged = append(summary.Unchanged, path)
			}
		}
	}

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d profile(s) failed to compile", summary.Failed)
	}
	return summary, nil
}

// compileProfile runs extract → synthesize → bind → sink for one
// profile.
func compileProfile(enclave policy.Enclave, profile policy.Profile, baseConfig []byte, outputDir string, domainID uint16) (path string, written bool, err error) {
	perms, err := permission.Extract(enclave.Path, profile)
	if err != nil {
		return "", false, err
	}

	compiled := aclgen.Compile(profile.Node, domainID, perms)

	cfg := zenohcfg.New()
	if baseConfig != nil {
		// Parse errors were already caught before the profile loop.
		cfg, err = zenohcfg.Parse(baseConfig)
		if err != nil {
			return "", false, err
		}
	}

	inserts := []struct {
		path  string
		value any
	}{
		{"access_control/enabled", true},
		{"access_control/default_permission", string(aclgen.PermissionDeny)},
		{"access_control/rules", compiled.Rules},
		{"access_control/policies", compiled.Policies},
		{"access_control/subjects", compiled.Subjects},
	}
	for _, insert := range inserts {
		if err := cfg.Set(insert.path, insert.value); err != nil {
			return "", false, fmt.Errorf("inserting %s: %w", insert.path, err)
		}
	}

	path = filepath.Join(outputDir, fmt.Sprintf("%s.%s", profile.Node, zenohcfg.Extension))
	written, err = cfg.WriteFile(path)
	if err != nil {
		return "", false, err
	}
	return path, written, nil
}
