// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// zenohsec-bridge generates zenoh router and peer configurations with
// TLS transport settings. Certificate material is located either by
// explicit paths or by the conventional enclave directory layout.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/zenoh-security/zenohsec/lib/bridgecfg"
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
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "paths":
		return runGenerate(args[1:], false)
	case "enclave":
		return runGenerate(args[1:], true)
	case "version":
		fmt.Printf("zenohsec-bridge %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: zenohsec-bridge <subcommand> [flags]

Subcommands:
  paths       Generate a configuration from explicit certificate paths
  enclave     Generate a configuration from an enclave directory layout
  version     Print version information

Run 'zenohsec-bridge <subcommand> --help' for subcommand flags.
`)
}

// sharedFlags holds the flags common to both subcommands.
type sharedFlags struct {
	output          *string
	kind            *string
	listenEndpoint  *string
	connectEndpoint *string
	protocols       *[]string
	toolConfig      *string
}

func addSharedFlags(flags *pflag.FlagSet) *sharedFlags {
	return &sharedFlags{
		output:          flags.StringP("output", "o", "", "output directory (required)"),
		kind:            flags.StringP("type", "t", "", "configuration type: router or peer (required)"),
		listenEndpoint:  flags.StringP("listen-endpoint", "l", "", "endpoint to listen on"),
		connectEndpoint: flags.StringP("connect-endpoint", "c", "", "endpoint to connect to"),
		protocols:       flags.StringSliceP("protocols", "p", nil, "transport protocols to enable (tcp, tls)"),
		toolConfig:      flags.String("tool-config", "", "zenohsec tool configuration file (YAML)"),
	}
}

// params resolves the shared flags against the tool configuration
// defaults and validates them.
func (s *sharedFlags) params(flags *pflag.FlagSet) (string, bridgecfg.Kind, bridgecfg.Params, error) {
	cfg, err := loadToolConfig(*s.toolConfig)
	if err != nil {
		return "", "", bridgecfg.Params{}, err
	}

	if *s.output == "" {
		return "", "", bridgecfg.Params{}, fmt.Errorf("--output is required")
	}
	kind, err := bridgecfg.ParseKind(*s.kind)
	if err != nil {
		return "", "", bridgecfg.Params{}, err
	}

	params := bridgecfg.Params{
		Protocols:       cfg.Bridge.Protocols,
		ListenEndpoint:  cfg.Bridge.ListenEndpoint,
		ConnectEndpoint: cfg.Bridge.ConnectEndpoint,
	}
	if flags.Changed("protocols") {
		params.Protocols = *s.protocols
	}
	if flags.Changed("listen-endpoint") {
		params.ListenEndpoint = *s.listenEndpoint
	}
	if flags.Changed("connect-endpoint") {
		params.ConnectEndpoint = *s.connectEndpoint
	}
	for _, protocol := range params.Protocols {
		if protocol != "tcp" && protocol != "tls" {
			return "", "", bridgecfg.Params{}, fmt.Errorf("unknown protocol %q (want tcp or tls)", protocol)
		}
	}

	return *s.output, kind, params, nil
}

// runGenerate handles both subcommands; they differ only in how the
// certificate paths are located.
func runGenerate(args []string, fromEnclave bool) error {
	name := "paths"
	if fromEnclave {
		name = "enclave"
	}
	flags := pflag.NewFlagSet("zenohsec-bridge "+name, pflag.ContinueOnError)
	shared := addSharedFlags(flags)

	var certs bridgecfg.CertPaths
	var enclavePath, enclaveName *string
	if fromEnclave {
		enclavePath = flags.String("enclave-path", "", "root of the enclave directory (required)")
		enclaveName = flags.String("enclave-name", "", "enclave name (required)")
	} else {
		flags.StringVar(&certs.RootCACertificate, "root-ca-certificate", "",
			"path to the CA certificate validating peer keys and certificates (required)")
		flags.StringVar(&certs.ListenPrivateKey, "listen-private-key", "",
			"path to the TLS listening side private key (required)")
		flags.StringVar(&certs.ListenCertificate, "listen-certificate", "",
			"path to the TLS listening side certificate (required)")
		flags.StringVar(&certs.ConnectPrivateKey, "connect-private-key", "",
			"path to the TLS connecting side private key (required)")
		flags.StringVar(&certs.ConnectCertificate, "connect-certificate", "",
			"path to the TLS connecting side certificate (required)")
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	outputDir, kind, params, err := shared.params(flags)
	if err != nil {
		return err
	}

	if fromEnclave {
		if *enclavePath == "" || *enclaveName == "" {
			return fmt.Errorf("--enclave-path and --enclave-name are required")
		}
		certs = bridgecfg.EnclaveCertPaths(*enclavePath, *enclaveName)
	} else if err := checkCertPaths(certs); err != nil {
		return err
	}
	params.Certificates = certs

	path, written, err := bridgecfg.Generate(outputDir, kind, params)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if written {
		logger.Info("wrote configuration", "path", path, "type", string(kind))
	} else {
		logger.Info("configuration unchanged", "path", path, "type", string(kind))
	}
	return nil
}

// checkCertPaths rejects a paths invocation with any certificate flag
// missing.
func checkCertPaths(certs bridgecfg.CertPaths) error {
	missing := []string{}
	for _, flag := range []struct {
		name  string
		value string
	}{
		{"--root-ca-certificate", certs.RootCACertificate},
		{"--listen-private-key", certs.ListenPrivateKey},
		{"--listen-certificate", certs.ListenCertificate},
		{"--connect-private-key", certs.ConnectPrivateKey},
		{"--connect-certificate", certs.ConnectCertificate},
	} {
		if flag.value == "" {
			missing = append(missing, flag.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %v", missing)
	}
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
