// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridgecfg generates zenoh router and peer configurations
// with TLS transport settings. The configurations are rendered from
// embedded JSON5 templates by ${VAR} substitution; there is no
// decision logic here beyond resolving certificate paths from an
// enclave directory layout.
package bridgecfg

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/zenoh-security/zenohsec/lib/zenohcfg"
)

//go:embed templates/*.json5
var templates embed.FS

// Kind selects which configuration template to render.
type Kind string

const (
	Router Kind = "router"
	Peer   Kind = "peer"
)

// ParseKind validates a kind string from the command line.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Router, Peer:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown configuration type %q (want router or peer)", s)
}

// Params holds the values substituted into a template.
type Params struct {
	// Protocols are the transport protocols to enable: "tls", "tcp".
	Protocols []string

	// ListenEndpoint and ConnectEndpoint are zenoh endpoint locators,
	// for example "tls/localhost:7447".
	ListenEndpoint  string
	ConnectEndpoint string

	Certificates CertPaths
}

// CertPaths locates the TLS material referenced by a generated
// configuration. The files are consumed by the zenoh router at
// runtime; this package only writes their paths.
type CertPaths struct {
	RootCACertificate string

	ListenPrivateKey  string
	ListenCertificate string

	ConnectPrivateKey  string
	ConnectCertificate string
}

// EnclaveCertPaths derives certificate paths from the conventional
// enclave directory layout: the CA certificate under public/, and the
// enclave's own key and certificate under enclaves/<name>/. The same
// material serves both the listen and connect sides. A leading "/" on
// the enclave name is stripped.
func EnclaveCertPaths(enclavePath, enclaveName string) CertPaths {
	enclaveName = strings.TrimPrefix(enclaveName, "/")
	key := filepath.Join(enclavePath, "enclaves", enclaveName, "key.pem")
	cert := filepath.Join(enclavePath, "enclaves", enclaveName, "cert.pem")
	return CertPaths{
		RootCACertificate:  filepath.Join(enclavePath, "public", "ca.cert.pem"),
		ListenPrivateKey:   key,
		ListenCertificate:  cert,
		ConnectPrivateKey:  key,
		ConnectCertificate: cert,
	}
}

// vars flattens the parameters into the template variable map. The
// protocols list renders as a quoted, comma-separated JSON5 array
// body.
func (p Params) vars() map[string]string {
	quoted := make([]string, 0, len(p.Protocols))
	for _, protocol := range p.Protocols {
		quoted = append(quoted, fmt.Sprintf("%q", protocol))
	}
	return map[string]string{
		"protocols":           strings.Join(quoted, ", "),
		"listen_endpoint":     p.ListenEndpoint,
		"connect_endpoint":    p.ConnectEndpoint,
		"root_ca_certificate": p.Certificates.RootCACertificate,
		"listen_private_key":  p.Certificates.ListenPrivateKey,
		"listen_certificate":  p.Certificates.ListenCertificate,
		"connect_private_key": p.Certificates.ConnectPrivateKey,
		"connect_certificate": p.Certificates.ConnectCertificate,
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandVars substitutes ${VAR} references in a template. Unknown
// variables are an error: a template referencing a variable the
// parameters do not define would otherwise emit the reference
// verbatim into a config a zenoh router then rejects.
func expandVars(template string, vars map[string]string) (string, error) {
	var unknown []string
	expanded := varPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			unknown = append(unknown, name)
			return match
		}
		return value
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("template references undefined variables: %s", strings.Join(unknown, ", "))
	}
	return expanded, nil
}

// Render expands the template for kind with the given parameters and
// verifies the result is well-formed JSON5.
func Render(kind Kind, params Params) ([]byte, error) {
	template, err := templates.ReadFile(fmt.Sprintf("templates/%s.%s", kind, zenohcfg.Extension))
	if err != nil {
		return nil, fmt.Errorf("reading %s template: %w", kind, err)
	}

	expanded, err := expandVars(string(template), params.vars())
	if err != nil {
		return nil, fmt.Errorf("rendering %s template: %w", kind, err)
	}

	if !json.Valid(jsonc.ToJSON([]byte(expanded))) {
		return nil, fmt.Errorf("rendered %s configuration is not valid JSON5", kind)
	}
	return []byte(expanded), nil
}

// Generate renders the configuration and writes it to
// <outputDir>/<kind>.json5. The write is skipped when the target
// already holds identical content; written reports whether the file
// changed.
func Generate(outputDir string, kind Kind, params Params) (path string, written bool, err error) {
	rendered, err := Render(kind, params)
	if err != nil {
		return "", false, err
	}

	path = filepath.Join(outputDir, fmt.Sprintf("%s.%s", kind, zenohcfg.Extension))
	written, err = zenohcfg.WriteFileIdempotent(path, rendered)
	if err != nil {
		return "", false, err
	}
	return path, written, nil
}
