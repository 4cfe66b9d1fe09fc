// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package zenohcfg builds and emits zenoh configuration documents.
// Zenoh configs are JSON5; base configs are read with comments and
// trailing commas stripped, mutated through slash-separated key paths
// (the same addressing zenoh's own insert_json5 uses), and serialized
// as plain JSON, which every JSON5 reader accepts.
package zenohcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/zenoh-security/zenohsec/lib/binhash"
)

// Extension is the file extension of emitted configuration documents.
const Extension = "json5"

// SinkError reports a failure to emit a configuration document. It is
// fatal for the profile being written; the run continues with the
// remaining profiles.
type SinkError struct {
	// Path is the target file path.
	Path string

	// Err is the underlying failure.
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Config is a mutable zenoh configuration document.
type Config struct {
	root map[string]any
}

// New returns an empty configuration document.
func New() *Config {
	return &Config{root: map[string]any{}}
}

// Parse reads a JSON5/JSONC configuration document. Comments and
// trailing commas are stripped before parsing as standard JSON.
func Parse(data []byte) (*Config, error) {
	stripped := jsonc.ToJSON(data)

	var root map[string]any
	if err := json.Unmarshal(stripped, &root); err != nil {
		return nil, fmt.Errorf("parsing zenoh config: %w", err)
	}
	return &Config{root: root}, nil
}

// Load reads and parses a JSON5 configuration file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Set inserts value at a slash-separated key path, creating
// intermediate objects as needed. Replacing a non-object intermediate
// is an error: a base config that already holds, say, a scalar at
// "access_control" cannot silently lose it.
func (c *Config) Set(path string, value any) error {
	segments := strings.Split(path, "/")
	node := c.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment]
		if !ok {
			next := map[string]any{}
			node[segment] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("config path %q: %q is not an object", path, segment)
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
	return nil
}

// Get returns the value at a slash-separated key path, or false when
// any segment is absent.
func (c *Config) Get(path string) (any, bool) {
	segments := strings.Split(path, "/")
	node := c.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	value, ok := node[segments[len(segments)-1]]
	return value, ok
}

// Encode serializes the document with two-space indentation and a
// trailing newline. Keys serialize in sorted order (encoding/json maps),
// so encoding the same document twice is byte-identical.
func (c *Config) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(c.root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding zenoh config: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile emits the document at path. When the target already holds
// identical content (by SHA256 digest) the write is skipped and
// written is false. All failures are reported as *SinkError.
func (c *Config) WriteFile(path string) (written bool, err error) {
	data, err := c.Encode()
	if err != nil {
		return false, &SinkError{Path: path, Err: err}
	}
	return WriteFileIdempotent(path, data)
}

// WriteFileIdempotent writes data to path unless the file already
// holds identical content. Shared by the ACL and bridge emitters so
// both output paths have the same overwrite behavior.
func WriteFileIdempotent(path string, data []byte) (written bool, err error) {
	// An unreadable or missing target falls through to the write,
	// which surfaces the real failure if there is one.
	if existing, err := binhash.HashFile(path); err == nil {
		if existing == binhash.HashBytes(data) {
			return false, nil
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, &SinkError{Path: path, Err: err}
	}
	return true, nil
}
