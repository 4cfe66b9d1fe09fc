// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy provides a read-only model of ROS 2 access-control
// policy documents. A policy file is an XML document of enclaves, each
// containing profiles that bind a node name to the services and topics
// it may use:
//
//	<policy>
//	  <enclaves>
//	    <enclave path="/talker_listener">
//	      <profiles>
//	        <profile node="talker">
//	          <topics publish="ALLOW">
//	            <topic>chatter</topic>
//	          </topics>
//	        </profile>
//	      </profiles>
//	    </enclave>
//	  </enclaves>
//	</policy>
//
// The model is traversal only: it is parsed once per compilation run
// and never mutated. Interpretation of directions and verdicts happens
// in the permission package.
package policy

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
)

// ErrMalformed is returned when a policy document cannot be parsed or
// lacks the expected structural elements. It is fatal for the whole
// compilation run.
var ErrMalformed = errors.New("malformed policy document")

// Document is the root of a parsed policy file.
type Document struct {
	XMLName  xml.Name     `xml:"policy"`
	Enclaves *EnclaveList `xml:"enclaves"`
}

// EnclaveList wraps the <enclaves> element. It exists as a distinct
// type so a missing <enclaves> element (nil) can be told apart from an
// empty one.
type EnclaveList struct {
	Enclaves []Enclave `xml:"enclave"`
}

// Enclave is a named grouping of profiles. Enclaves have no
// relationships with each other.
type Enclave struct {
	// Path is the enclave name, conventionally a "/"-prefixed path
	// such as "/talker_listener".
	Path string `xml:"path,attr"`

	Profiles []Profile `xml:"profiles>profile"`
}

// Profile binds one node to its declared service and topic
// permissions.
type Profile struct {
	// Node is the node name the profile applies to. Required.
	Node string `xml:"node,attr"`

	Services []ServiceGroup `xml:"services"`
	Topics   []TopicGroup   `xml:"topics"`
}

// ServiceGroup is a <services> element. Exactly one of the Reply or
// Request attributes carries the verdict ("ALLOW" or "DENY") and
// determines the direction of every service name in the group.
type ServiceGroup struct {
	Reply   string   `xml:"reply,attr"`
	Request string   `xml:"request,attr"`
	Names   []string `xml:"service"`
}

// TopicGroup is a <topics> element. Exactly one of the Subscribe or
// Publish attributes carries the verdict and determines the direction
// of every topic name in the group.
type TopicGroup struct {
	Subscribe string   `xml:"subscribe,attr"`
	Publish   string   `xml:"publish,attr"`
	Names     []string `xml:"topic"`
}

// Parse parses a policy document from raw XML. Returns an error
// wrapping ErrMalformed if the markup is not well formed, the root
// element is not <policy>, the <enclaves> element is missing, or a
// profile has no node name.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses a policy document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// validate checks for the structural elements every policy document
// must have. Content-level problems (empty declaration names, missing
// group verdicts) are profile-scoped and reported by the permission
// package instead.
func (d *Document) validate() error {
	if d.Enclaves == nil {
		return fmt.Errorf("%w: missing <enclaves> element", ErrMalformed)
	}
	for _, enclave := range d.Enclaves.Enclaves {
		for i, profile := range enclave.Profiles {
			if profile.Node == "" {
				return fmt.Errorf("%w: enclave %q profile %d has no node attribute",
					ErrMalformed, enclave.Path, i)
			}
		}
	}
	return nil
}
