// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission extracts per-profile permission sets from a
// policy document. For one profile, declared services are partitioned
// by (direction, verdict) into reply-allow, reply-deny, request-allow
// and request-deny, and declared topics into subscribe-allow,
// subscribe-deny, publish-allow and publish-deny. Service names are
// resolved against the owning node before insertion: a leading "~" is
// the private-name marker and is replaced with the node name.
//
// The deny sets are extracted and surfaced but are not consumed by the
// rule synthesizer: the compiled zenoh ACL encodes allow rules against
// a global default-deny, and has no representation for denying a
// specific key expression.
package permission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zenoh-security/zenohsec/lib/policy"
)

// DeclarationError reports a service or topic declaration that cannot
// be compiled: an empty name, a group with no direction attribute, or
// a verdict that is neither ALLOW nor DENY. It aborts processing of
// the owning profile only.
type DeclarationError struct {
	// Enclave is the path of the enclave containing the profile.
	Enclave string

	// Profile is the node name of the profile being extracted.
	Profile string

	// Element is "service" or "topic".
	Element string

	// Detail describes the fault.
	Detail string
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("enclave %q profile %q: invalid %s declaration: %s",
		e.Enclave, e.Profile, e.Element, e.Detail)
}

// Set is an unordered collection of unique resolved names. Membership
// only: no duplicates, no provenance.
type Set map[string]struct{}

// Add inserts a name into the set.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Contains reports whether name is a member.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Empty reports whether the set has no members.
func (s Set) Empty() bool {
	return len(s) == 0
}

// Sorted materializes the set as a lexicographically sorted slice.
// Every ordered sequence derived from a set goes through this so that
// compilation output is reproducible across runs.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PermissionSet is the eight-way partition of one profile's
// declarations, with service names already resolved.
type PermissionSet struct {
	ReplyAllow   Set
	ReplyDeny    Set
	RequestAllow Set
	RequestDeny  Set

	SubscribeAllow Set
	SubscribeDeny  Set
	PublishAllow   Set
	PublishDeny    Set
}

// NewPermissionSet returns an empty PermissionSet with all eight sets
// initialized.
func NewPermissionSet() *PermissionSet {
	return &PermissionSet{
		ReplyAllow:     Set{},
		ReplyDeny:      Set{},
		RequestAllow:   Set{},
		RequestDeny:    Set{},
		SubscribeAllow: Set{},
		SubscribeDeny:  Set{},
		PublishAllow:   Set{},
		PublishDeny:    Set{},
	}
}

// HasServices reports whether any service permission was declared with
// an allow verdict. The liveliness rule's message set depends on this.
func (p *PermissionSet) HasServices() bool {
	return !p.ReplyAllow.Empty() || !p.RequestAllow.Empty()
}

// Verdict values as they appear in policy documents.
const (
	verdictAllow = "ALLOW"
	verdictDeny  = "DENY"
)

// extractor carries the error context through one profile's
// extraction.
type extractor struct {
	enclave string
	node    string
}

func (e *extractor) declarationError(element, format string, args ...any) error {
	return &DeclarationError{
		Enclave: e.enclave,
		Profile: e.node,
		Element: element,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// Extract partitions the declarations of one profile into a
// PermissionSet. The enclave path is carried only for error context.
func Extract(enclavePath string, profile policy.Profile) (*PermissionSet, error) {
	perms := NewPermissionSet()
	ex := &extractor{enclave: enclavePath, node: profile.Node}

	for _, group := range profile.Services {
		var target Set
		switch {
		case group.Reply != "":
			target = perms.ReplyAllow
			if group.Reply == verdictDeny {
				target = perms.ReplyDeny
			}
			if err := ex.checkVerdict("service", group.Reply); err != nil {
				return nil, err
			}
		case group.Request != "":
			target = perms.RequestAllow
			if group.Request == verdictDeny {
				target = perms.RequestDeny
			}
			if err := ex.checkVerdict("service", group.Request); err != nil {
				return nil, err
			}
		default:
			return nil, ex.declarationError("service", "group has no reply or request attribute")
		}

		for _, name := range group.Names {
			resolved, err := ResolveServiceName(name, profile.Node)
			if err != nil {
				return nil, ex.declarationError("service", "%v", err)
			}
			target.Add(resolved)
		}
	}

	for _, group := range profile.Topics {
		var target Set
		switch {
		case group.Subscribe != "":
			target = perms.SubscribeAllow
			if group.Subscribe == verdictDeny {
				target = perms.SubscribeDeny
			}
			if err := ex.checkVerdict("topic", group.Subscribe); err != nil {
				return nil, err
			}
		case group.Publish != "":
			target = perms.PublishAllow
			if group.Publish == verdictDeny {
				target = perms.PublishDeny
			}
			if err := ex.checkVerdict("topic", group.Publish); err != nil {
				return nil, err
			}
		default:
			return nil, ex.declarationError("topic", "group has no subscribe or publish attribute")
		}

		for _, name := range group.Names {
			resolved, err := normalizeTopicName(name)
			if err != nil {
				return nil, ex.declarationError("topic", "%v", err)
			}
			target.Add(resolved)
		}
	}

	return perms, nil
}

// checkVerdict rejects verdicts other than ALLOW and DENY instead of
// silently dropping the group.
func (e *extractor) checkVerdict(element, verdict string) error {
	if verdict != verdictAllow && verdict != verdictDeny {
		return e.declarationError(element, "unknown verdict %q (want ALLOW or DENY)", verdict)
	}
	return nil
}

// ResolveServiceName resolves a declared service name against its
// node. A leading "~" private-name marker is replaced with the node
// name, so "~set_param" and "~/set_param" both resolve to
// "<node>/set_param" (prefix substitution, not path resegmentation).
// A leading "/" is stripped so the result is usable as a
// key-expression segment. Empty and whitespace-only names are
// rejected.
func ResolveServiceName(name, nodeName string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty service name")
	}
	if name[0] == '~' {
		rest := strings.TrimPrefix(name[1:], "/")
		if rest == "" {
			return nodeName, nil
		}
		return nodeName + "/" + rest, nil
	}
	resolved := strings.TrimPrefix(name, "/")
	if resolved == "" {
		return "", fmt.Errorf("service name %q resolves to an empty key-expression segment", name)
	}
	return resolved, nil
}

// normalizeTopicName strips a leading "/" from a topic name. Topics
// have no private-name resolution.
func normalizeTopicName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty topic name")
	}
	normalized := strings.TrimPrefix(name, "/")
	if normalized == "" {
		return "", fmt.Errorf("topic name %q resolves to an empty key-expression segment", name)
	}
	return normalized, nil
}
