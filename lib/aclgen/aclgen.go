// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

// Package aclgen synthesizes zenoh access-control rules, subjects and
// policy bindings from a profile's permission sets.
//
// Each of the seven direction/kind rules is gated only on its own
// permission set being non-empty; the gates are independent of each
// other. Key expressions are built from lexicographically sorted set
// members so that compilation output is byte-identical across runs. A
// liveliness rule is always appended last; its message set includes
// reply exactly when the profile has any allowed service permission.
package aclgen

import (
	"fmt"

	"github.com/zenoh-security/zenohsec/lib/permission"
)

// MessageKind identifies a zenoh message category an ACL rule applies
// to.
type MessageKind string

const (
	MessagePut                         MessageKind = "put"
	MessageQuery                       MessageKind = "query"
	MessageReply                       MessageKind = "reply"
	MessageDeclareQueryable            MessageKind = "declare_queryable"
	MessageDeclareSubscriber           MessageKind = "declare_subscriber"
	MessageLivelinessToken             MessageKind = "liveliness_token"
	MessageLivelinessQuery             MessageKind = "liveliness_query"
	MessageDeclareLivelinessSubscriber MessageKind = "declare_liveliness_subscriber"
)

// Flow is the traffic direction relative to the node.
type Flow string

const (
	FlowIngress Flow = "ingress"
	FlowEgress  Flow = "egress"
)

// Permission is the verdict a rule applies to matching traffic.
type Permission string

const (
	PermissionAllow Permission = "allow"
	PermissionDeny  Permission = "deny"
)

// Rule is one zenoh access-control rule. Field names and order match
// the zenoh configuration schema.
type Rule struct {
	ID         string        `json:"id"`
	Messages   []MessageKind `json:"messages"`
	Flows      []Flow        `json:"flows"`
	Permission Permission    `json:"permission"`
	KeyExprs   []string      `json:"key_exprs"`
}

// Subject is an identity policy bindings attach to: the literal
// "router" or a node name.
type Subject struct {
	ID string `json:"id"`
}

// PolicyBinding associates rule ids with subject ids.
type PolicyBinding struct {
	Rules    []string `json:"rules"`
	Subjects []string `json:"subjects"`
}

// Output is the compiled ACL for one profile. It is inserted into a
// zenoh configuration and discarded; nothing persists between runs
// beyond the written document.
type Output struct {
	Rules    []Rule
	Subjects []Subject
	Policies []PolicyBinding
}

// RouterSubject is the fixed subject bound to the liveliness rule in
// every compiled profile.
const RouterSubject = "router"

// LivelinessRuleID is the id of the always-appended liveliness rule.
const LivelinessRuleID = "liveliness_tokens"

// SynthesizeRules converts the permission sets of one profile into an
// ordered rule list. domainID is the leading key-expression namespace
// segment (the ROS domain ID).
func SynthesizeRules(domainID uint16, perms *permission.PermissionSet) []Rule {
	var rules []Rule

	emit := func(id string, messages []MessageKind, flow Flow, names permission.Set) {
		if names.Empty() {
			return
		}
		rules = append(rules, Rule{
			ID:         id,
			Messages:   messages,
			Flows:      []Flow{flow},
			Permission: PermissionAllow,
			KeyExprs:   keyExprs(domainID, names),
		})
	}

	emit("incoming_queries", []MessageKind{MessageQuery}, FlowIngress, perms.ReplyAllow)
	emit("outgoing_queryables_replies", []MessageKind{MessageDeclareQueryable, MessageReply}, FlowEgress, perms.ReplyAllow)
	emit("outgoing_queries", []MessageKind{MessageQuery}, FlowEgress, perms.RequestAllow)
	emit("outgoing_publications", []MessageKind{MessagePut}, FlowEgress, perms.PublishAllow)
	emit("outgoing_subscriptions", []MessageKind{MessageDeclareSubscriber}, FlowEgress, perms.SubscribeAllow)
	emit("incoming_subscriptions", []MessageKind{MessageDeclareSubscriber}, FlowIngress, perms.PublishAllow)
	emit("incoming_publications", []MessageKind{MessagePut}, FlowIngress, perms.SubscribeAllow)

	rules = append(rules, livelinessRule(domainID, perms.HasServices()))
	return rules
}

// livelinessRule builds the trailing rule covering liveliness traffic
// in both directions. withReply adds the reply message kind, needed
// when the node participates in any service exchange.
func livelinessRule(domainID uint16, withReply bool) Rule {
	messages := []MessageKind{
		MessageLivelinessToken,
		MessageLivelinessQuery,
		MessageDeclareLivelinessSubscriber,
	}
	if withReply {
		messages = append(messages, MessageReply)
	}
	return Rule{
		ID:         LivelinessRuleID,
		Messages:   messages,
		Flows:      []Flow{FlowIngress, FlowEgress},
		Permission: PermissionAllow,
		KeyExprs:   []string{fmt.Sprintf("@ros2_lv/%d/**", domainID)},
	}
}

// keyExprs builds the ordered key-expression list for a set of
// resolved names: "<domain>/<name>/**" per name, sorted by name.
func keyExprs(domainID uint16, names permission.Set) []string {
	sorted := names.Sorted()
	exprs := make([]string, 0, len(sorted))
	for _, name := range sorted {
		exprs = append(exprs, fmt.Sprintf("%d/%s/**", domainID, name))
	}
	return exprs
}

// Bind produces the subject list and policy bindings for a rule list.
// The router subject is bound only to the liveliness rule; the node
// subject is bound to every rule emitted for the profile.
func Bind(nodeName string, rules []Rule) ([]Subject, []PolicyBinding) {
	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		ids = append(ids, rule.ID)
	}

	subjects := []Subject{
		{ID: RouterSubject},
		{ID: nodeName},
	}
	policies := []PolicyBinding{
		{Rules: []string{LivelinessRuleID}, Subjects: []string{RouterSubject}},
		{Rules: ids, Subjects: []string{nodeName}},
	}
	return subjects, policies
}

// Compile runs synthesis and binding for one profile.
func Compile(nodeName string, domainID uint16, perms *permission.PermissionSet) *Output {
	rules := SynthesizeRules(domainID, perms)
	subjects, policies := Bind(nodeName, rules)
	return &Output{
		Rules:    rules,
		Subjects: subjects,
		Policies: policies,
	}
}
