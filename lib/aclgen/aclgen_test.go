// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

package aclgen

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/zenoh-security/zenohsec/lib/permission"
)

func ruleByID(t *testing.T, rules []Rule, id string) Rule {
	t.Helper()
	for _, rule := range rules {
		if rule.ID == id {
			return rule
		}
	}
	t.Fatalf("rule %q not emitted; got %v", id, ruleIDs(rules))
	return Rule{}
}

func ruleIDs(rules []Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		ids = append(ids, rule.ID)
	}
	return ids
}

func TestEmptyProfileEmitsOnlyLiveliness(t *testing.T) {
	rules := SynthesizeRules(0, permission.NewPermissionSet())

	if len(rules) != 1 || rules[0].ID != LivelinessRuleID {
		t.Fatalf("rules = %v, want only liveliness_tokens", ruleIDs(rules))
	}
	for _, message := range rules[0].Messages {
		if message == MessageReply {
			t.Error("liveliness messages should exclude reply for a profile with no services")
		}
	}
	if !reflect.DeepEqual(rules[0].Flows, []Flow{FlowIngress, FlowEgress}) {
		t.Errorf("liveliness flows = %v", rules[0].Flows)
	}
	if !reflect.DeepEqual(rules[0].KeyExprs, []string{"@ros2_lv/0/**"}) {
		t.Errorf("liveliness key_exprs = %v", rules[0].KeyExprs)
	}
}

func TestReplyAllowRules(t *testing.T) {
	perms := permission.NewPermissionSet()
	perms.ReplyAllow.Add("configurator/set_param")

	rules := SynthesizeRules(0, perms)
	if got := ruleIDs(rules); !reflect.DeepEqual(got, []string{
		"incoming_queries", "outgoing_queryables_replies", LivelinessRuleID,
	}) {
		t.Fatalf("rules = %v", got)
	}

	incoming := ruleByID(t, rules, "incoming_queries")
	if !reflect.DeepEqual(incoming.Messages, []MessageKind{MessageQuery}) {
		t.Errorf("incoming_queries messages = %v", incoming.Messages)
	}
	if !reflect.DeepEqual(incoming.Flows, []Flow{FlowIngress}) {
		t.Errorf("incoming_queries flows = %v", incoming.Flows)
	}
	if !reflect.DeepEqual(incoming.KeyExprs, []string{"0/configurator/set_param/**"}) {
		t.Errorf("incoming_queries key_exprs = %v", incoming.KeyExprs)
	}

	outgoing := ruleByID(t, rules, "outgoing_queryables_replies")
	if !reflect.DeepEqual(outgoing.Messages, []MessageKind{MessageDeclareQueryable, MessageReply}) {
		t.Errorf("outgoing_queryables_replies messages = %v", outgoing.Messages)
	}
	if !reflect.DeepEqual(outgoing.KeyExprs, []string{"0/configurator/set_param/**"}) {
		t.Errorf("outgoing_queryables_replies key_exprs = %v", outgoing.KeyExprs)
	}

	liveliness := ruleByID(t, rules, LivelinessRuleID)
	found := false
	for _, message := range liveliness.Messages {
		if message == MessageReply {
			found = true
		}
	}
	if !found {
		t.Error("liveliness messages should include reply when a reply-allow service exists")
	}
}

func TestRequestAllowRules(t *testing.T) {
	perms := permission.NewPermissionSet()
	perms.RequestAllow.Add("add_two_ints")

	rules := SynthesizeRules(0, perms)
	if got := ruleIDs(rules); !reflect.DeepEqual(got, []string{"outgoing_queries", LivelinessRuleID}) {
		t.Fatalf("rules = %v", got)
	}

	outgoing := ruleByID(t, rules, "outgoing_queries")
	if !reflect.DeepEqual(outgoing.Flows, []Flow{FlowEgress}) {
		t.Errorf("outgoing_queries flows = %v", outgoing.Flows)
	}

	liveliness := ruleByID(t, rules, LivelinessRuleID)
	if liveliness.Messages[len(liveliness.Messages)-1] != MessageReply {
		t.Error("liveliness messages should include reply when a request-allow service exists")
	}
}

// The talker example: one publish-allow topic and no services yields
// the publication rule pair plus liveliness without reply.
func TestPublishAllowRules(t *testing.T) {
	perms := permission.NewPermissionSet()
	perms.PublishAllow.Add("chatter")

	rules := SynthesizeRules(0, perms)
	if got := ruleIDs(rules); !reflect.DeepEqual(got, []string{
		"outgoing_publications", "incoming_subscriptions", LivelinessRuleID,
	}) {
		t.Fatalf("rules = %v", got)
	}

	outgoing := ruleByID(t, rules, "outgoing_publications")
	if !reflect.DeepEqual(outgoing.Messages, []MessageKind{MessagePut}) {
		t.Errorf("outgoing_publications messages = %v", outgoing.Messages)
	}
	if !reflect.DeepEqual(outgoing.KeyExprs, []string{"0/chatter/**"}) {
		t.Errorf("outgoing_publications key_exprs = %v", outgoing.KeyExprs)
	}

	incoming := ruleByID(t, rules, "incoming_subscriptions")
	if !reflect.DeepEqual(incoming.Messages, []MessageKind{MessageDeclareSubscriber}) {
		t.Errorf("incoming_subscriptions messages = %v", incoming.Messages)
	}
	if !reflect.DeepEqual(incoming.Flows, []Flow{FlowIngress}) {
		t.Errorf("incoming_subscriptions flows = %v", incoming.Flows)
	}
	if !reflect.DeepEqual(incoming.KeyExprs, []string{"0/chatter/**"}) {
		t.Errorf("incoming_subscriptions key_exprs = %v", incoming.KeyExprs)
	}

	liveliness := ruleByID(t, rules, LivelinessRuleID)
	if len(liveliness.Messages) != 3 {
		t.Errorf("liveliness messages = %v, want the three liveliness kinds only", liveliness.Messages)
	}
}

// incoming_subscriptions is gated on publish-allow alone: it must be
// emitted without any subscribe-allow member, and incoming_publications
// must be emitted without any publish-allow member.
func TestRuleGatesAreIndependent(t *testing.T) {
	pubOnly := permission.NewPermissionSet()
	pubOnly.PublishAllow.Add("chatter")
	if got := ruleIDs(SynthesizeRules(0, pubOnly)); !reflect.DeepEqual(got, []string{
		"outgoing_publications", "incoming_subscriptions", LivelinessRuleID,
	}) {
		t.Errorf("publish-only rules = %v", got)
	}

	subOnly := permission.NewPermissionSet()
	subOnly.SubscribeAllow.Add("chatter")
	if got := ruleIDs(SynthesizeRules(0, subOnly)); !reflect.DeepEqual(got, []string{
		"outgoing_subscriptions", "incoming_publications", LivelinessRuleID,
	}) {
		t.Errorf("subscribe-only rules = %v", got)
	}
}

// Deny sets never produce rules; the compiled ACL expresses denial
// only through the global default.
func TestDenySetsEmitNoRules(t *testing.T) {
	perms := permission.NewPermissionSet()
	perms.ReplyDeny.Add("forbidden_srv")
	perms.PublishDeny.Add("secret_out")
	perms.SubscribeDeny.Add("secret_in")
	perms.RequestDeny.Add("no_request")

	rules := SynthesizeRules(0, perms)
	if len(rules) != 1 || rules[0].ID != LivelinessRuleID {
		t.Fatalf("rules = %v, want only liveliness_tokens", ruleIDs(rules))
	}
	for _, message := range rules[0].Messages {
		if message == MessageReply {
			t.Error("deny-only services should not add reply to liveliness messages")
		}
	}
}

func TestKeyExprsSortedAndDomainScoped(t *testing.T) {
	perms := permission.NewPermissionSet()
	for _, topic := range []string{"zeta", "alpha", "mu"} {
		perms.PublishAllow.Add(topic)
	}

	rules := SynthesizeRules(42, perms)
	outgoing := ruleByID(t, rules, "outgoing_publications")
	want := []string{"42/alpha/**", "42/mu/**", "42/zeta/**"}
	if !reflect.DeepEqual(outgoing.KeyExprs, want) {
		t.Errorf("key_exprs = %v, want %v", outgoing.KeyExprs, want)
	}

	liveliness := ruleByID(t, rules, LivelinessRuleID)
	if !reflect.DeepEqual(liveliness.KeyExprs, []string{"@ros2_lv/42/**"}) {
		t.Errorf("liveliness key_exprs = %v", liveliness.KeyExprs)
	}
}

func TestSynthesisIsDeterministic(t *testing.T) {
	build := func() []byte {
		perms := permission.NewPermissionSet()
		for _, topic := range []string{"imu", "odom", "scan", "tf", "cmd_vel"} {
			perms.PublishAllow.Add(topic)
			perms.SubscribeAllow.Add(topic)
		}
		perms.ReplyAllow.Add("nav/get_plan")
		perms.RequestAllow.Add("map/get_map")

		data, err := json.Marshal(Compile("nav", 0, perms))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return data
	}

	first := build()
	for i := 0; i < 5; i++ {
		if next := build(); !bytes.Equal(first, next) {
			t.Fatalf("compilation not deterministic:\n%s\n%s", first, next)
		}
	}
}

func TestBind(t *testing.T) {
	perms := permission.NewPermissionSet()
	perms.PublishAllow.Add("chatter")
	rules := SynthesizeRules(0, perms)

	subjects, policies := Bind("talker", rules)

	wantSubjects := []Subject{{ID: "router"}, {ID: "talker"}}
	if !reflect.DeepEqual(subjects, wantSubjects) {
		t.Errorf("subjects = %v, want %v", subjects, wantSubjects)
	}

	if len(policies) != 2 {
		t.Fatalf("got %d policy bindings, want 2", len(policies))
	}
	routerPolicy := policies[0]
	if !reflect.DeepEqual(routerPolicy.Rules, []string{LivelinessRuleID}) ||
		!reflect.DeepEqual(routerPolicy.Subjects, []string{"router"}) {
		t.Errorf("router binding = %+v", routerPolicy)
	}

	nodePolicy := policies[1]
	if !reflect.DeepEqual(nodePolicy.Rules, ruleIDs(rules)) {
		t.Errorf("node binding rules = %v, want %v", nodePolicy.Rules, ruleIDs(rules))
	}
	if !reflect.DeepEqual(nodePolicy.Subjects, []string{"talker"}) {
		t.Errorf("node binding subjects = %v", nodePolicy.Subjects)
	}
}

// Every rule id referenced by a policy binding must exist in the rule
// list of the same output.
func TestBindingsReferenceEmittedRules(t *testing.T) {
	perms := permission.NewPermissionSet()
	perms.ReplyAllow.Add("srv")
	perms.SubscribeAllow.Add("topic")

	output := Compile("node", 0, perms)
	emitted := map[string]bool{}
	for _, rule := range output.Rules {
		emitted[rule.ID] = true
	}
	for _, binding := range output.Policies {
		for _, id := range binding.Rules {
			if !emitted[id] {
				t.Errorf("binding references unknown rule %q", id)
			}
		}
	}
}
