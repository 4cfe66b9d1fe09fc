// Copyright 2026 The Zenohsec Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const samplePolicy = `<?xml version="1.0" encoding="UTF-8"?>
<policy version="0.2.0">
  <enclaves>
    <enclave path="/talker_listener">
      <profiles>
        <profile node="talker">
          <topics publish="ALLOW">
            <topic>chatter</topic>
          </topics>
        </profile>
        <profile node="listener">
          <topics subscribe="ALLOW">
            <topic>chatter</topic>
          </topics>
        </profile>
      </profiles>
    </enclave>
    <enclave path="/add_two_ints">
      <profiles>
        <profile node="server">
          <services reply="ALLOW">
            <service>add_two_ints</service>
            <service>~describe_parameters</service>
          </services>
        </profile>
      </profiles>
    </enclave>
  </enclaves>
</policy>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(samplePolicy))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	enclaves := doc.Enclaves.Enclaves
	if len(enclaves) != 2 {
		t.Fatalf("got %d enclaves, want 2", len(enclaves))
	}
	if enclaves[0].Path != "/talker_listener" {
		t.Errorf("enclave path = %q, want /talker_listener", enclaves[0].Path)
	}
	if len(enclaves[0].Profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(enclaves[0].Profiles))
	}
	if enclaves[0].Profiles[0].Node != "talker" {
		t.Errorf("profile node = %q, want talker", enclaves[0].Profiles[0].Node)
	}

	topics := enclaves[0].Profiles[0].Topics
	if len(topics) != 1 || topics[0].Publish != "ALLOW" {
		t.Fatalf("talker topics = %+v, want one publish=ALLOW group", topics)
	}
	if len(topics[0].Names) != 1 || topics[0].Names[0] != "chatter" {
		t.Errorf("talker topic names = %v, want [chatter]", topics[0].Names)
	}

	services := enclaves[1].Profiles[0].Services
	if len(services) != 1 || services[0].Reply != "ALLOW" {
		t.Fatalf("server services = %+v, want one reply=ALLOW group", services)
	}
	if len(services[0].Names) != 2 {
		t.Errorf("server service names = %v, want two entries", services[0].Names)
	}
}

func TestParseTraversableTwice(t *testing.T) {
	doc, err := Parse([]byte(samplePolicy))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	count := func() int {
		n := 0
		for _, enclave := range doc.Enclaves.Enclaves {
			n += len(enclave.Profiles)
		}
		return n
	}
	if first, second := count(), count(); first != second || first != 3 {
		t.Errorf("traversal counts = %d, %d, want 3, 3", first, second)
	}
}

func TestParseMalformedMarkup(t *testing.T) {
	_, err := Parse([]byte("<policy><enclaves>"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse(truncated) error = %v, want ErrMalformed", err)
	}
}

func TestParseWrongRoot(t *testing.T) {
	_, err := Parse([]byte("<profile node=\"talker\"/>"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse(wrong root) error = %v, want ErrMalformed", err)
	}
}

func TestParseMissingEnclaves(t *testing.T) {
	_, err := Parse([]byte("<policy version=\"0.2.0\"/>"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse(no enclaves) error = %v, want ErrMalformed", err)
	}
}

func TestParseMissingNodeAttribute(t *testing.T) {
	_, err := Parse([]byte(`<policy>
  <enclaves>
    <enclave path="/x">
      <profiles>
        <profile>
          <topics publish="ALLOW"><topic>chatter</topic></topics>
        </profile>
      </profiles>
    </enclave>
  </enclaves>
</policy>`))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse(no node attr) error = %v, want ErrMalformed", err)
	}
}

func TestParseEmptyEnclaves(t *testing.T) {
	doc, err := Parse([]byte("<policy><enclaves></enclaves></policy>"))
	if err != nil {
		t.Fatalf("Parse(empty enclaves): %v", err)
	}
	if len(doc.Enclaves.Enclaves) != 0 {
		t.Errorf("got %d enclaves, want 0", len(doc.Enclaves.Enclaves))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.xml")
	if err := os.WriteFile(path, []byte(samplePolicy), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Enclaves.Enclaves) != 2 {
		t.Errorf("got %d enclaves, want 2", len(doc.Enclaves.Enclaves))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xml"))
	if err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}
