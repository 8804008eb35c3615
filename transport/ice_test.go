// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"testing"

	"github.com/bureau-foundation/ghost/lib/config"
)

func TestICEConfigFromConfig_Empty(t *testing.T) {
	ice := ICEConfigFromConfig(config.ICEConfig{})
	if len(ice.Servers) != 0 {
		t.Errorf("expected no ICE servers, got %d", len(ice.Servers))
	}
}

func TestICEConfigFromConfig_Default(t *testing.T) {
	ice := ICEConfigFromConfig(config.Default().ICE)
	if len(ice.Servers) != 1 {
		t.Fatalf("expected 1 ICE server, got %d", len(ice.Servers))
	}
	if ice.Servers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("url = %q", ice.Servers[0].URLs[0])
	}
	if ice.Servers[0].Username != "" {
		t.Errorf("STUN entry has username %q", ice.Servers[0].Username)
	}
}

func TestICEConfigFromConfig_WithCredentials(t *testing.T) {
	ice := ICEConfigFromConfig(config.ICEConfig{Servers: []config.ICEServer{
		{URLs: nil},
		{
			URLs:       []string{"turn:turn.example.org:3478?transport=udp", "turn:turn.example.org:3478?transport=tcp"},
			Username:   "1234:user",
			Credential: "secret",
		},
	}})
	if len(ice.Servers) != 1 {
		t.Fatalf("expected 1 ICE server entry, got %d", len(ice.Servers))
	}
	server := ice.Servers[0]
	if len(server.URLs) != 2 {
		t.Errorf("expected 2 URLs, got %d", len(server.URLs))
	}
	if server.Username != "1234:user" {
		t.Errorf("username = %q, want %q", server.Username, "1234:user")
	}
	if server.Credential != "secret" {
		t.Errorf("credential = %v, want %q", server.Credential, "secret")
	}
}
