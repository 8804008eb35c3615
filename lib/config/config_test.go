// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.GatherTimeout() != 5*time.Second {
		t.Errorf("gather timeout = %v, want 5s", cfg.GatherTimeout())
	}
	if cfg.ReceiveTimeout() != 0 {
		t.Errorf("receive timeout = %v, want 0", cfg.ReceiveTimeout())
	}
	if cfg.Cipher.Suite != SuiteAES256GCM {
		t.Errorf("suite = %q, want %q", cfg.Cipher.Suite, SuiteAES256GCM)
	}
	if len(cfg.ICE.Servers) != 1 || cfg.ICE.Servers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("ice servers = %+v", cfg.ICE.Servers)
	}
}

func TestLoad_RequiresGhostConfig(t *testing.T) {
	t.Setenv("GHOST_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when GHOST_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "GHOST_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithGhostConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ghost.yaml")
	writeFile(t, configPath, "nick: alice\n")
	t.Setenv("GHOST_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Nick != "alice" {
		t.Errorf("nick = %q, want alice", cfg.Nick)
	}
}

func TestLoadFile_YAMLMergesOverDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ghost.yaml")
	writeFile(t, configPath, `
nick: bob
timeouts:
  connect: 30s
relay:
  url: wss://relay.example.org/
  send_queue: 8
cipher:
  suite: chacha20-poly1305
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Nick != "bob" {
		t.Errorf("nick = %q, want bob", cfg.Nick)
	}
	if cfg.ConnectTimeout() != 30*time.Second {
		t.Errorf("connect = %v, want 30s", cfg.ConnectTimeout())
	}
	if cfg.GatherTimeout() != 5*time.Second {
		t.Errorf("gather = %v, want default 5s", cfg.GatherTimeout())
	}
	if cfg.Relay.URL != "wss://relay.example.org/" || cfg.Relay.SendQueue != 8 {
		t.Errorf("relay = %+v", cfg.Relay)
	}
	if cfg.Relay.MaxFrameSize != 1<<20 {
		t.Errorf("max frame = %d, want default", cfg.Relay.MaxFrameSize)
	}
	if cfg.Cipher.Suite != SuiteChaCha20Poly1305 {
		t.Errorf("suite = %q", cfg.Cipher.Suite)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ghost.jsonc")
	writeFile(t, configPath, `{
  // nickname shown to peers
  "nick": "carol",
  "bot": {"model": "llama3", "history": 4,},
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Nick != "carol" || cfg.Bot.Model != "llama3" || cfg.Bot.History != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Bot.Endpoint != "http://localhost:11434" {
		t.Errorf("bot endpoint = %q, want default", cfg.Bot.Endpoint)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	directory := t.TempDir()

	if _, err := LoadFile(filepath.Join(directory, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	malformed := filepath.Join(directory, "bad.yaml")
	writeFile(t, malformed, "nick: [unterminated\n")
	if _, err := LoadFile(malformed); err == nil {
		t.Error("expected error for malformed YAML")
	}

	invalid := filepath.Join(directory, "invalid.yaml")
	writeFile(t, invalid, "cipher:\n  suite: rot13\n")
	if _, err := LoadFile(invalid); err == nil || !strings.Contains(err.Error(), "cipher.suite") {
		t.Errorf("expected cipher.suite validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty nick", func(c *Config) { c.Nick = " " }, "nick is required"},
		{"long nick", func(c *Config) { c.Nick = strings.Repeat("x", 65) }, "maximum is 64"},
		{"bad ice url", func(c *Config) { c.ICE.Servers[0].URLs = []string{"http://x"} }, "not a stun:"},
		{"empty ice urls", func(c *Config) { c.ICE.Servers[0].URLs = nil }, "urls is required"},
		{"bad gather", func(c *Config) { c.Timeouts.Gather = "soon" }, "timeouts.gather"},
		{"zero connect", func(c *Config) { c.Timeouts.Connect = "0s" }, "timeouts.connect must be positive"},
		{"negative receive", func(c *Config) { c.Timeouts.Receive = "-1s" }, "timeouts.receive"},
		{"relay scheme", func(c *Config) { c.Relay.URL = "http://relay" }, "ws or wss"},
		{"frame size", func(c *Config) { c.Relay.MaxFrameSize = 0 }, "max_frame_size"},
		{"send queue", func(c *Config) { c.Relay.SendQueue = -1 }, "send_queue"},
		{"history", func(c *Config) { c.Bot.History = -1 }, "bot.history"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Nick = ""
	cfg.Relay.SendQueue = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"nick is required", "send_queue"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
