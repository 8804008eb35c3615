// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Cipher suite names accepted in cipher.suite.
const (
	SuiteAES256GCM        = "aes-256-gcm"
	SuiteChaCha20Poly1305 = "chacha20-poly1305"
)

// Config is the configuration shared by the ghost client and relay.
type Config struct {
	// Nick is the display nickname announced in join messages.
	Nick string `yaml:"nick" json:"nick"`

	// ICE configures STUN/TURN servers for the WebRTC transport.
	ICE ICEConfig `yaml:"ice" json:"ice"`

	// Timeouts bounds the session's suspension points.
	Timeouts TimeoutsConfig `yaml:"timeouts" json:"timeouts"`

	// Cipher selects the AEAD used for chat frames.
	Cipher CipherConfig `yaml:"cipher" json:"cipher"`

	// Relay configures both the relay server and the relay client.
	Relay RelayConfig `yaml:"relay" json:"relay"`

	// Bot configures the responder bridge.
	Bot BotConfig `yaml:"bot" json:"bot"`
}

// ICEConfig lists ICE servers in the order pion should try them.
type ICEConfig struct {
	Servers []ICEServer `yaml:"servers" json:"servers"`
}

// ICEServer is one STUN or TURN server entry.
type ICEServer struct {
	URLs       []string `yaml:"urls" json:"urls"`
	Username   string   `yaml:"username,omitempty" json:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty" json:"credential,omitempty"`
}

// TimeoutsConfig holds duration strings for the session deadlines.
type TimeoutsConfig struct {
	// Gather bounds ICE candidate gathering. Expiry is not fatal.
	// Default: 5s
	Gather string `yaml:"gather" json:"gather"`

	// Connect bounds the wait for the data channel to open.
	// Default: 15s
	Connect string `yaml:"connect" json:"connect"`

	// Receive bounds a single receive in non-interactive modes.
	// Default: 0 (wait until cancelled)
	Receive string `yaml:"receive" json:"receive"`
}

// CipherConfig selects the frame AEAD.
type CipherConfig struct {
	// Suite is aes-256-gcm (browser compatible) or chacha20-poly1305.
	Suite string `yaml:"suite" json:"suite"`
}

// RelayConfig configures the relay.
type RelayConfig struct {
	// URL is the relay websocket endpoint used by clients, e.g.
	// wss://relay.example.org/. Empty disables relay-routed signaling.
	URL string `yaml:"url" json:"url"`

	// Listen is the address the relay server binds.
	// Default: :8080
	Listen string `yaml:"listen" json:"listen"`

	// MaxFrameSize bounds a single relayed frame in bytes.
	// Default: 1 MiB
	MaxFrameSize int64 `yaml:"max_frame_size" json:"max_frame_size"`

	// SendQueue is the per-connection outbound queue length. Frames
	// for a peer whose queue is full are dropped.
	// Default: 64
	SendQueue int `yaml:"send_queue" json:"send_queue"`
}

// BotConfig configures the responder bridge.
type BotConfig struct {
	// Endpoint is the base URL of an Ollama-compatible server.
	// Default: http://localhost:11434
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Model is the model name passed to the server.
	// Default: qwen2.5:3b
	Model string `yaml:"model" json:"model"`

	// SystemPrompt opens every conversation.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`

	// History is the number of user/assistant turns kept.
	// Default: 20
	History int `yaml:"history" json:"history"`

	// Timeout bounds one completion request.
	// Default: 60s
	Timeout string `yaml:"timeout" json:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Nick: "ghost",
		ICE: ICEConfig{
			Servers: []ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		},
		Timeouts: TimeoutsConfig{
			Gather:  "5s",
			Connect: "15s",
			Receive: "0s",
		},
		Cipher: CipherConfig{Suite: SuiteAES256GCM},
		Relay: RelayConfig{
			Listen:       ":8080",
			MaxFrameSize: 1 << 20,
			SendQueue:    64,
		},
		Bot: BotConfig{
			Endpoint:     "http://localhost:11434",
			Model:        "qwen2.5:3b",
			SystemPrompt: "You are a helpful AI assistant. Keep responses brief (1-2 sentences).",
			History:      20,
			Timeout:      "60s",
		},
	}
}

// Load loads configuration from the file named by GHOST_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("GHOST_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("GHOST_CONFIG environment variable not set; " +
			"set it to the path of your ghost.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merged over Default. The
// result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Nick) == "" {
		errs = append(errs, fmt.Errorf("nick is required"))
	} else if len(c.Nick) > 64 {
		errs = append(errs, fmt.Errorf("nick is %d bytes, maximum is 64", len(c.Nick)))
	}

	for index, server := range c.ICE.Servers {
		if len(server.URLs) == 0 {
			errs = append(errs, fmt.Errorf("ice.servers[%d]: urls is required", index))
		}
		for _, serverURL := range server.URLs {
			if !strings.HasPrefix(serverURL, "stun:") && !strings.HasPrefix(serverURL, "turn:") && !strings.HasPrefix(serverURL, "turns:") {
				errs = append(errs, fmt.Errorf("ice.servers[%d]: %q is not a stun:, turn:, or turns: URL", index, serverURL))
			}
		}
	}

	errs = append(errs, checkDuration("timeouts.gather", c.Timeouts.Gather, false))
	errs = append(errs, checkDuration("timeouts.connect", c.Timeouts.Connect, false))
	errs = append(errs, checkDuration("timeouts.receive", c.Timeouts.Receive, true))
	errs = append(errs, checkDuration("bot.timeout", c.Bot.Timeout, false))

	switch c.Cipher.Suite {
	case SuiteAES256GCM, SuiteChaCha20Poly1305:
	default:
		errs = append(errs, fmt.Errorf("cipher.suite %q is not one of %s, %s", c.Cipher.Suite, SuiteAES256GCM, SuiteChaCha20Poly1305))
	}

	if c.Relay.URL != "" {
		parsed, err := url.Parse(c.Relay.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("relay.url: %w", err))
		} else if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
			errs = append(errs, fmt.Errorf("relay.url scheme must be ws or wss, got %q", parsed.Scheme))
		}
	}
	if c.Relay.MaxFrameSize <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_frame_size must be positive"))
	}
	if c.Relay.SendQueue <= 0 {
		errs = append(errs, fmt.Errorf("relay.send_queue must be positive"))
	}

	if c.Bot.History < 0 {
		errs = append(errs, fmt.Errorf("bot.history must not be negative"))
	}

	return errors.Join(errs...)
}

// GatherTimeout returns timeouts.gather. Call Validate first.
func (c *Config) GatherTimeout() time.Duration { return mustDuration(c.Timeouts.Gather) }

// ConnectTimeout returns timeouts.connect. Call Validate first.
func (c *Config) ConnectTimeout() time.Duration { return mustDuration(c.Timeouts.Connect) }

// ReceiveTimeout returns timeouts.receive. Zero means no deadline.
func (c *Config) ReceiveTimeout() time.Duration { return mustDuration(c.Timeouts.Receive) }

// BotTimeout returns bot.timeout. Call Validate first.
func (c *Config) BotTimeout() time.Duration { return mustDuration(c.Bot.Timeout) }

func checkDuration(name, value string, allowZero bool) error {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if duration < 0 || (duration == 0 && !allowZero) {
		return fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return nil
}

// mustDuration parses a duration already checked by Validate. An
// unparseable value yields zero.
func mustDuration(value string) time.Duration {
	duration, _ := time.ParseDuration(value)
	return duration
}
