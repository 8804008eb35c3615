// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ghost/cmd/ghost/cli"
	"github.com/bureau-foundation/ghost/lib/config"
	"github.com/bureau-foundation/ghost/lib/roomcipher"
	"github.com/bureau-foundation/ghost/relay"
	"github.com/bureau-foundation/ghost/session"
	"github.com/bureau-foundation/ghost/transport"
)

// commonOptions are the flags every chat command accepts.
type commonOptions struct {
	configPath string
	nick       string
	relayURL   string
	jsonLogs   bool
	verbose    bool
	plain      bool
}

func (options *commonOptions) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&options.configPath, "config", "", "configuration file (default $GHOST_CONFIG)")
	flagSet.StringVar(&options.nick, "nick", "", "display name (overrides the configuration)")
	flagSet.StringVar(&options.relayURL, "relay", "", "relay URL for swapping codes (ws:// or wss://)")
	flagSet.BoolVar(&options.jsonLogs, "json-logs", false, "always log JSON to stderr")
	flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "log debug events")
	flagSet.BoolVar(&options.plain, "plain", false, "line-oriented chat even on a terminal")
}

// environment is what a command needs after flags are parsed.
type environment struct {
	config *config.Config
	logger *slog.Logger
	suite  roomcipher.Suite
}

func (options *commonOptions) load(command string) (*environment, error) {
	var loaded *config.Config
	var err error
	switch {
	case options.configPath != "":
		loaded, err = config.LoadFile(options.configPath)
	case os.Getenv("GHOST_CONFIG") != "":
		loaded, err = config.Load()
	default:
		loaded = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if options.nick != "" {
		loaded.Nick = options.nick
	}
	if options.relayURL != "" {
		loaded.Relay.URL = options.relayURL
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	suite, err := roomcipher.ParseSuite(loaded.Cipher.Suite)
	if err != nil {
		return nil, err
	}

	format := cli.LogAuto
	if options.jsonLogs {
		format = cli.LogJSON
	}
	level := slog.LevelWarn
	if options.verbose {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(format, level).With("command", command)
	return &environment{config: loaded, logger: logger, suite: suite}, nil
}

// newSession creates a session over a fresh WebRTC peer.
func (env *environment) newSession(nick string) (*session.Session, error) {
	peer, err := transport.NewWebRTCPeer(transport.ICEConfigFromConfig(env.config.ICE), env.logger)
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		Nick:          nick,
		Logger:        env.logger,
		GatherTimeout: env.config.GatherTimeout(),
		Suite:         env.suite,
	}, peer), nil
}

// dialSignaler joins the relay room for the session's room and
// returns a Signaler plus a cleanup function.
func (env *environment) dialSignaler(ctx context.Context, chatSession *session.Session) (transport.Signaler, func(), error) {
	parsed, err := chatSession.Credential().Parse()
	if err != nil {
		return nil, nil, fmt.Errorf("relay signaling needs a room: %w", err)
	}
	client, err := relay.Dial(ctx, env.config.Relay.URL, parsed.ID, env.logger)
	if err != nil {
		parsed.Close()
		return nil, nil, err
	}
	signaler, err := relay.NewSignaler(client, parsed.ID, parsed.Key, env.logger)
	parsed.Close()
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		signaler.Close()
		client.Close()
	}
	return signaler, cleanup, nil
}
