// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ghost/bot"
	"github.com/bureau-foundation/ghost/cmd/ghost/cli"
	"github.com/bureau-foundation/ghost/lib/llm"
	"github.com/bureau-foundation/ghost/lib/version"
	"github.com/bureau-foundation/ghost/session"
	"github.com/bureau-foundation/ghost/transport"
)

func rootCommand(ctx context.Context, out *terminal) *cli.Command {
	return &cli.Command{
		Name:    "ghost",
		Summary: "Encrypted peer-to-peer chat over WebRTC",
		Description: `Ghost connects two participants directly over a WebRTC data channel.
The host creates a room and prints an offer code; the joiner answers
with an answer code. Every message is sealed with the room key, which
never leaves the two participants.`,
		Subcommands: []*cli.Command{
			hostCommand(ctx, out),
			joinCommand(ctx, out),
			botCommand(ctx, out),
			demoCommand(ctx, out),
			versionCommand(out),
		},
	}
}

func hostCommand(ctx context.Context, out *terminal) *cli.Command {
	var options commonOptions
	return &cli.Command{
		Name:    "host",
		Summary: "Create a room and wait for a peer",
		Description: `Create a room, print its credential, offer code, and invite, then
wait for the answer code. With --relay the answer arrives through the
relay room instead.`,
		Usage: "ghost host [flags]",
		Examples: []cli.Example{
			{Description: "Host and swap codes by hand", Command: "ghost host --nick alice"},
			{Description: "Host through a relay", Command: "ghost host --relay wss://relay.example.org/ws"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("host", pflag.ContinueOnError)
			options.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			env, err := options.load("host")
			if err != nil {
				return err
			}
			chatSession, err := hostHandshake(ctx, env, out, env.config.Nick)
			if err != nil {
				return err
			}
			defer chatSession.Close()
			return chatFrontEnd(ctx, out, chatSession, options.plain)
		},
	}
}

func joinCommand(ctx context.Context, out *terminal) *cli.Command {
	var options commonOptions
	var credential string
	return &cli.Command{
		Name:    "join",
		Summary: "Answer an offer or invite code",
		Description: `Join a room. The code may be an invite (G:...), which carries the room
credential, or an offer (O:...), which needs --room or a prompted
credential. Without a code and with --relay, the offer is taken from
the relay room.`,
		Usage: "ghost join [code] [flags]",
		Examples: []cli.Example{
			{Description: "Join with an invite", Command: "ghost join G:..."},
			{Description: "Join with an offer and credential", Command: "ghost join O:... --room k3j9x2.AbC..."},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("join", pflag.ContinueOnError)
			options.register(flagSet)
			flagSet.StringVar(&credential, "room", "", "room credential <room_id>.<key>")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one code, got %d arguments", len(args))
			}
			var code string
			if len(args) == 1 {
				code = args[0]
			}
			env, err := options.load("join")
			if err != nil {
				return err
			}
			chatSession, err := joinHandshake(ctx, env, out, env.config.Nick, code, credential)
			if err != nil {
				return err
			}
			defer chatSession.Close()
			return chatFrontEnd(ctx, out, chatSession, options.plain)
		},
	}
}

func botCommand(ctx context.Context, out *terminal) *cli.Command {
	var options commonOptions
	var (
		host     bool
		joinCode string
		endpoint string
		model    string
	)
	return &cli.Command{
		Name:    "bot",
		Summary: "Answer chat lines with a local model",
		Description: `Run a participant that forwards every chat line to an
Ollama-compatible server and sends back the reply. The bot either hosts
a room (--host) or answers a code (--join).`,
		Usage: "ghost bot --host|--join <code> [flags]",
		Examples: []cli.Example{
			{Description: "Host a room answered by the default model", Command: "ghost bot --host"},
			{Description: "Join with an invite using another model", Command: "ghost bot --join G:... --model llama3.2"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("bot", pflag.ContinueOnError)
			options.register(flagSet)
			flagSet.BoolVar(&host, "host", false, "create a room")
			flagSet.StringVar(&joinCode, "join", "", "offer or invite code to answer")
			flagSet.StringVar(&endpoint, "endpoint", "", "model server URL (overrides bot.endpoint)")
			flagSet.StringVar(&model, "model", "", "model name (overrides bot.model)")
			return flagSet
		},
		Run: func(args []string) error {
			if host == (joinCode != "") {
				return errors.New("exactly one of --host or --join is required")
			}
			env, err := options.load("bot")
			if err != nil {
				return err
			}
			if endpoint != "" {
				env.config.Bot.Endpoint = endpoint
			}
			if model != "" {
				env.config.Bot.Model = model
			}
			nick := env.config.Nick
			if options.nick == "" {
				nick = "ghost-bot"
			}

			var chatSession *session.Session
			if host {
				chatSession, err = hostHandshake(ctx, env, out, nick)
			} else {
				chatSession, err = joinHandshake(ctx, env, out, nick, joinCode, "")
			}
			if err != nil {
				return err
			}
			defer chatSession.Close()

			bridge, err := bot.NewBridge(chatSession, bot.Config{
				Provider:     llm.NewOllama(http.DefaultClient, env.config.Bot.Endpoint),
				Model:        env.config.Bot.Model,
				SystemPrompt: env.config.Bot.SystemPrompt,
				History:      env.config.Bot.History,
				Timeout:      env.config.BotTimeout(),
				Logger:       env.logger,
			})
			if err != nil {
				return err
			}
			out.printf("Bot answering with %s at %s. Interrupt to stop.\n", env.config.Bot.Model, env.config.Bot.Endpoint)
			err = bridge.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func demoCommand(ctx context.Context, out *terminal) *cli.Command {
	var options commonOptions
	var (
		memory bool
		echo   bool
		model  string
	)
	return &cli.Command{
		Name:    "demo",
		Summary: "Run a host and a bot in one process",
		Description: `Connect two in-process participants, alice and ghost-bot, and send
each argument as a chat line from alice. Replies come from the
configured model server, or from a local echo with --echo.`,
		Usage: "ghost demo [line...] [flags]",
		Examples: []cli.Example{
			{Description: "Offline demo over WebRTC loopback", Command: "ghost demo --echo"},
			{Description: "No network at all", Command: "ghost demo --echo --memory \"hi there\""},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("demo", pflag.ContinueOnError)
			options.register(flagSet)
			flagSet.BoolVar(&memory, "memory", false, "connect over an in-memory transport instead of WebRTC")
			flagSet.BoolVar(&echo, "echo", false, "reply with an echo instead of a model")
			flagSet.StringVar(&model, "model", "", "model name (overrides bot.model)")
			return flagSet
		},
		Run: func(args []string) error {
			env, err := options.load("demo")
			if err != nil {
				return err
			}
			if model != "" {
				env.config.Bot.Model = model
			}

			params := demoParams{
				model:          env.config.Bot.Model,
				systemPrompt:   env.config.Bot.SystemPrompt,
				suite:          env.suite,
				connectTimeout: env.config.ConnectTimeout(),
				replyTimeout:   env.config.BotTimeout(),
				lines:          args,
				logger:         env.logger,
			}
			if echo {
				params.provider = echoProvider{}
			} else {
				params.provider = llm.NewOllama(http.DefaultClient, env.config.Bot.Endpoint)
			}

			if memory {
				network := transport.NewMemoryNetwork()
				params.hostPeer, params.botPeer = network.NewPeer(), network.NewPeer()
			} else {
				iceConfig := transport.ICEConfigFromConfig(env.config.ICE)
				hostPeer, err := transport.NewWebRTCPeer(iceConfig, env.logger)
				if err != nil {
					return err
				}
				botPeer, err := transport.NewWebRTCPeer(iceConfig, env.logger)
				if err != nil {
					hostPeer.Close()
					return err
				}
				params.hostPeer, params.botPeer = hostPeer, botPeer
			}
			return runDemo(ctx, params, out.out)
		},
	}
}

func versionCommand(out *terminal) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print build information",
		Run: func(args []string) error {
			out.printf("ghost %s\n", version.Info())
			return nil
		},
	}
}
