// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ghost-relay forwards sealed signaling frames between the members of
// a relay room. Clients connect with a websocket to /?room=<room_id>;
// every frame a member sends is delivered to the other members of the
// same room. The relay never holds a room key and only sees AES-GCM
// sealed envelopes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ghost/lib/config"
	"github.com/bureau-foundation/ghost/lib/service"
	"github.com/bureau-foundation/ghost/lib/version"
	"github.com/bureau-foundation/ghost/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		certFile    string
		keyFile     string
		debug       bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("ghost-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default $GHOST_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "listen address (overrides relay.listen)")
	flagSet.StringVar(&certFile, "cert", "", "TLS certificate file")
	flagSet.StringVar(&keyFile, "key", "", "TLS key file")
	flagSet.BoolVar(&debug, "debug", false, "log debug events")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("ghost-relay %s\n", version.Info())
		return nil
	}
	if (certFile == "") != (keyFile == "") {
		return fmt.Errorf("--cert and --key must be given together")
	}

	loaded, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		loaded.Relay.Listen = listen
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := service.NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := relay.NewHub(logger)
	server := relay.NewServer(hub, relay.ServerConfig{
		MaxFrameSize: loaded.Relay.MaxFrameSize,
		SendQueue:    loaded.Relay.SendQueue,
		Logger:       logger,
	})

	logger.Info("ghost-relay starting",
		"version", version.Info(),
		"listen", loaded.Relay.Listen,
		"max_frame_size", loaded.Relay.MaxFrameSize,
		"send_queue", loaded.Relay.SendQueue,
	)

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address:  loaded.Relay.Listen,
		Handler:  newHandler(hub, server),
		CertFile: certFile,
		KeyFile:  keyFile,
		Logger:   logger,
	})
	return httpServer.Serve(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	var loaded *config.Config
	var err error
	switch {
	case path != "":
		loaded, err = config.LoadFile(path)
	case os.Getenv("GHOST_CONFIG") != "":
		loaded, err = config.Load()
	default:
		loaded = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int64  `json:"connections"`
}

// newHandler routes /healthz to a status report and everything else to
// the websocket relay.
func newHandler(hub *relay.Hub, server *relay.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{
			Status:      "ok",
			Rooms:       len(hub.Rooms()),
			Connections: server.Connections(),
		})
	})
	mux.Handle("/", server)
	return mux
}
