// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/ghost/lib/config"
)

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) to use during
	// candidate gathering. Order matters: pion tries them in sequence.
	// Empty means host candidates only, which is enough on one machine
	// or one LAN.
	Servers []webrtc.ICEServer
}

// ICEConfigFromConfig converts the configuration file's ICE section.
func ICEConfigFromConfig(section config.ICEConfig) ICEConfig {
	var servers []webrtc.ICEServer
	for _, server := range section.Servers {
		if len(server.URLs) == 0 {
			continue
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:       append([]string(nil), server.URLs...),
			Username:   server.Username,
			Credential: server.Credential,
		})
	}
	return ICEConfig{Servers: servers}
}
