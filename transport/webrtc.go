// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface check.
var _ Peer = (*WebRTCPeer)(nil)

// ChannelLabel is the data channel label the browser client opens and
// expects.
const ChannelLabel = "ghost"

// frameBuffer is the number of inbound frames buffered ahead of the
// consumer before pion's SCTP read loop blocks.
const frameBuffer = 256

// WebRTCPeer is a Peer backed by a pion PeerConnection and one ordered
// data channel.
type WebRTCPeer struct {
	connection *webrtc.PeerConnection
	logger     *slog.Logger

	gathered   chan struct{}
	gatherOnce sync.Once
	open       chan struct{}
	openOnce   sync.Once
	frames     chan string
	done       chan struct{}
	doneOnce   sync.Once

	mu      sync.Mutex
	channel *webrtc.DataChannel
	err     error
}

// NewWebRTCPeer creates a PeerConnection with the given ICE servers.
func NewWebRTCPeer(iceConfig ICEConfig, logger *slog.Logger) (*WebRTCPeer, error) {
	// Loopback candidates make same-machine sessions and tests work
	// where loopback is the only available interface.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	connection, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceConfig.Servers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	peer := &WebRTCPeer{
		connection: connection,
		logger:     logger,
		gathered:   make(chan struct{}),
		open:       make(chan struct{}),
		frames:     make(chan string, frameBuffer),
		done:       make(chan struct{}),
	}

	// The answering side receives the channel the offerer created.
	connection.OnDataChannel(func(channel *webrtc.DataChannel) {
		if channel.Label() != ChannelLabel {
			peer.logger.Debug("ignoring unexpected data channel", "label", channel.Label())
			channel.Close()
			return
		}
		peer.attach(channel)
	})

	connection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		peer.logger.Debug("peer connection state change", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed:
			peer.finish(ErrConnectionFailed)
			go connection.Close()
		case webrtc.PeerConnectionStateClosed:
			peer.finish(ErrPeerClosed)
		}
	})

	return peer, nil
}

// CreateLocalDescription creates the offer or answer and starts
// gathering candidates into it.
func (p *WebRTCPeer) CreateLocalDescription(role Role) error {
	var description webrtc.SessionDescription
	var err error

	switch role {
	case RoleOffering:
		ordered := true
		channel, channelErr := p.connection.CreateDataChannel(ChannelLabel, &webrtc.DataChannelInit{
			Ordered: &ordered,
		})
		if channelErr != nil {
			return fmt.Errorf("creating data channel: %w", channelErr)
		}
		p.attach(channel)
		description, err = p.connection.CreateOffer(nil)
		if err != nil {
			return fmt.Errorf("creating SDP offer: %w", err)
		}
	case RoleAnswering:
		if p.connection.RemoteDescription() == nil {
			return fmt.Errorf("%w: answer requested before the offer was applied", ErrNegotiation)
		}
		description, err = p.connection.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("creating SDP answer: %w", err)
		}
	default:
		return fmt.Errorf("%w: invalid role %s", ErrNegotiation, role)
	}

	// The promise must exist before SetLocalDescription starts the
	// gatherer, or a fast gather could complete unobserved.
	gatherComplete := webrtc.GatheringCompletePromise(p.connection)
	if err := p.connection.SetLocalDescription(description); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}
	go func() {
		select {
		case <-gatherComplete:
			p.gatherOnce.Do(func() { close(p.gathered) })
		case <-p.done:
		}
	}()
	return nil
}

// SetRemoteDescription applies an offer (role RoleAnswering) or an
// answer (role RoleOffering).
func (p *WebRTCPeer) SetRemoteDescription(descriptor string, role Role) error {
	description := webrtc.SessionDescription{SDP: descriptor}
	switch role {
	case RoleAnswering:
		description.Type = webrtc.SDPTypeOffer
	case RoleOffering:
		description.Type = webrtc.SDPTypeAnswer
	default:
		return fmt.Errorf("%w: invalid role %s", ErrNegotiation, role)
	}
	if err := p.connection.SetRemoteDescription(description); err != nil {
		return fmt.Errorf("%w: setting remote description: %v", ErrNegotiation, err)
	}
	return nil
}

// LocalDescriptor returns the current local SDP, including every
// candidate gathered so far. Empty before CreateLocalDescription.
func (p *WebRTCPeer) LocalDescriptor() string {
	description := p.connection.LocalDescription()
	if description == nil {
		return ""
	}
	return description.SDP
}

func (p *WebRTCPeer) GatheringComplete() <-chan struct{} { return p.gathered }
func (p *WebRTCPeer) ChannelOpen() <-chan struct{}       { return p.open }
func (p *WebRTCPeer) Frames() <-chan string              { return p.frames }
func (p *WebRTCPeer) Done() <-chan struct{}              { return p.done }

// Err returns why Done was closed.
func (p *WebRTCPeer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// SendFrame sends frame as a text message on the data channel.
func (p *WebRTCPeer) SendFrame(frame string) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case <-p.open:
	default:
		return ErrNotOpen
	}

	p.mu.Lock()
	channel := p.channel
	p.mu.Unlock()
	if err := channel.SendText(frame); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

// Close tears down the data channel and the PeerConnection.
func (p *WebRTCPeer) Close() error {
	p.finish(nil)

	p.mu.Lock()
	channel := p.channel
	p.mu.Unlock()

	var errs []error
	if channel != nil {
		if err := channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing data channel: %w", err))
		}
	}
	if err := p.connection.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing PeerConnection: %w", err))
	}
	return errors.Join(errs...)
}

func (p *WebRTCPeer) attach(channel *webrtc.DataChannel) {
	p.mu.Lock()
	p.channel = channel
	p.mu.Unlock()

	channel.OnOpen(func() {
		p.logger.Debug("data channel opened", "label", channel.Label())
		p.openOnce.Do(func() { close(p.open) })
	})
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		select {
		case p.frames <- string(message.Data):
		case <-p.done:
		}
	})
	channel.OnClose(func() {
		p.logger.Debug("data channel closed", "label", channel.Label())
		p.finish(ErrPeerClosed)
	})
}

// finish records the first cause and closes Done. Later causes are
// ignored.
func (p *WebRTCPeer) finish(cause error) {
	p.doneOnce.Do(func() {
		p.mu.Lock()
		p.err = cause
		p.mu.Unlock()
		close(p.done)
	})
}
