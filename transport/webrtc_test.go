// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ghost/lib/testutil"
)

// negotiateWebRTC runs a full vanilla-ICE handshake between two pion
// peers on loopback and waits for both channels to open.
func negotiateWebRTC(t *testing.T) (*WebRTCPeer, *WebRTCPeer) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	// Empty ICE config means host candidates only (loopback).
	offerer, err := NewWebRTCPeer(ICEConfig{}, logger)
	if err != nil {
		t.Fatalf("NewWebRTCPeer (offerer): %v", err)
	}
	t.Cleanup(func() { offerer.Close() })
	answerer, err := NewWebRTCPeer(ICEConfig{}, logger)
	if err != nil {
		t.Fatalf("NewWebRTCPeer (answerer): %v", err)
	}
	t.Cleanup(func() { answerer.Close() })

	if err := offerer.CreateLocalDescription(RoleOffering); err != nil {
		t.Fatalf("offerer CreateLocalDescription: %v", err)
	}
	testutil.RequireClosed(t, offerer.GatheringComplete(), 10*time.Second, "offerer gathering")

	offer := offerer.LocalDescriptor()
	if !strings.Contains(offer, "a=candidate") {
		t.Fatalf("gathered offer has no candidates:\n%s", offer)
	}

	if err := answerer.SetRemoteDescription(offer, RoleAnswering); err != nil {
		t.Fatalf("answerer SetRemoteDescription: %v", err)
	}
	if err := answerer.CreateLocalDescription(RoleAnswering); err != nil {
		t.Fatalf("answerer CreateLocalDescription: %v", err)
	}
	testutil.RequireClosed(t, answerer.GatheringComplete(), 10*time.Second, "answerer gathering")

	if err := offerer.SetRemoteDescription(answerer.LocalDescriptor(), RoleOffering); err != nil {
		t.Fatalf("offerer SetRemoteDescription: %v", err)
	}

	testutil.RequireClosed(t, offerer.ChannelOpen(), 15*time.Second, "offerer channel open")
	testutil.RequireClosed(t, answerer.ChannelOpen(), 15*time.Second, "answerer channel open")
	return offerer, answerer
}

func TestWebRTCPeer_FramesBothWays(t *testing.T) {
	offerer, answerer := negotiateWebRTC(t)

	if err := offerer.SendFrame("hello from offerer"); err != nil {
		t.Fatalf("offerer SendFrame: %v", err)
	}
	if got := testutil.RequireReceive(t, answerer.Frames(), 5*time.Second, "answerer frame"); got != "hello from offerer" {
		t.Errorf("answerer received %q", got)
	}

	for _, frame := range []string{"one", "two", "three"} {
		if err := answerer.SendFrame(frame); err != nil {
			t.Fatalf("answerer SendFrame: %v", err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		if got := testutil.RequireReceive(t, offerer.Frames(), 5*time.Second, "offerer frame"); got != want {
			t.Errorf("offerer received %q, want %q (ordered channel)", got, want)
		}
	}
}

func TestWebRTCPeer_RemoteCloseEndsPeer(t *testing.T) {
	offerer, answerer := negotiateWebRTC(t)

	if err := offerer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	testutil.RequireClosed(t, offerer.Done(), time.Second, "local done")
	if offerer.Err() != nil {
		t.Errorf("local Err() = %v, want nil after Close", offerer.Err())
	}

	testutil.RequireClosed(t, answerer.Done(), 30*time.Second, "remote done")
	if answerer.Err() == nil {
		t.Error("remote Err() = nil, want a cause")
	}
	if err := answerer.SendFrame("late"); !errors.Is(err, ErrPeerClosed) {
		t.Errorf("SendFrame after remote close: err = %v, want ErrPeerClosed", err)
	}
}

func TestWebRTCPeer_SendBeforeOpen(t *testing.T) {
	peer, err := NewWebRTCPeer(ICEConfig{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWebRTCPeer: %v", err)
	}
	defer peer.Close()

	if err := peer.SendFrame("x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SendFrame before open: err = %v, want ErrNotOpen", err)
	}
	if peer.LocalDescriptor() != "" {
		t.Error("LocalDescriptor non-empty before CreateLocalDescription")
	}
}

func TestWebRTCPeer_AnswerBeforeOffer(t *testing.T) {
	peer, err := NewWebRTCPeer(ICEConfig{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWebRTCPeer: %v", err)
	}
	defer peer.Close()

	if err := peer.CreateLocalDescription(RoleAnswering); !errors.Is(err, ErrNegotiation) {
		t.Errorf("answer without offer: err = %v, want ErrNegotiation", err)
	}
}

func TestWebRTCPeer_RejectsGarbageDescriptor(t *testing.T) {
	peer, err := NewWebRTCPeer(ICEConfig{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWebRTCPeer: %v", err)
	}
	defer peer.Close()

	if err := peer.SetRemoteDescription("this is not sdp", RoleAnswering); !errors.Is(err, ErrNegotiation) {
		t.Errorf("garbage offer: err = %v, want ErrNegotiation", err)
	}
}
