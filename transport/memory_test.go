// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ghost/lib/testutil"
)

func connectMemory(t *testing.T, network *MemoryNetwork) (*MemoryPeer, *MemoryPeer) {
	t.Helper()
	offerer := network.NewPeer()
	answerer := network.NewPeer()

	if err := offerer.CreateLocalDescription(RoleOffering); err != nil {
		t.Fatalf("offerer CreateLocalDescription: %v", err)
	}
	if err := answerer.SetRemoteDescription(offerer.LocalDescriptor(), RoleAnswering); err != nil {
		t.Fatalf("answerer SetRemoteDescription: %v", err)
	}
	if err := answerer.CreateLocalDescription(RoleAnswering); err != nil {
		t.Fatalf("answerer CreateLocalDescription: %v", err)
	}
	if err := offerer.SetRemoteDescription(answerer.LocalDescriptor(), RoleOffering); err != nil {
		t.Fatalf("offerer SetRemoteDescription: %v", err)
	}
	return offerer, answerer
}

func TestMemoryPeer_Handshake(t *testing.T) {
	network := NewMemoryNetwork()
	offerer, answerer := connectMemory(t, network)

	if !strings.HasPrefix(offerer.LocalDescriptor(), "memory:") {
		t.Errorf("descriptor = %q, want memory: prefix", offerer.LocalDescriptor())
	}
	testutil.RequireClosed(t, offerer.GatheringComplete(), time.Second)
	testutil.RequireClosed(t, offerer.ChannelOpen(), time.Second)
	testutil.RequireClosed(t, answerer.ChannelOpen(), time.Second)

	if err := offerer.SendFrame("ping"); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if got := testutil.RequireReceive(t, answerer.Frames(), time.Second); got != "ping" {
		t.Errorf("received %q, want ping", got)
	}
	if err := answerer.SendFrame("pong"); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if got := testutil.RequireReceive(t, offerer.Frames(), time.Second); got != "pong" {
		t.Errorf("received %q, want pong", got)
	}
}

func TestMemoryPeer_NotOpenUntilAnswerApplied(t *testing.T) {
	network := NewMemoryNetwork()
	offerer := network.NewPeer()
	answerer := network.NewPeer()

	if err := offerer.CreateLocalDescription(RoleOffering); err != nil {
		t.Fatalf("CreateLocalDescription: %v", err)
	}
	if err := answerer.SetRemoteDescription(offerer.LocalDescriptor(), RoleAnswering); err != nil {
		t.Fatalf("SetRemoteDescription: %v", err)
	}
	if err := answerer.CreateLocalDescription(RoleAnswering); err != nil {
		t.Fatalf("CreateLocalDescription: %v", err)
	}

	testutil.RequireNoReceive(t, offerer.ChannelOpen(), 20*time.Millisecond, "offerer opened early")
	if err := answerer.SendFrame("x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SendFrame before open: err = %v, want ErrNotOpen", err)
	}
}

func TestMemoryPeer_FailNext(t *testing.T) {
	network := NewMemoryNetwork()
	offerer := network.NewPeer()
	if err := offerer.CreateLocalDescription(RoleOffering); err != nil {
		t.Fatalf("CreateLocalDescription: %v", err)
	}

	network.FailNext()
	answerer := network.NewPeer()
	if err := answerer.SetRemoteDescription(offerer.LocalDescriptor(), RoleAnswering); !errors.Is(err, ErrNegotiation) {
		t.Fatalf("err = %v, want ErrNegotiation", err)
	}
	if err := answerer.SetRemoteDescription(offerer.LocalDescriptor(), RoleAnswering); err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
}

func TestMemoryPeer_BadDescriptors(t *testing.T) {
	network := NewMemoryNetwork()
	peer := network.NewPeer()

	for _, descriptor := range []string{"", "v=0\r\n", "memory:unknown"} {
		if err := peer.SetRemoteDescription(descriptor, RoleAnswering); !errors.Is(err, ErrNegotiation) {
			t.Errorf("SetRemoteDescription(%q): err = %v, want ErrNegotiation", descriptor, err)
		}
	}
	if err := peer.CreateLocalDescription(RoleAnswering); !errors.Is(err, ErrNegotiation) {
		t.Errorf("answer without offer: err = %v, want ErrNegotiation", err)
	}
}

func TestMemoryPeer_StallGathering(t *testing.T) {
	network := NewMemoryNetwork()
	network.StallGathering()
	peer := network.NewPeer()
	if err := peer.CreateLocalDescription(RoleOffering); err != nil {
		t.Fatalf("CreateLocalDescription: %v", err)
	}
	testutil.RequireNoReceive(t, peer.GatheringComplete(), 20*time.Millisecond, "gathering completed while stalled")
	if peer.LocalDescriptor() == "" {
		t.Error("stalled peer should still have a descriptor")
	}
}

func TestMemoryPeer_Close(t *testing.T) {
	network := NewMemoryNetwork()
	offerer, answerer := connectMemory(t, network)

	if err := offerer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := offerer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	testutil.RequireClosed(t, offerer.Done(), time.Second)
	testutil.RequireClosed(t, answerer.Done(), time.Second)
	if offerer.Err() != nil {
		t.Errorf("local Err() = %v, want nil", offerer.Err())
	}
	if !errors.Is(answerer.Err(), ErrPeerClosed) {
		t.Errorf("remote Err() = %v, want ErrPeerClosed", answerer.Err())
	}
	if err := answerer.SendFrame("x"); !errors.Is(err, ErrPeerClosed) {
		t.Errorf("SendFrame after close: err = %v, want ErrPeerClosed", err)
	}
}

func TestMemoryPeer_Sever(t *testing.T) {
	network := NewMemoryNetwork()
	offerer, answerer := connectMemory(t, network)

	offerer.Sever(ErrConnectionFailed)
	testutil.RequireClosed(t, offerer.Done(), time.Second)
	testutil.RequireClosed(t, answerer.Done(), time.Second)
	if !errors.Is(offerer.Err(), ErrConnectionFailed) || !errors.Is(answerer.Err(), ErrConnectionFailed) {
		t.Errorf("Err() = %v / %v, want ErrConnectionFailed", offerer.Err(), answerer.Err())
	}
}

func TestMemoryPeer_Inject(t *testing.T) {
	network := NewMemoryNetwork()
	peer := network.NewPeer()
	peer.Inject("forged")
	if got := testutil.RequireReceive(t, peer.Frames(), time.Second); got != "forged" {
		t.Errorf("received %q", got)
	}
}
