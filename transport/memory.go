// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Peer = (*MemoryPeer)(nil)

// memoryDescriptorPrefix starts every MemoryPeer descriptor.
const memoryDescriptorPrefix = "memory:"

// MemoryNetwork connects MemoryPeers in-process. Peers created from the
// same network can negotiate with each other's descriptors.
type MemoryNetwork struct {
	mu             sync.Mutex
	peers          map[string]*MemoryPeer
	failNext       bool
	stallGathering bool
}

// NewMemoryNetwork creates an empty network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{peers: make(map[string]*MemoryPeer)}
}

// NewPeer returns an unconnected peer on this network.
func (network *MemoryNetwork) NewPeer() *MemoryPeer {
	return &MemoryPeer{
		network:  network,
		gathered: make(chan struct{}),
		open:     make(chan struct{}),
		frames:   make(chan string, frameBuffer),
		done:     make(chan struct{}),
	}
}

// FailNext makes the next SetRemoteDescription on any peer of this
// network fail with ErrNegotiation.
func (network *MemoryNetwork) FailNext() {
	network.mu.Lock()
	defer network.mu.Unlock()
	network.failNext = true
}

// StallGathering makes peers that create a local descriptor from now on
// never report gathering complete. Their descriptors are still usable.
func (network *MemoryNetwork) StallGathering() {
	network.mu.Lock()
	defer network.mu.Unlock()
	network.stallGathering = true
}

func (network *MemoryNetwork) register(peer *MemoryPeer) (token string, stall bool) {
	network.mu.Lock()
	defer network.mu.Unlock()
	token = memoryDescriptorPrefix + uuid.NewString()
	network.peers[token] = peer
	return token, network.stallGathering
}

func (network *MemoryNetwork) resolve(descriptor string) (*MemoryPeer, error) {
	network.mu.Lock()
	defer network.mu.Unlock()
	if network.failNext {
		network.failNext = false
		return nil, fmt.Errorf("%w: injected failure", ErrNegotiation)
	}
	if !strings.HasPrefix(descriptor, memoryDescriptorPrefix) {
		return nil, fmt.Errorf("%w: %q is not a memory descriptor", ErrNegotiation, truncateDescriptor(descriptor))
	}
	peer, ok := network.peers[descriptor]
	if !ok {
		return nil, fmt.Errorf("%w: unknown descriptor %q", ErrNegotiation, descriptor)
	}
	return peer, nil
}

// MemoryPeer is a Peer whose channel is a pair of Go channels.
type MemoryPeer struct {
	network *MemoryNetwork

	gathered chan struct{}
	open     chan struct{}
	frames   chan string
	done     chan struct{}

	mu       sync.Mutex
	role     Role
	local    string
	remote   *MemoryPeer
	opened   bool
	finished bool
	err      error
}

// CreateLocalDescription registers the peer and produces its token.
func (p *MemoryPeer) CreateLocalDescription(role Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return ErrPeerClosed
	}
	if p.local != "" {
		return fmt.Errorf("%w: local descriptor already created", ErrNegotiation)
	}
	if role == RoleAnswering && p.remote == nil {
		return fmt.Errorf("%w: answer requested before the offer was applied", ErrNegotiation)
	}
	token, stall := p.network.register(p)
	p.role = role
	p.local = token
	if !stall {
		close(p.gathered)
	}
	return nil
}

// SetRemoteDescription applies the other peer's token. Applying the
// answer on the offering side opens the channel on both ends.
func (p *MemoryPeer) SetRemoteDescription(descriptor string, role Role) error {
	remote, err := p.network.resolve(descriptor)
	if err != nil {
		return err
	}
	if remote == p {
		return fmt.Errorf("%w: descriptor refers to this peer", ErrNegotiation)
	}

	switch role {
	case RoleAnswering:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.finished {
			return ErrPeerClosed
		}
		p.remote = remote
		return nil

	case RoleOffering:
		p.mu.Lock()
		if p.local == "" {
			p.mu.Unlock()
			return fmt.Errorf("%w: answer applied before the offer was created", ErrNegotiation)
		}
		p.remote = remote
		p.mu.Unlock()

		remote.mu.Lock()
		if remote.remote != p || remote.local == "" {
			remote.mu.Unlock()
			return fmt.Errorf("%w: answer was not produced for this offer", ErrNegotiation)
		}
		remote.mu.Unlock()

		p.markOpen()
		remote.markOpen()
		return nil

	default:
		return fmt.Errorf("%w: invalid role %s", ErrNegotiation, role)
	}
}

// LocalDescriptor returns the peer's token.
func (p *MemoryPeer) LocalDescriptor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local
}

func (p *MemoryPeer) GatheringComplete() <-chan struct{} { return p.gathered }
func (p *MemoryPeer) ChannelOpen() <-chan struct{}       { return p.open }
func (p *MemoryPeer) Frames() <-chan string              { return p.frames }
func (p *MemoryPeer) Done() <-chan struct{}              { return p.done }

// Err returns why Done was closed.
func (p *MemoryPeer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// SendFrame delivers frame to the connected peer.
func (p *MemoryPeer) SendFrame(frame string) error {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return ErrPeerClosed
	}
	if !p.opened {
		p.mu.Unlock()
		return ErrNotOpen
	}
	remote := p.remote
	p.mu.Unlock()

	select {
	case remote.frames <- frame:
		return nil
	case <-remote.done:
		return ErrPeerClosed
	case <-p.done:
		return ErrPeerClosed
	}
}

// Inject delivers frame to this peer as if the remote had sent it,
// bypassing any cipher. Tests use it to feed forged or malformed frames.
func (p *MemoryPeer) Inject(frame string) {
	select {
	case p.frames <- frame:
	case <-p.done:
	}
}

// Sever ends the connection on both sides with cause, simulating a
// transport failure.
func (p *MemoryPeer) Sever(cause error) {
	p.mu.Lock()
	remote := p.remote
	p.mu.Unlock()

	p.finish(cause)
	if remote != nil {
		remote.finish(cause)
	}
}

// Close ends the connection. The remote side sees ErrPeerClosed.
func (p *MemoryPeer) Close() error {
	p.mu.Lock()
	remote := p.remote
	opened := p.opened
	p.mu.Unlock()

	p.finish(nil)
	if remote != nil && opened {
		remote.finish(ErrPeerClosed)
	}
	return nil
}

func (p *MemoryPeer) markOpen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opened || p.finished {
		return
	}
	p.opened = true
	close(p.open)
}

func (p *MemoryPeer) finish(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.err = cause
	close(p.done)
}

func truncateDescriptor(descriptor string) string {
	if len(descriptor) <= 16 {
		return descriptor
	}
	return descriptor[:16] + "..."
}
