// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/ghost/lib/chat"
	"github.com/bureau-foundation/ghost/lib/clock"
	"github.com/bureau-foundation/ghost/lib/exchange"
	"github.com/bureau-foundation/ghost/lib/room"
	"github.com/bureau-foundation/ghost/lib/roomcipher"
	"github.com/bureau-foundation/ghost/transport"
)

// DefaultGatherTimeout bounds ICE gathering when Config leaves it zero.
const DefaultGatherTimeout = 5 * time.Second

// DefaultHistoryLimit bounds the replay history when Config leaves it
// zero.
const DefaultHistoryLimit = 200

// Config holds the parameters of a Session. Zero fields take defaults.
type Config struct {
	// Nick is announced in join messages and stamped on chat lines.
	// Default: "ghost".
	Nick string

	// Logger receives session events. Default: discard.
	Logger *slog.Logger

	// Clock times every wait. Default: clock.Real().
	Clock clock.Clock

	// GatherTimeout bounds the wait for ICE gathering. Expiry is not
	// an error. Default: DefaultGatherTimeout.
	GatherTimeout time.Duration

	// Suite is the frame cipher. Default: roomcipher.AES256GCM.
	Suite roomcipher.Suite

	// HistoryLimit is the number of chat lines kept for sync replay.
	// Default: DefaultHistoryLimit.
	HistoryLimit int
}

// Session is one conversation over one transport Peer. All methods are
// safe for concurrent use.
type Session struct {
	config Config
	peer   transport.Peer
	logger *slog.Logger
	clock  clock.Clock
	selfID string

	mu           sync.Mutex
	state        State
	role         Role
	room         *room.Room
	cipher       *roomcipher.Cipher
	dispatcher   *chat.Dispatcher
	stateChanged chan struct{}
	inbound      []chat.Message
	notify       chan struct{}
	history      []chat.Message
	cause        error
	running      bool

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates an idle Session over peer. The Session owns peer and
// closes it on Close.
func New(config Config, peer transport.Peer) *Session {
	if config.Nick == "" {
		config.Nick = "ghost"
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.GatherTimeout <= 0 {
		config.GatherTimeout = DefaultGatherTimeout
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}

	selfID := chat.NewID()
	return &Session{
		config:       config,
		peer:         peer,
		logger:       config.Logger.With("self", selfID),
		clock:        config.Clock,
		selfID:       selfID,
		state:        StateIdle,
		stateChanged: make(chan struct{}),
		notify:       make(chan struct{}, 1),
		closed:       make(chan struct{}),
	}
}

// CreateRoom generates a fresh room, produces the offer descriptor,
// waits for gathering, and returns the room ID, the base64url room
// key, and the "O:" code. Valid only on an idle session. If ctx ends
// while gathering, the session stays in IceGathering and the caller
// must Close it.
func (s *Session) CreateRoom(ctx context.Context) (roomID, roomKey, offerCode string, err error) {
	s.mu.Lock()
	if s.state != StateIdle || s.room != nil {
		state := s.state
		s.mu.Unlock()
		return "", "", "", fmt.Errorf("%w: CreateRoom in state %s", ErrInvalidState, state)
	}
	created, err := room.New()
	if err != nil {
		s.mu.Unlock()
		return "", "", "", err
	}
	if err := s.installRoomLocked(created); err != nil {
		s.mu.Unlock()
		created.Close()
		return "", "", "", err
	}
	s.role = RoleOffering
	s.setStateLocked(StateNegotiating)
	roomID = created.ID
	roomKey = created.EncodedKey()
	fingerprint := created.Fingerprint()
	s.mu.Unlock()

	if err := s.peer.CreateLocalDescription(RoleOffering); err != nil {
		s.fail(fmt.Errorf("creating offer: %w", err))
		return "", "", "", fmt.Errorf("creating offer: %w", err)
	}
	s.startRun()

	code, err := s.gather(ctx, exchange.TagOffer)
	if err != nil {
		return "", "", "", err
	}

	s.logger.Info("room created",
		"room", roomID,
		"fingerprint", fingerprint,
		"code_bytes", len(code),
	)
	return roomID, roomKey, code, nil
}

// SetRoom installs the shared room credential on a session that will
// answer an offer. Valid only on an idle session without a room.
func (s *Session) SetRoom(credential room.Credential) error {
	parsed, err := credential.Parse()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle || s.room != nil {
		parsed.Close()
		return fmt.Errorf("%w: SetRoom in state %s", ErrInvalidState, s.state)
	}
	if err := s.installRoomLocked(parsed); err != nil {
		parsed.Close()
		return err
	}
	s.logger.Info("room credential installed", "room", parsed.ID, "fingerprint", parsed.Fingerprint())
	return nil
}

// AcceptOffer applies an offer code and returns the "A:" answer code.
// The argument may also be an invite ("G:..."), which installs the
// room credential it carries. Code errors are returned before any state
// changes. A transport rejection closes the session. If ctx ends while
// gathering, the session stays in IceGathering and the caller must
// Close it.
func (s *Session) AcceptOffer(ctx context.Context, offerCode string) (string, error) {
	var credential room.Credential
	var code exchange.Code
	var err error
	if room.IsInvite(offerCode) {
		credential, code, err = room.ParseInvite(offerCode)
	} else {
		code, err = exchange.ParseCodeWithTag(offerCode, exchange.TagOffer)
	}
	if err != nil {
		return "", err
	}
	descriptor, err := code.Descriptor()
	if err != nil {
		return "", err
	}

	if credential != "" {
		if err := s.SetRoom(credential); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("%w: AcceptOffer in state %s", ErrInvalidState, state)
	}
	if s.room == nil {
		s.mu.Unlock()
		return "", ErrNoRoom
	}
	s.role = RoleAnswering
	s.setStateLocked(StateNegotiating)
	s.mu.Unlock()

	if err := s.peer.SetRemoteDescription(descriptor, RoleAnswering); err != nil {
		err = fmt.Errorf("applying offer: %w", err)
		s.fail(err)
		return "", err
	}
	if err := s.peer.CreateLocalDescription(RoleAnswering); err != nil {
		err = fmt.Errorf("creating answer: %w", err)
		s.fail(err)
		return "", err
	}
	s.startRun()

	answer, err := s.gather(ctx, exchange.TagAnswer)
	if err != nil {
		return "", err
	}
	s.logger.Info("offer accepted", "room", s.RoomID(), "code_bytes", len(answer))
	return answer, nil
}

// AcceptAnswer applies the peer's answer code on the offering side.
// Valid only in AwaitingRemote. The channel opens asynchronously; use
// WaitConnected.
func (s *Session) AcceptAnswer(ctx context.Context, answerCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	code, err := exchange.ParseCodeWithTag(answerCode, exchange.TagAnswer)
	if err != nil {
		return err
	}
	descriptor, err := code.Descriptor()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.role != RoleOffering || s.state != StateAwaitingRemote {
		role, state := s.role, s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: AcceptAnswer as %s in state %s", ErrInvalidState, role, state)
	}
	s.mu.Unlock()

	if err := s.peer.SetRemoteDescription(descriptor, RoleOffering); err != nil {
		err = fmt.Errorf("applying answer: %w", err)
		s.fail(err)
		return err
	}
	s.logger.Debug("answer applied")
	return nil
}

// WaitConnected blocks until the session is Open. A timeout of zero or
// less waits until ctx is done. On timeout the state is unchanged.
func (s *Session) WaitConnected(ctx context.Context, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := s.clock.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		s.mu.Lock()
		state, changed := s.state, s.stateChanged
		s.mu.Unlock()

		switch state {
		case StateOpen:
			return nil
		case StateClosed:
			return ErrChannelClosed
		}

		select {
		case <-changed:
		case <-deadline:
			return ErrConnectionTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send seals text as a chat line and transmits it.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrChannelClosed
	}
	message := chat.NewChat(s.selfID, s.config.Nick, text, s.clock.Now())
	s.recordLocked(message)
	s.dispatcher.Record(message)
	frame, err := chat.Encode(s.cipher, message)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.transmit(frame)
}

// Sync replays the local history to the peer. Nothing is sent when the
// history is empty.
func (s *Session) Sync() error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrChannelClosed
	}
	frame, err := s.syncFrameLocked()
	s.mu.Unlock()
	if err != nil || frame == "" {
		return err
	}
	return s.transmit(frame)
}

// Destroy tells the peer the room is being torn down, then closes the
// session.
func (s *Session) Destroy() error {
	s.mu.Lock()
	var frame string
	var err error
	if s.state == StateOpen {
		frame, err = chat.Encode(s.cipher, chat.NewDestroy())
	}
	s.mu.Unlock()

	if err == nil && frame != "" {
		err = s.transmit(frame)
	}
	s.logger.Info("destroying room", "room", s.RoomID())
	return errors.Join(err, s.Close())
}

// Receive returns the next inbound message in arrival order. A timeout
// of zero or less waits until ctx is done. Messages queued before the
// session closed are still returned; after that Receive reports
// ErrChannelClosed.
func (s *Session) Receive(ctx context.Context, timeout time.Duration) (chat.Message, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := s.clock.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		s.mu.Lock()
		if len(s.inbound) > 0 {
			message := s.inbound[0]
			s.inbound[0] = chat.Message{}
			s.inbound = s.inbound[1:]
			if len(s.inbound) > 0 {
				s.signalLocked()
			}
			s.mu.Unlock()
			return message, nil
		}
		if s.state == StateClosed {
			s.mu.Unlock()
			return chat.Message{}, ErrChannelClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.closed:
		case <-deadline:
			return chat.Message{}, ErrReceiveTimeout
		case <-ctx.Done():
			return chat.Message{}, ctx.Err()
		}
	}
}

// Close moves the session to Closed, releases the transport, and zeroes
// the room key. Idempotent; every call returns the result of the first.
func (s *Session) Close() error {
	return s.shutdown(nil)
}

// CompleteOffer publishes the pending offer through signaler, waits for
// the answer, and applies it. Valid on the offering side after
// CreateRoom.
func (s *Session) CompleteOffer(ctx context.Context, signaler transport.Signaler, offerCode string) error {
	code, err := exchange.ParseCodeWithTag(offerCode, exchange.TagOffer)
	if err != nil {
		return err
	}
	if err := signaler.PublishCode(ctx, code); err != nil {
		return fmt.Errorf("publishing offer: %w", err)
	}
	answer, err := signaler.NextCode(ctx, exchange.TagAnswer)
	if err != nil {
		return fmt.Errorf("waiting for answer: %w", err)
	}
	return s.AcceptAnswer(ctx, answer.String())
}

// AnswerVia waits for an offer on signaler, accepts it, and publishes
// the answer. The room credential must already be set.
func (s *Session) AnswerVia(ctx context.Context, signaler transport.Signaler) error {
	offer, err := signaler.NextCode(ctx, exchange.TagOffer)
	if err != nil {
		return fmt.Errorf("waiting for offer: %w", err)
	}
	answerCode, err := s.AcceptOffer(ctx, offer.String())
	if err != nil {
		return err
	}
	answer, err := exchange.ParseCode(answerCode)
	if err != nil {
		return err
	}
	if err := signaler.PublishCode(ctx, answer); err != nil {
		return fmt.Errorf("publishing answer: %w", err)
	}
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the negotiation role, or zero before negotiation.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// SelfID returns the participant ID stamped on outgoing messages.
func (s *Session) SelfID() string { return s.selfID }

// Nick returns the configured nickname.
func (s *Session) Nick() string { return s.config.Nick }

// RoomID returns the room ID, or "" before a room is set.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return ""
	}
	return s.room.ID
}

// Credential returns the shareable room credential, or "" when there
// is no room or the session is closed.
func (s *Session) Credential() room.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil || s.state == StateClosed {
		return ""
	}
	return s.room.Credential()
}

// Pending returns the number of queued inbound messages.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbound)
}

// Done is closed when the session reaches Closed.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Err returns why the session closed: nil while open or after a local
// Close, otherwise the transport cause or ErrRoomDestroyed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// installRoomLocked binds the room, its cipher, and its dispatcher.
func (s *Session) installRoomLocked(installed *room.Room) error {
	roomCipher, err := roomcipher.New(s.config.Suite, installed.Key)
	if err != nil {
		return err
	}
	s.room = installed
	s.cipher = roomCipher
	s.dispatcher = chat.NewDispatcher(roomCipher, s.selfID, s.clock, s.logger.With("room", installed.ID))
	return nil
}

// gather waits for ICE gathering and returns the local code. The
// session moves Negotiating -> IceGathering -> AwaitingRemote.
func (s *Session) gather(ctx context.Context, tag exchange.Tag) (string, error) {
	if !s.transition(StateNegotiating, StateIceGathering) {
		return "", ErrChannelClosed
	}

	timer := s.clock.NewTimer(s.config.GatherTimeout)
	defer timer.Stop()
	select {
	case <-s.peer.GatheringComplete():
	case <-timer.C:
		s.logger.Warn("ICE gathering timed out, continuing with partial candidates",
			"timeout", s.config.GatherTimeout,
		)
	case <-s.closed:
		return "", ErrChannelClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	code := exchange.NewCode(tag, s.peer.LocalDescriptor()).String()
	if !s.transition(StateIceGathering, StateAwaitingRemote) {
		return "", ErrChannelClosed
	}
	return code, nil
}

func (s *Session) startRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.run()
}

// run is the single consumer of transport events.
func (s *Session) run() {
	open := s.peer.ChannelOpen()
	frames := s.peer.Frames()
	for {
		select {
		case <-open:
			open = nil
			s.handleOpen()

		case frame := <-frames:
			// Open and the first frame can be ready together; the
			// channel must be Open before its frames are handled.
			if open != nil {
				select {
				case <-open:
					open = nil
					s.handleOpen()
				default:
				}
			}
			s.handleFrame(frame)

		case <-s.peer.Done():
			for drained := false; !drained; {
				select {
				case frame := <-frames:
					s.handleFrame(frame)
				default:
					drained = true
				}
			}
			cause := s.peer.Err()
			if cause == nil {
				cause = transport.ErrPeerClosed
			}
			s.logger.Info("transport ended", "cause", cause.Error())
			s.shutdown(cause)
			return

		case <-s.closed:
			return
		}
	}
}

func (s *Session) handleOpen() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateOpen)
	frame, err := chat.Encode(s.cipher, chat.NewJoin(s.selfID, s.config.Nick))
	s.mu.Unlock()

	s.logger.Info("channel open", "room", s.RoomID())
	if err != nil {
		s.logger.Error("encoding join", "error", err)
		return
	}
	if err := s.transmit(frame); err != nil {
		s.logger.Warn("sending join failed", "error", err)
	}
}

func (s *Session) handleFrame(frame string) {
	s.mu.Lock()
	if s.state == StateClosed || s.dispatcher == nil {
		s.mu.Unlock()
		return
	}
	message, ok := s.dispatcher.Decode(frame)
	if !ok {
		s.mu.Unlock()
		return
	}

	delivered := s.dispatcher.Apply(message)
	for _, item := range delivered {
		if item.Kind == chat.KindChat {
			s.recordLocked(item)
		}
	}
	if len(delivered) > 0 {
		s.inbound = append(s.inbound, delivered...)
		s.signalLocked()
	}

	var reply string
	var err error
	if message.Kind == chat.KindJoin && s.state == StateOpen {
		reply, err = s.syncFrameLocked()
	}
	destroyed := s.dispatcher.Destroyed()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("encoding sync", "error", err)
	}
	if reply != "" {
		if err := s.transmit(reply); err != nil {
			s.logger.Warn("sending sync failed", "error", err)
		}
	}
	if destroyed {
		s.logger.Info("room destroyed by peer", "room", s.RoomID())
		s.shutdown(ErrRoomDestroyed)
	}
}

// syncFrameLocked returns the sealed history, or "" if it is empty.
func (s *Session) syncFrameLocked() (string, error) {
	if len(s.history) == 0 {
		return "", nil
	}
	return chat.Encode(s.cipher, chat.NewSync(s.history))
}

func (s *Session) recordLocked(message chat.Message) {
	s.history = append(s.history, message)
	if excess := len(s.history) - s.config.HistoryLimit; excess > 0 {
		s.history = append([]chat.Message(nil), s.history[excess:]...)
	}
}

func (s *Session) signalLocked() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) transmit(frame string) error {
	if err := s.peer.SendFrame(frame); err != nil {
		if errors.Is(err, transport.ErrPeerClosed) {
			return ErrChannelClosed
		}
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

// transition moves from one state to another and reports whether the
// session was in from.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.setStateLocked(to)
	return true
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("session state", "from", s.state.String(), "to", next.String())
	s.state = next
	close(s.stateChanged)
	s.stateChanged = make(chan struct{})
}

// fail records a handshake failure and closes the session.
func (s *Session) fail(cause error) {
	s.logger.Error("handshake failed", "error", cause)
	s.shutdown(cause)
}

func (s *Session) shutdown(cause error) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.cause = cause
		s.setStateLocked(StateClosed)
		if s.room != nil {
			if err := s.room.Close(); err != nil {
				s.logger.Warn("releasing room key", "error", err)
			}
		}
		s.mu.Unlock()

		close(s.closed)
		s.closeErr = s.peer.Close()
	})
	return s.closeErr
}
