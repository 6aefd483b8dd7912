package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/repository"
	"mentor_chat/internal/retry"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// SendResult describes an optimistic send. Deferred messages stay in the room
// as pending until a connection confirms them.
type SendResult struct {
	Message  domain.Message `json:"message"`
	Sent     bool           `json:"sent"`
	Deferred bool           `json:"deferred"`
}

type SessionOptions struct {
	Retry            retry.Config
	NoticeBacklog    int
	MaxMessageLength int
}

// ChatSession is one user's chat state: the room store, the live connection
// and the pipeline that fills the store.
type ChatSession struct {
	resolver RoomResolver
	history  HistoryLoader
	store    *RoomStore
	conn     *ConnectionManager
	opts     SessionOptions
	log      logger.Logger

	identityMu sync.RWMutex
	identity   domain.Identity

	// commands serializes Initialize, SelectRoom, OpenMentorship and Close.
	commands sync.Mutex
}

func NewChatSession(identity domain.Identity, resolver RoomResolver, history HistoryLoader, transport LiveTransport, opts SessionOptions, log logger.Logger) *ChatSession {
	log = log.With("user_id", identity.UserID)
	s := &ChatSession{
		resolver: resolver,
		history:  history,
		store:    NewRoomStore(identity.UserID, opts.NoticeBacklog, log),
		opts:     opts,
		log:      log,
		identity: identity,
	}
	s.conn = NewConnectionManager(transport, opts.Retry, ConnectionEvents{
		OnMessage: s.onMessage,
		OnError:   s.onTransportError,
	}, log)
	return s
}

func (s *ChatSession) Identity() domain.Identity {
	s.identityMu.RLock()
	defer s.identityMu.RUnlock()
	return s.identity
}

// SetCredential refreshes the bearer token used for later calls.
func (s *ChatSession) SetCredential(credential string) {
	s.identityMu.Lock()
	s.identity.Credential = credential
	s.identityMu.Unlock()
}

func (s *ChatSession) Store() *RoomStore {
	return s.store
}

func (s *ChatSession) Connection() *ConnectionManager {
	return s.conn
}

func (s *ChatSession) platformContext(ctx context.Context) context.Context {
	return repository.WithCredential(ctx, s.Identity().Credential)
}

// Initialize resolves the room list, loads every history and installs both
// in the store. A total resolution failure is returned and kept as a
// retryable notice; the store keeps whatever it held before.
func (s *ChatSession) Initialize(ctx context.Context) error {
	s.commands.Lock()
	defer s.commands.Unlock()

	identity := s.Identity()
	ctx = s.platformContext(ctx)

	rooms, err := s.resolver.Resolve(ctx, identity.UserID)
	if err != nil {
		s.store.Notify(domain.Notice{
			Level:     domain.NoticeLevelError,
			Code:      domain.NoticeResolutionFailed,
			Message:   "Could not load your conversations. Try again.",
			Retryable: true,
		})
		return err
	}

	histories := s.history.LoadAll(ctx, rooms)

	previous := s.store.ActiveRoomID()
	active := s.store.ReplaceRooms(rooms, histories)

	state, connectedRoom := s.conn.State()
	switch {
	case active == "":
		if previous != "" {
			s.conn.Deactivate()
		}
	case active != previous || state == StateDisconnected || connectedRoom != active:
		s.activate(ctx, active)
	}

	s.log.Info("Chat session initialized", "rooms", len(rooms), "active_room_id", active)
	return nil
}

// SelectRoom makes roomID active: the old connection is released first, then
// the room is marked read and its connection opened.
func (s *ChatSession) SelectRoom(ctx context.Context, roomID string) error {
	s.commands.Lock()
	defer s.commands.Unlock()
	return s.selectRoom(ctx, roomID)
}

func (s *ChatSession) selectRoom(ctx context.Context, roomID string) error {
	if _, ok := s.store.Room(roomID); !ok {
		return apperrors.ErrRoomNotFound
	}

	s.conn.Deactivate()

	if err := s.store.SetActiveRoom(roomID); err != nil {
		return err
	}

	s.activate(ctx, roomID)
	return nil
}

// activate opens the live connection for roomID. Failures become notices.
func (s *ChatSession) activate(ctx context.Context, roomID string) {
	room, ok := s.store.Room(roomID)
	if !ok {
		return
	}

	err := s.conn.Activate(ctx, room, s.Identity().Credential)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNoCredential):
		s.store.Notify(domain.Notice{
			Level:   domain.NoticeLevelWarning,
			Code:    domain.NoticeTransportError,
			Message: "Not signed in; live updates are unavailable.",
			RoomID:  roomID,
		})
	default:
		s.store.Notify(domain.Notice{
			Level:     domain.NoticeLevelWarning,
			Code:      domain.NoticeTransportError,
			Message:   "Live connection unavailable. Select the conversation again to reconnect.",
			RoomID:    roomID,
			Retryable: true,
		})
	}
}

// ReloadHistory refetches one room's history and installs it, keeping pending
// messages the history does not confirm. On failure the current sequence is
// left untouched.
func (s *ChatSession) ReloadHistory(ctx context.Context, roomID string) ([]domain.Message, error) {
	room, ok := s.store.Room(roomID)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}

	history, err := s.history.Fetch(s.platformContext(ctx), room)
	if err != nil {
		s.log.Warn("History reload failed", "room_id", roomID, "error", err)
		s.store.Notify(domain.Notice{
			Level:     domain.NoticeLevelWarning,
			Code:      domain.NoticeHistoryFailed,
			Message:   "Could not load this conversation. Try again.",
			RoomID:    roomID,
			Retryable: true,
		})
		return nil, fmt.Errorf("%w: %v", apperrors.ErrHistoryUnavailable, err)
	}

	if err := s.store.SetHistory(roomID, history); err != nil {
		return nil, err
	}
	return s.store.Messages(roomID)
}

// OpenMentorship selects the room of a mentorship, synthesizing a provisional
// one when the room list does not have it yet.
func (s *ChatSession) OpenMentorship(ctx context.Context, mentorshipID string) (domain.Room, error) {
	mentorshipID = strings.TrimSpace(mentorshipID)
	if mentorshipID == "" {
		return domain.Room{}, fmt.Errorf("%w: mentorship id is required", apperrors.ErrBadRequest)
	}

	s.commands.Lock()
	defer s.commands.Unlock()

	room, ok := s.store.RoomByMentorship(mentorshipID)
	if !ok {
		room = s.resolver.Provisional(mentorshipID)
		s.store.UpsertRoom(room)
		s.log.Info("Opened provisional room", "mentorship_id", mentorshipID, "room_id", room.ID)
	}

	if err := s.selectRoom(ctx, room.ID); err != nil {
		return domain.Room{}, err
	}

	room, _ = s.store.Room(room.ID)
	return room, nil
}

// SendMessage appends a provisional message to the active room right away,
// then hands it to the live connection. Without a connection the message
// stays pending and a warning notice is raised.
func (s *ChatSession) SendMessage(ctx context.Context, content string) (SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return SendResult{}, fmt.Errorf("%w: message is empty", apperrors.ErrBadRequest)
	}
	if s.opts.MaxMessageLength > 0 && len([]rune(content)) > s.opts.MaxMessageLength {
		return SendResult{}, fmt.Errorf("%w: message exceeds %d characters", apperrors.ErrBadRequest, s.opts.MaxMessageLength)
	}

	roomID := s.store.ActiveRoomID()
	if roomID == "" {
		return SendResult{}, apperrors.ErrNoActiveRoom
	}

	identity := s.Identity()
	msg := domain.Message{
		ID:         domain.NewProvisionalMessageID(),
		RoomID:     roomID,
		SenderID:   identity.UserID,
		SenderName: identity.Username,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		Read:       true,
	}
	if err := s.store.AppendMessage(roomID, msg); err != nil {
		return SendResult{}, err
	}

	state, connectedRoom := s.conn.State()
	if state != StateConnected || connectedRoom != roomID || !s.conn.IsConnected() {
		s.store.Notify(domain.Notice{
			Level:   domain.NoticeLevelWarning,
			Code:    domain.NoticeDeliveryDeferred,
			Message: "Not connected. Your message will be delivered once the conversation is available.",
			RoomID:  roomID,
		})
		return SendResult{Message: msg, Deferred: true}, nil
	}

	if err := s.conn.Send(content); err != nil {
		s.log.Warn("Send failed, message left pending", "room_id", roomID, "error", err)
		s.store.Notify(domain.Notice{
			Level:     domain.NoticeLevelWarning,
			Code:      domain.NoticeSendFailed,
			Message:   "Message could not be sent and is still pending.",
			RoomID:    roomID,
			Retryable: true,
		})
		return SendResult{Message: msg, Deferred: true}, nil
	}

	return SendResult{Message: msg, Sent: true}, nil
}

func (s *ChatSession) onMessage(roomID string, msg domain.Message) {
	result, err := s.store.ApplyIncoming(roomID, msg)
	if err != nil {
		return
	}
	s.log.Debug("Message applied", "room_id", roomID, "message_id", msg.ID, "replaced", result.Replaced)
}

func (s *ChatSession) onTransportError(roomID string, err error) {
	s.store.Notify(domain.Notice{
		Level:     domain.NoticeLevelWarning,
		Code:      domain.NoticeTransportError,
		Message:   "Live connection lost. Select the conversation again to reconnect.",
		RoomID:    roomID,
		Retryable: true,
	})
}

// Close releases the connection and discards the session state.
func (s *ChatSession) Close() {
	s.commands.Lock()
	defer s.commands.Unlock()

	s.conn.Deactivate()
	s.store.Reset()
	s.store.Close()
	s.log.Info("Chat session closed")
}
