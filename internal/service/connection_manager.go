package service

import (
	"context"
	"fmt"
	"sync"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/realtime"
	"mentor_chat/internal/retry"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// LiveTransport is the real-time connection to the message store.
// Disconnect must not return before the old connection's events have stopped.
type LiveTransport interface {
	Connect(ctx context.Context, conversationID, credential string, h realtime.Handlers) error
	SendMessage(content string) error
	Disconnect() error
	IsConnected() bool
}

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnectionEvents receive the live events of the active room.
type ConnectionEvents struct {
	OnMessage func(roomID string, msg domain.Message)
	OnError   func(roomID string, err error)
	OnState   func(roomID string, state ConnectionState)
}

// ConnectionManager keeps at most one live connection, bound to the active room.
// There is no automatic reconnect: a dropped connection stays down until the
// next Activate.
type ConnectionManager struct {
	transport LiveTransport
	retry     retry.Config
	events    ConnectionEvents
	log       logger.Logger

	// transition serializes Activate and Deactivate.
	transition sync.Mutex

	mu         sync.Mutex
	state      ConnectionState
	roomID     string
	generation uint64
}

func NewConnectionManager(transport LiveTransport, retryCfg retry.Config, events ConnectionEvents, log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		transport: transport,
		retry:     retryCfg,
		events:    events,
		log:       log,
	}
}

// Activate binds the live connection to room. The previous connection is torn
// down before the new dial starts. Provisional rooms stay disconnected.
func (m *ConnectionManager) Activate(ctx context.Context, room domain.Room, credential string) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.teardown()

	conversationID := room.ConversationID()
	if conversationID == "" {
		m.log.Debug("Room has no conversation yet, staying disconnected", "room_id", room.ID)
		return nil
	}
	if credential == "" {
		m.log.Warn("No credential, staying disconnected", "room_id", room.ID)
		return apperrors.ErrNoCredential
	}

	gen := m.setState(StateConnecting, room.ID)
	handlers := m.handlers(gen, room.ID)

	result := retry.Do(ctx, m.retry, func(ctx context.Context, attempt int) error {
		if !m.isCurrent(gen) {
			return context.Canceled
		}
		return m.transport.Connect(ctx, conversationID, credential, handlers)
	}, m.log)

	if result.Err != nil {
		m.mu.Lock()
		if m.generation == gen {
			m.state = StateDisconnected
			m.roomID = ""
		}
		m.mu.Unlock()
		m.emitState(room.ID, StateDisconnected)

		m.log.Error("Failed to connect transport", "room_id", room.ID, "attempts", result.Attempts, "error", result.Err)
		return fmt.Errorf("failed to connect room %s: %w", room.ID, result.Err)
	}

	return nil
}

// Deactivate releases the live connection, if any.
func (m *ConnectionManager) Deactivate() {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.teardown()
}

// teardown invalidates the current generation before disconnecting, so events
// still in flight from the old connection are dropped.
func (m *ConnectionManager) teardown() {
	m.mu.Lock()
	m.generation++
	roomID := m.roomID
	wasActive := m.state != StateDisconnected
	m.state = StateDisconnected
	m.roomID = ""
	m.mu.Unlock()

	if err := m.transport.Disconnect(); err != nil {
		m.log.Warn("Transport disconnect failed", "room_id", roomID, "error", err)
	}
	if wasActive {
		m.log.Info("Connection released", "room_id", roomID)
		m.emitState(roomID, StateDisconnected)
	}
}

func (m *ConnectionManager) setState(state ConnectionState, roomID string) uint64 {
	m.mu.Lock()
	m.state = state
	m.roomID = roomID
	gen := m.generation
	m.mu.Unlock()
	m.emitState(roomID, state)
	return gen
}

func (m *ConnectionManager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen
}

func (m *ConnectionManager) handlers(gen uint64, roomID string) realtime.Handlers {
	return realtime.Handlers{
		OnOpen: func() {
			m.mu.Lock()
			if m.generation != gen {
				m.mu.Unlock()
				return
			}
			m.state = StateConnected
			m.mu.Unlock()
			m.log.Info("Connection established", "room_id", roomID)
			m.emitState(roomID, StateConnected)
		},
		OnMessage: func(msg domain.Message) {
			if !m.isCurrent(gen) {
				m.log.Debug("Dropping message from stale connection", "room_id", roomID)
				return
			}
			if m.events.OnMessage != nil {
				m.events.OnMessage(roomID, msg)
			}
		},
		OnError: func(err error) {
			if !m.isCurrent(gen) {
				return
			}
			m.log.Warn("Transport error", "room_id", roomID, "error", err)
			if m.events.OnError != nil {
				m.events.OnError(roomID, err)
			}
		},
		OnClose: func() {
			m.mu.Lock()
			if m.generation != gen {
				m.mu.Unlock()
				return
			}
			m.state = StateDisconnected
			m.roomID = ""
			m.mu.Unlock()
			m.log.Info("Connection closed", "room_id", roomID)
			m.emitState(roomID, StateDisconnected)
		},
	}
}

func (m *ConnectionManager) emitState(roomID string, state ConnectionState) {
	if m.events.OnState != nil {
		m.events.OnState(roomID, state)
	}
}

// Send writes content on the live connection.
func (m *ConnectionManager) Send(content string) error {
	if !m.IsConnected() {
		return apperrors.ErrNotConnected
	}
	return m.transport.SendMessage(content)
}

// State returns the connection state and the room it is keyed to.
func (m *ConnectionManager) State() (ConnectionState, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.roomID
}

func (m *ConnectionManager) IsConnected() bool {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	return state == StateConnected && m.transport.IsConnected()
}
