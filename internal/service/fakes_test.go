package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/realtime"
	apperrors "mentor_chat/pkg/errors"
)

func strPtr(s string) *string { return &s }

type fakeMentorships struct {
	mu        sync.Mutex
	mentee    map[string][]domain.Relationship
	mentor    map[string][]domain.Relationship
	menteeErr map[string]error
	mentorErr map[string]error
	calls     []string
}

func newFakeMentorships() *fakeMentorships {
	return &fakeMentorships{
		mentee:    map[string][]domain.Relationship{},
		mentor:    map[string][]domain.Relationship{},
		menteeErr: map[string]error{},
		mentorErr: map[string]error{},
	}
}

func (f *fakeMentorships) GetMenteeRelationships(ctx context.Context, userID string) ([]domain.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "mentee:"+userID)
	if err := f.menteeErr[userID]; err != nil {
		return nil, err
	}
	return f.mentee[userID], nil
}

func (f *fakeMentorships) GetMentorRelationships(ctx context.Context, userID string) ([]domain.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "mentor:"+userID)
	if err := f.mentorErr[userID]; err != nil {
		return nil, err
	}
	return f.mentor[userID], nil
}

type fakeChat struct {
	mu      sync.Mutex
	history map[string][]domain.Message
	errs    map[string]error
	calls   []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{history: map[string][]domain.Message{}, errs: map[string]error{}}
}

func (f *fakeChat) GetConversationHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conversationID)
	if err := f.errs[conversationID]; err != nil {
		return nil, err
	}
	return f.history[conversationID], nil
}

type fakeProfiles struct {
	profiles map[string]*domain.PublicProfile
}

func (f *fakeProfiles) GetPublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, apperrors.ErrNotFound
}

// eventLog records transport calls in order across transports.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeTransport struct {
	mu             sync.Mutex
	log            *eventLog
	connected      bool
	conversationID string
	handlers       realtime.Handlers
	sent           []string
	failures       int
	connectErr     error
	connects       int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{log: &eventLog{}}
}

func (f *fakeTransport) Connect(ctx context.Context, conversationID, credential string, h realtime.Handlers) error {
	f.mu.Lock()
	f.connects++
	f.log.add("connect:" + conversationID)
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("dial refused")
	}
	if f.connectErr != nil {
		err := f.connectErr
		f.mu.Unlock()
		return err
	}
	f.connected = true
	f.conversationID = conversationID
	f.handlers = h
	f.mu.Unlock()

	if h.OnOpen != nil {
		h.OnOpen()
	}
	return nil
}

func (f *fakeTransport) SendMessage(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return apperrors.ErrNotConnected
	}
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return nil
	}
	f.connected = false
	f.log.add("disconnect:" + f.conversationID)
	h := f.handlers
	f.mu.Unlock()

	if h.OnClose != nil {
		h.OnClose()
	}
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) currentHandlers() realtime.Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

// echo delivers a server confirmation of content from sender on the live connection.
func (f *fakeTransport) echo(id, sender, content string) {
	f.currentHandlers().OnMessage(domain.Message{
		ID:        id,
		SenderID:  sender,
		Content:   content,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
}

// drop simulates the server closing the connection.
func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	f.connected = false
	h := f.handlers
	f.mu.Unlock()
	if h.OnError != nil {
		h.OnError(err)
	}
	if h.OnClose != nil {
		h.OnClose()
	}
}
