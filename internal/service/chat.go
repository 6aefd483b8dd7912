package service

import (
	"context"
	"sync"

	"mentor_chat/internal/domain"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// TransportFactory creates the live transport of a new session.
type TransportFactory func() LiveTransport

// ChatService keeps one chat session per user.
type ChatService interface {
	// Initialize starts or refreshes the user's session. A non-empty
	// deepLinkMentorshipID is opened before the room list resolves.
	Initialize(ctx context.Context, identity domain.Identity, deepLinkMentorshipID string) (*ChatSession, error)
	Session(userID string) (*ChatSession, error)
	Logout(userID string) error
	Shutdown()
}

type chatService struct {
	resolver     RoomResolver
	history      HistoryLoader
	newTransport TransportFactory
	opts         SessionOptions
	log          logger.Logger

	mu       sync.Mutex
	sessions map[string]*ChatSession
}

func NewChatService(resolver RoomResolver, history HistoryLoader, newTransport TransportFactory, opts SessionOptions, log logger.Logger) ChatService {
	return &chatService{
		resolver:     resolver,
		history:      history,
		newTransport: newTransport,
		opts:         opts,
		log:          log,
		sessions:     make(map[string]*ChatSession),
	}
}

func (s *chatService) Initialize(ctx context.Context, identity domain.Identity, deepLinkMentorshipID string) (*ChatSession, error) {
	if identity.UserID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	s.mu.Lock()
	session, ok := s.sessions[identity.UserID]
	if !ok {
		session = NewChatSession(identity, s.resolver, s.history, s.newTransport(), s.opts, s.log)
		s.sessions[identity.UserID] = session
		s.log.Info("Chat session created", "user_id", identity.UserID)
	}
	s.mu.Unlock()

	if ok && identity.Credential != "" {
		session.SetCredential(identity.Credential)
	}

	if deepLinkMentorshipID != "" {
		if _, err := session.OpenMentorship(ctx, deepLinkMentorshipID); err != nil {
			s.log.Warn("Deep link could not be opened", "user_id", identity.UserID, "mentorship_id", deepLinkMentorshipID, "error", err)
		}
	}

	// The session stays registered on failure so the caller can retry.
	if err := session.Initialize(ctx); err != nil {
		return session, err
	}

	return session, nil
}

func (s *chatService) Session(userID string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *chatService) Logout(userID string) error {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if !ok {
		return apperrors.ErrSessionNotFound
	}

	session.Close()
	s.log.Info("Chat session ended", "user_id", userID)
	return nil
}

// Shutdown closes every session.
func (s *chatService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*ChatSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	s.log.Info("Chat sessions closed", "count", len(sessions))
}
