package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/repository"
	"mentor_chat/pkg/logger"
)

type HistoryLoader interface {
	// Load returns the room's history. Provisional rooms and failed fetches yield an empty list.
	Load(ctx context.Context, room domain.Room) []domain.Message
	// Fetch is Load that reports the fetch error instead of swallowing it.
	Fetch(ctx context.Context, room domain.Room) ([]domain.Message, error)
	// LoadAll fetches every room concurrently, keyed by room id.
	LoadAll(ctx context.Context, rooms []domain.Room) map[string][]domain.Message
}

type historyLoader struct {
	chatRepo    repository.ChatRepository
	concurrency int
	log         logger.Logger
}

func NewHistoryLoader(chatRepo repository.ChatRepository, concurrency int, log logger.Logger) HistoryLoader {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &historyLoader{
		chatRepo:    chatRepo,
		concurrency: concurrency,
		log:         log,
	}
}

func (l *historyLoader) Load(ctx context.Context, room domain.Room) []domain.Message {
	msgs, err := l.Fetch(ctx, room)
	if err != nil {
		l.log.Warn("History fetch failed", "room_id", room.ID, "error", err)
		return []domain.Message{}
	}
	if len(msgs) == 0 && !room.IsProvisional() {
		l.log.Debug("History empty", "room_id", room.ID)
	}
	return msgs
}

func (l *historyLoader) Fetch(ctx context.Context, room domain.Room) ([]domain.Message, error) {
	conversationID := room.ConversationID()
	if conversationID == "" {
		return []domain.Message{}, nil
	}

	msgs, err := l.chatRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		m.RoomID = room.ID
		out[i] = m
	}
	return out, nil
}

func (l *historyLoader) LoadAll(ctx context.Context, rooms []domain.Room) map[string][]domain.Message {
	var mu sync.Mutex
	histories := make(map[string][]domain.Message, len(rooms))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for _, room := range rooms {
		room := room
		g.Go(func() error {
			msgs := l.Load(ctx, room)
			mu.Lock()
			histories[room.ID] = msgs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return histories
}
