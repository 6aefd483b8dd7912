package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mentor_chat/internal/domain"
	"mentor_chat/pkg/logger"
)

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

// NewChatRepository reads history straight from the message-store tables.
func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

func (r *chatRepository) GetConversationHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `
		SELECT m.id::text, m.sender_id::text, COALESCE(u.username, ''), m.content, m.created_at, m.is_read
		FROM chat_messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id::text = $1 AND m.deleted_at IS NULL
		ORDER BY m.created_at ASC, m.id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		r.log.Error("Failed to get conversation history", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		message := domain.Message{RoomID: conversationID}
		if err := rows.Scan(
			&message.ID, &message.SenderID, &message.SenderName,
			&message.Content, &message.Timestamp, &message.Read,
		); err != nil {
			r.log.Error("Failed to scan message", "conversation_id", conversationID, "error", err)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return messages, nil
}
