package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// ProvisionalMessagePrefix marks an optimistic message not yet confirmed by the server.
const ProvisionalMessagePrefix = "temp-"

func NewProvisionalMessageID() string {
	return ProvisionalMessagePrefix + uuid.NewString()
}

func (m Message) IsProvisional() bool {
	return strings.HasPrefix(m.ID, ProvisionalMessagePrefix)
}
