package domain

import (
	"strings"
	"time"
)

// Room is one conversation between the current user and a single counterpart.
// Participant fields always describe the other party.
type Room struct {
	ID                string     `json:"id"`
	ParticipantID     string     `json:"participant_id"`
	ParticipantName   string     `json:"participant_name"`
	ParticipantAvatar string     `json:"participant_avatar,omitempty"`
	ParticipantRole   string     `json:"participant_role"`
	MentorshipID      string     `json:"mentorship_id"`
	Status            string     `json:"status"`
	LastMessage       string     `json:"last_message,omitempty"`
	LastMessageTime   *time.Time `json:"last_message_time,omitempty"`
	UnreadCount       int        `json:"unread_count"`
}

// Only OPEN exists; completed mentorships keep their room open.
const (
	RoomStatusOpen = "OPEN"
)

const (
	ParticipantRoleMentor = "mentor"
	ParticipantRoleMentee = "mentee"
)

// ProvisionalRoomPrefix marks a room that has no server conversation yet.
const ProvisionalRoomPrefix = "pending-"

func ProvisionalRoomID(mentorshipID string) string {
	return ProvisionalRoomPrefix + mentorshipID
}

func IsProvisionalRoomID(id string) bool {
	return strings.HasPrefix(id, ProvisionalRoomPrefix)
}

func (r Room) IsProvisional() bool {
	return r.ID == "" || IsProvisionalRoomID(r.ID)
}

// ConversationID returns the server conversation id, or "" for provisional rooms.
func (r Room) ConversationID() string {
	if r.IsProvisional() {
		return ""
	}
	return r.ID
}
