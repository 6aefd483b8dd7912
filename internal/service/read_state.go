package service

import "mentor_chat/internal/domain"

// Read state is a local approximation for the session. It is never written
// back to the message store and is lost on logout.

// IsUnread reports whether m counts towards the room's unread counter.
func IsUnread(m domain.Message, currentUserID string) bool {
	return !m.Read && m.SenderID != currentUserID
}

func UnreadCount(msgs []domain.Message, currentUserID string) int {
	count := 0
	for _, m := range msgs {
		if IsUnread(m, currentUserID) {
			count++
		}
	}
	return count
}

// MarkAllRead returns a copy of msgs with every message read.
func MarkAllRead(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		m.Read = true
		out[i] = m
	}
	return out
}

// NormalizeOwnMessages marks the current user's own messages read, whatever the transport reported.
func NormalizeOwnMessages(msgs []domain.Message, currentUserID string) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		if m.SenderID == currentUserID {
			m.Read = true
		}
		out[i] = m
	}
	return out
}

// ApplyReadState derives read flags and the unread counter for one room.
// The active room is always fully read.
func ApplyReadState(room domain.Room, msgs []domain.Message, currentUserID string, active bool) (domain.Room, []domain.Message) {
	msgs = NormalizeOwnMessages(msgs, currentUserID)
	if active {
		msgs = MarkAllRead(msgs)
	}
	room.UnreadCount = UnreadCount(msgs, currentUserID)
	return room, msgs
}
