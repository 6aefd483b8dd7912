package service

import (
	"time"

	"mentor_chat/internal/domain"
)

// ReconcileResult is the room and message sequence after merging one incoming message.
type ReconcileResult struct {
	Room     domain.Room
	Messages []domain.Message
	// Index is the position the incoming message now occupies.
	Index int
	// Replaced is true when an existing entry was confirmed in place.
	Replaced bool
}

// Reconcile merges a server-confirmed message into a room's sequence. The
// room summary always follows the incoming message, wherever it lands.
//
// The first provisional message with the same sender and identical content is
// replaced in place. Two identical rapid sends from one sender may pair with
// each other's echo; there is no timestamp window. A message whose server id
// is already present is updated in place rather than appended again.
// Otherwise the message is appended. msgs is not modified.
func Reconcile(msgs []domain.Message, room domain.Room, incoming domain.Message, currentUserID string, active bool) ReconcileResult {
	out := make([]domain.Message, len(msgs), len(msgs)+1)
	copy(out, msgs)

	incoming.RoomID = room.ID
	if incoming.SenderID == currentUserID {
		incoming.Read = true
	}

	index := -1
	if incoming.ID != "" && !incoming.IsProvisional() {
		for i := range out {
			if out[i].ID == incoming.ID {
				index = i
				break
			}
		}
	}
	if index < 0 {
		for i := range out {
			if out[i].IsProvisional() && out[i].SenderID == incoming.SenderID && out[i].Content == incoming.Content {
				index = i
				break
			}
		}
	}

	replaced := index >= 0
	if replaced {
		if out[index].Read {
			incoming.Read = true
		}
		out[index] = incoming
	} else {
		if active {
			incoming.Read = true
		}
		out = append(out, incoming)
		index = len(out) - 1
	}

	room.UnreadCount = UnreadCount(out, currentUserID)
	room = summarizeWith(room, incoming)

	return ReconcileResult{
		Room:     room,
		Messages: out,
		Index:    index,
		Replaced: replaced,
	}
}

// Summarize copies the last message of the sequence onto the room for list display.
func Summarize(room domain.Room, msgs []domain.Message) domain.Room {
	if len(msgs) == 0 {
		return room
	}
	return summarizeWith(room, msgs[len(msgs)-1])
}

func summarizeWith(room domain.Room, msg domain.Message) domain.Room {
	room.LastMessage = msg.Content
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	room.LastMessageTime = &ts
	return room
}
