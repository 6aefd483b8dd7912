package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor_chat/internal/domain"
)

func TestReconcileConfirmsProvisionalInPlace(t *testing.T) {
	room := domain.Room{ID: "42"}
	msgs := []domain.Message{
		{ID: "1", SenderID: "mentor", Content: "hi", Read: true},
		{ID: "temp-a", SenderID: "me", Content: "hello", Read: true},
		{ID: "2", SenderID: "mentor", Content: "how are you?", Read: true},
	}

	result := Reconcile(msgs, room, domain.Message{ID: "981", SenderID: "me", Content: "hello"}, "me", false)

	require.Len(t, result.Messages, 3)
	assert.True(t, result.Replaced)
	assert.Equal(t, 1, result.Index)
	assert.Equal(t, "981", result.Messages[1].ID)
	assert.True(t, result.Messages[1].Read)
	assert.Equal(t, "42", result.Messages[1].RoomID)
	assert.Equal(t, "hello", result.Room.LastMessage)
	assert.Equal(t, "temp-a", msgs[1].ID, "input is not modified")
}

func TestReconcileSummaryFollowsConfirmedMessage(t *testing.T) {
	room := domain.Room{ID: "42", LastMessage: "later"}
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	msgs := []domain.Message{
		{ID: "temp-a", SenderID: "me", Content: "first", Read: true},
		{ID: "5", SenderID: "mentor", Content: "later", Read: true},
	}

	result := Reconcile(msgs, room, domain.Message{ID: "4", SenderID: "me", Content: "first", Timestamp: ts}, "me", true)

	require.Len(t, result.Messages, 2)
	assert.Equal(t, 0, result.Index)
	assert.Equal(t, "first", result.Room.LastMessage)
	require.NotNil(t, result.Room.LastMessageTime)
	assert.Equal(t, ts, *result.Room.LastMessageTime)
}

func TestReconcileEchoIsIdempotent(t *testing.T) {
	room := domain.Room{ID: "42"}
	msgs := []domain.Message{{ID: "temp-a", SenderID: "me", Content: "hello", Read: true}}
	echo := domain.Message{ID: "981", SenderID: "me", Content: "hello"}

	first := Reconcile(msgs, room, echo, "me", true)
	second := Reconcile(first.Messages, first.Room, echo, "me", true)

	assert.Len(t, first.Messages, 1)
	assert.Len(t, second.Messages, 1)
	assert.Equal(t, "981", second.Messages[0].ID)
}

func TestReconcileAppendsFromCounterpart(t *testing.T) {
	room := domain.Room{ID: "42"}
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	incoming := domain.Message{ID: "7", SenderID: "mentor", Content: "ping", Timestamp: ts}

	inactive := Reconcile(nil, room, incoming, "me", false)
	require.Len(t, inactive.Messages, 1)
	assert.False(t, inactive.Replaced)
	assert.False(t, inactive.Messages[0].Read)
	assert.Equal(t, 1, inactive.Room.UnreadCount)
	assert.Equal(t, "ping", inactive.Room.LastMessage)
	require.NotNil(t, inactive.Room.LastMessageTime)
	assert.Equal(t, ts, *inactive.Room.LastMessageTime)

	active := Reconcile(nil, room, incoming, "me", true)
	assert.True(t, active.Messages[0].Read)
	assert.Equal(t, 0, active.Room.UnreadCount)
}

func TestReconcileOwnMessageWithoutMatchIsRead(t *testing.T) {
	result := Reconcile(nil, domain.Room{ID: "42"}, domain.Message{ID: "5", SenderID: "me", Content: "from another tab"}, "me", false)
	assert.True(t, result.Messages[0].Read)
	assert.Equal(t, 0, result.Room.UnreadCount)
}

func TestReconcileMatchesFirstProvisional(t *testing.T) {
	msgs := []domain.Message{
		{ID: "temp-a", SenderID: "me", Content: "ok"},
		{ID: "temp-b", SenderID: "me", Content: "ok"},
	}

	result := Reconcile(msgs, domain.Room{ID: "42"}, domain.Message{ID: "10", SenderID: "me", Content: "ok"}, "me", false)
	assert.Equal(t, "10", result.Messages[0].ID)
	assert.Equal(t, "temp-b", result.Messages[1].ID)

	result = Reconcile(result.Messages, result.Room, domain.Message{ID: "11", SenderID: "me", Content: "ok"}, "me", false)
	assert.Equal(t, "11", result.Messages[1].ID)
	assert.Len(t, result.Messages, 2)
}

func TestReconcileDoesNotMatchOtherSender(t *testing.T) {
	msgs := []domain.Message{{ID: "temp-a", SenderID: "me", Content: "ok"}}

	result := Reconcile(msgs, domain.Room{ID: "42"}, domain.Message{ID: "10", SenderID: "mentor", Content: "ok"}, "me", false)
	assert.Len(t, result.Messages, 2)
	assert.Equal(t, "temp-a", result.Messages[0].ID)
}
