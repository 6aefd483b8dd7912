package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *PlatformAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPlatformAPI(srv.URL, srv.Client(), logger.Nop())
}

func TestPlatformAPIMenteeRelationships(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mentorships/mentee/u1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 7, "mentor_id": 2, "mentor_username": "grace", "mentee_id": "u1", "request_status": "ACCEPTED", "conversation_id": 42},
			{"id": 8, "mentor_id": 3, "mentor_username": "linus", "mentee_id": "u1", "request_status": "PENDING", "conversation_id": null}
		]`))
	})

	rels, err := api.GetMenteeRelationships(WithCredential(context.Background(), "tok"), "u1")
	require.NoError(t, err)
	require.Len(t, rels, 2)

	assert.Equal(t, "7", rels[0].ID)
	assert.Equal(t, "2", rels[0].MentorID)
	require.NotNil(t, rels[0].ConversationID)
	assert.Equal(t, "42", *rels[0].ConversationID)
	assert.Nil(t, rels[1].ConversationID)
}

func TestPlatformAPIHistory(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/conversations/42/messages", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 1, "sender_id": 2, "content": "hi", "timestamp": "2024-05-01T10:00:00Z", "read": true},
			{"id": 2, "sender_id": "u1", "content": "hello", "timestamp": "2024-05-01T10:01:00Z"}
		]`))
	})

	msgs, err := api.GetConversationHistory(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "42", msgs[0].RoomID)
	assert.Equal(t, "2", msgs[0].SenderID)
	assert.True(t, msgs[0].Read)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestPlatformAPIProfileNotFound(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := api.GetPublicProfile(context.Background(), "9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPlatformAPIServerError(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := api.GetMentorRelationships(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPlatformAPIProfile(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"first_name": "Grace", "last_name": "Hopper", "image_url": "https://cdn/g.png"}`))
	})

	profile, err := api.GetPublicProfile(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "2", profile.UserID)
	assert.Equal(t, "Grace Hopper", profile.DisplayName(""))
}
