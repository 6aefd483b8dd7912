package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvisionalRoomID(t *testing.T) {
	id := ProvisionalRoomID("7")
	assert.Equal(t, "pending-7", id)
	assert.True(t, IsProvisionalRoomID(id))
	assert.True(t, Room{ID: id}.IsProvisional())
	assert.Equal(t, "", Room{ID: id}.ConversationID())
	assert.Equal(t, "42", Room{ID: "42"}.ConversationID())
}

func TestProvisionalMessageID(t *testing.T) {
	m := Message{ID: NewProvisionalMessageID()}
	assert.True(t, m.IsProvisional())
	assert.False(t, Message{ID: "981"}.IsProvisional())
}

func TestRelationshipIsChattable(t *testing.T) {
	for status, want := range map[string]bool{
		RequestStatusAccepted:  true,
		RequestStatusActive:    true,
		RequestStatusCompleted: true,
		RequestStatusPending:   false,
		RequestStatusRejected:  false,
	} {
		assert.Equal(t, want, Relationship{RequestStatus: status}.IsChattable(), status)
	}
}

func TestDisplayName(t *testing.T) {
	var missing *PublicProfile
	assert.Equal(t, "mentor42", missing.DisplayName("mentor42"))
	assert.Equal(t, UnknownUserName, missing.DisplayName(" "))
	assert.Equal(t, "Ada Lovelace", (&PublicProfile{FirstName: "Ada", LastName: "Lovelace"}).DisplayName("x"))
}

func TestRelationshipStatusCaseInsensitive(t *testing.T) {
	assert.True(t, Relationship{RequestStatus: "accepted"}.IsChattable())
}

func TestFlexIDUnmarshal(t *testing.T) {
	var v struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a":42,"b":"abc","c":null}`), &v)
	assert.NoError(t, err)
	assert.Equal(t, FlexID("42"), v.A)
	assert.Equal(t, FlexID("abc"), v.B)
	assert.Nil(t, v.C.Ptr())
}
