package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("alice", "bob")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	a, b = CanonicalPair("bob", "alice")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)
}

func TestRoomParticipants(t *testing.T) {
	room := &Room{User1ID: "alice", User2ID: "bob"}

	assert.True(t, room.HasParticipant("alice"))
	assert.True(t, room.HasParticipant("bob"))
	assert.False(t, room.HasParticipant("mallory"))

	assert.Equal(t, "bob", room.OtherParticipant("alice"))
	assert.Equal(t, "alice", room.OtherParticipant("bob"))
	assert.Equal(t, "", room.OtherParticipant("mallory"))
}

func TestUnreadFor(t *testing.T) {
	room := &Room{User1ID: "alice", User2ID: "bob", User1Unread: 3, User2Unread: 1}

	assert.Equal(t, 3, room.UnreadFor("alice"))
	assert.Equal(t, 1, room.UnreadFor("bob"))
	assert.Equal(t, 0, room.UnreadFor("mallory"))
}

func TestRoomSummaryIsPerUser(t *testing.T) {
	room := &Room{
		RoomID:   "r1",
		Kind:     RoomKindGated,
		User1ID:  "alice",
		User2ID:  "bob",
		IsActive: true,

		User1Unread: 5,
		User2Unread: 0,
	}

	forAlice := room.Summary("alice")
	forBob := room.Summary("bob")

	assert.Equal(t, 5, forAlice.Unread)
	assert.Equal(t, 0, forBob.Unread)
	assert.Equal(t, []string{"alice", "bob"}, forAlice.Participants)
}

func TestMessageReadByUser(t *testing.T) {
	msg := &Message{ReadBy: []string{"bob"}}

	assert.True(t, msg.ReadByUser("bob"))
	assert.False(t, msg.ReadByUser("alice"))
}

func TestWireMessageCorrelationOnlyForSender(t *testing.T) {
	msg := &Message{RoomID: "r1", SenderID: "alice", Body: "hello"}
	msg.ID = 42

	echoed := msg.Wire("corr-1")
	assert.Equal(t, "corr-1", echoed.CorrelationID)
	assert.Equal(t, "hello", echoed.Content)

	// The broadcast copy never carries a correlation id and the JSON omits
	// the field entirely.
	broadcast := msg.Wire("")
	raw, err := json.Marshal(broadcast)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "correlation_id")
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{Type: TypeSendMessage, RoomID: "r1", Content: "hi", CorrelationID: "c1"}

	raw, err := json.Marshal(env)
	assert.NoError(t, err)

	var back Envelope
	assert.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, env, back)
}
