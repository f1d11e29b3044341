package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"workmesh/backend/internal/faults"
	"workmesh/backend/internal/models"
)

// A live send whose persistence fails comes back as an error envelope echoing
// the correlation id. The optimistic entry must leave pending and flag failed
// so the caller can retry it, never sit pending forever.
func TestRoomStore_SendRejectionMarksEntryFailed(t *testing.T) {
	store := NewRoomStore()
	corrID := store.AppendLocal("room7", "alice", "hello")

	store.Apply(models.Envelope{
		Type:          models.TypeError,
		RoomID:        "room7",
		Code:          faults.CodePersistenceFailed,
		Detail:        "storage save message: connection refused",
		CorrelationID: corrID,
	})

	msgs := store.Messages("room7")
	assert.Len(t, msgs, 1)
	assert.False(t, msgs[0].Pending)
	assert.True(t, msgs[0].Failed)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestRoomStore_RejectionWithoutCorrelationLeavesTimelineAlone(t *testing.T) {
	store := NewRoomStore()
	corrID := store.AppendLocal("room7", "alice", "hello")

	// Errors for non-send requests carry no correlation id.
	store.Apply(models.Envelope{
		Type:   models.TypeError,
		RoomID: "room7",
		Code:   faults.CodePermissionDenied,
	})

	msgs := store.Messages("room7")
	assert.Len(t, msgs, 1)
	assert.True(t, msgs[0].Pending)
	assert.False(t, msgs[0].Failed)

	// A late confirmation still lands on the entry as usual.
	store.Apply(models.Envelope{
		Type:    models.TypeNewMessage,
		RoomID:  "room7",
		Message: &models.WireMessage{ID: 9, RoomID: "room7", SenderID: "alice", Content: "hello", CorrelationID: corrID},
	})
	msgs = store.Messages("room7")
	assert.Len(t, msgs, 1)
	assert.Equal(t, uint(9), msgs[0].ID)
}

func TestSession_SurfacesServerErrors(t *testing.T) {
	sess := NewSession("ws://localhost:0/ws", "http://localhost:0", "token", "alice")

	var seen []models.Envelope
	sess.OnError = func(env models.Envelope) { seen = append(seen, env) }

	corrID := sess.Store.AppendLocal("room7", "alice", "hello")

	sess.Manager.Handle(models.Envelope{
		Type:          models.TypeError,
		RoomID:        "room7",
		Code:          faults.CodePersistenceFailed,
		CorrelationID: corrID,
	})

	assert.Len(t, seen, 1, "server rejections must reach the error hook")
	assert.Equal(t, faults.CodePersistenceFailed, seen[0].Code)

	msgs := sess.Store.Messages("room7")
	assert.Len(t, msgs, 1)
	assert.True(t, msgs[0].Failed)

	// Ordinary events go only to the store, not the hook.
	sess.Manager.Handle(models.Envelope{
		Type:    models.TypeNewMessage,
		RoomID:  "room7",
		Message: &models.WireMessage{ID: 3, RoomID: "room7", SenderID: "bob", Content: "hi"},
	})
	assert.Len(t, seen, 1)
	assert.Len(t, sess.Store.Messages("room7"), 2)
}
