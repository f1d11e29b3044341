package chatclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"workmesh/backend/internal/models"
)

// fakeLive is a LiveChannel double with a scripted state.
type fakeLive struct {
	state ConnState
	sent  []models.Envelope
	err   error
}

func (f *fakeLive) State() ConnState { return f.state }
func (f *fakeLive) Send(env models.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

// fakeFallback is a FallbackAPI double.
type fakeFallback struct {
	sends  int
	lists  int
	err    error
	nextID uint
	rooms  []models.RoomSummary
}

func (f *fakeFallback) SendMessage(roomID, content, correlationID string, _ *uint) (*models.WireMessage, error) {
	f.sends++
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	return &models.WireMessage{
		ID:            f.nextID,
		RoomID:        roomID,
		Content:       content,
		SenderID:      "user_A",
		CorrelationID: correlationID,
	}, nil
}

func (f *fakeFallback) ListRooms() ([]models.RoomSummary, error) {
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	return f.rooms, nil
}

func newTestDispatcher(live *fakeLive, fb *fakeFallback) *Dispatcher {
	return &Dispatcher{Live: live, Fallback: fb, Store: NewRoomStore(), SelfID: "user_A"}
}

func TestDispatcher_LivePathWhenOpen(t *testing.T) {
	live := &fakeLive{state: StateOpen}
	fb := &fakeFallback{}
	d := newTestDispatcher(live, fb)

	res, err := d.SendMessage("room7", "Hello")
	assert.NoError(t, err)
	assert.Equal(t, TransportLive, res.Transport)
	assert.NotEmpty(t, res.CorrelationID)

	assert.Len(t, live.sent, 1)
	assert.Equal(t, models.TypeSendMessage, live.sent[0].Type)
	assert.Equal(t, res.CorrelationID, live.sent[0].CorrelationID)
	assert.Zero(t, fb.sends, "fallback must not run while the channel is open")

	// The optimistic entry is rendered immediately.
	msgs := d.Store.Messages("room7")
	assert.Len(t, msgs, 1)
	assert.True(t, msgs[0].Pending)
}

func TestDispatcher_FallbackWhenNotOpen(t *testing.T) {
	live := &fakeLive{state: StateReconnecting}
	fb := &fakeFallback{}
	d := newTestDispatcher(live, fb)

	res, err := d.SendMessage("room7", "Hi")
	assert.NoError(t, err)
	assert.Equal(t, TransportFallback, res.Transport)
	assert.Equal(t, 1, fb.sends)
	assert.NotZero(t, res.MessageID)

	// The synchronous confirmation replaced the optimistic entry: callers
	// see one confirmed message, same as the live path.
	msgs := d.Store.Messages("room7")
	assert.Len(t, msgs, 1)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, res.MessageID, msgs[0].ID)
}

func TestDispatcher_FallsThroughWhenLiveDiesMidSend(t *testing.T) {
	live := &fakeLive{state: StateOpen, err: errors.New("broken pipe")}
	fb := &fakeFallback{}
	d := newTestDispatcher(live, fb)

	res, err := d.SendMessage("room7", "Hello")
	assert.NoError(t, err)
	assert.Equal(t, TransportFallback, res.Transport)
	assert.Equal(t, 1, fb.sends)

	msgs := d.Store.Messages("room7")
	assert.Len(t, msgs, 1, "mid-send failover must still render exactly once")
}

func TestDispatcher_BothTransportsFailing(t *testing.T) {
	live := &fakeLive{state: StateReconnecting}
	fb := &fakeFallback{err: errors.New("service unavailable")}
	d := newTestDispatcher(live, fb)

	_, err := d.SendMessage("room7", "Hello")
	assert.Error(t, err, "a failure on both transports is terminal, never swallowed")
}

func TestDispatcher_RefreshRooms(t *testing.T) {
	fb := &fakeFallback{rooms: []models.RoomSummary{{RoomID: "room7"}}}

	// Live path: the refresh is a control frame; the catalog arrives as an
	// event later.
	live := &fakeLive{state: StateOpen}
	d := newTestDispatcher(live, fb)
	transport, err := d.RefreshRooms()
	assert.NoError(t, err)
	assert.Equal(t, TransportLive, transport)
	assert.Equal(t, models.TypeGetRoomList, live.sent[0].Type)
	assert.Zero(t, fb.lists)

	// Fallback path: the catalog is applied synchronously.
	live.state = StateFailed
	transport, err = d.RefreshRooms()
	assert.NoError(t, err)
	assert.Equal(t, TransportFallback, transport)
	assert.Equal(t, 1, fb.lists)
	assert.Len(t, d.Store.Rooms(), 1)
}
