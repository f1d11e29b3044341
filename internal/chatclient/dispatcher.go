package chatclient

import (
	"fmt"

	"workmesh/backend/internal/models"
)

// Transport names which path carried an action.
type Transport string

const (
	TransportLive     Transport = "live"
	TransportFallback Transport = "fallback"
)

// LiveChannel is the dispatcher's view of the connection manager.
type LiveChannel interface {
	State() ConnState
	Send(env models.Envelope) error
}

// FallbackAPI is the dispatcher's view of the synchronous endpoints.
type FallbackAPI interface {
	SendMessage(roomID, content, correlationID string, replyTo *uint) (*models.WireMessage, error)
	ListRooms() ([]models.RoomSummary, error)
}

// Dispatcher is the single outbound entry point for send-message and
// refresh-room-catalog. It picks the transport from the connection manager's
// state and applies fallback results into the same local store the live path
// updates, so callers never see which path ran. Only a failure on both
// transports surfaces as an error.
type Dispatcher struct {
	Live     LiveChannel
	Fallback FallbackAPI
	Store    *RoomStore

	// SelfID is the local user, stamped on optimistic entries.
	SelfID string
}

// SendResult reports how a send went out.
type SendResult struct {
	Transport     Transport
	CorrelationID string
	// MessageID is the permanent id when the fallback path confirmed
	// synchronously; live-path confirmations arrive as events.
	MessageID uint
}

// SendMessage renders the message optimistically, then delivers it over the
// live channel if open, or the fallback endpoint otherwise.
func (d *Dispatcher) SendMessage(roomID, content string) (SendResult, error) {
	corrID := d.Store.AppendLocal(roomID, d.SelfID, content)

	if d.Live != nil && d.Live.State() == StateOpen {
		err := d.Live.Send(models.Envelope{
			Type:          models.TypeSendMessage,
			RoomID:        roomID,
			Content:       content,
			CorrelationID: corrID,
		})
		if err == nil {
			return SendResult{Transport: TransportLive, CorrelationID: corrID}, nil
		}
		// The channel died under us; fall through to the synchronous path.
	}

	if d.Fallback == nil {
		return SendResult{}, fmt.Errorf("send failed: live channel down and no fallback configured")
	}

	msg, err := d.Fallback.SendMessage(roomID, content, corrID, nil)
	if err != nil {
		return SendResult{}, fmt.Errorf("send failed on both transports: %w", err)
	}

	// The synchronous confirmation carries our correlation id, so applying it
	// replaces the optimistic entry exactly like a live confirmation would.
	d.Store.Apply(models.Envelope{Type: models.TypeNewMessage, RoomID: roomID, Message: msg})

	return SendResult{Transport: TransportFallback, CorrelationID: corrID, MessageID: msg.ID}, nil
}

// RefreshRooms requests a room-catalog refresh. The live path answers with a
// room_list event; the fallback path applies the catalog directly.
func (d *Dispatcher) RefreshRooms() (Transport, error) {
	if d.Live != nil && d.Live.State() == StateOpen {
		if err := d.Live.Send(models.Envelope{Type: models.TypeGetRoomList}); err == nil {
			return TransportLive, nil
		}
	}

	if d.Fallback == nil {
		return "", fmt.Errorf("catalog refresh failed: live channel down and no fallback configured")
	}

	rooms, err := d.Fallback.ListRooms()
	if err != nil {
		return "", fmt.Errorf("catalog refresh failed on both transports: %w", err)
	}
	d.Store.SetCatalog(rooms)
	return TransportFallback, nil
}
