// Package chatclient is the client side of the messaging layer: one
// persistent multiplexed connection with reconnection and heartbeats, a
// reference-counted subscription registry, an idempotent reconciliation
// engine for optimistic rendering, and a dispatcher that degrades to the
// synchronous fallback endpoints transparently.
package chatclient

import "workmesh/backend/internal/models"

// Session wires the client components together over one credential.
type Session struct {
	Manager    *ConnManager
	Registry   *SubscriptionRegistry
	Store      *RoomStore
	Dispatcher *Dispatcher

	// OnError observes server error envelopes. The store has already marked
	// the rejected optimistic entry failed by the time this fires; the
	// callback is the caller's hook to surface the rejection and offer a
	// retry. Optional.
	OnError func(models.Envelope)
}

// NewSession assembles a ready-to-connect session. wsURL is the live
// endpoint (ws://.../ws), apiURL the HTTP root for the fallback endpoints.
func NewSession(wsURL, apiURL, token, selfID string) *Session {
	store := NewRoomStore()

	manager := NewConnManager(wsURL, nil)
	registry := NewSubscriptionRegistry(manager)
	manager.Registry = registry

	dispatcher := &Dispatcher{
		Live:     manager,
		Fallback: NewRestClient(apiURL, token),
		Store:    store,
		SelfID:   selfID,
	}

	s := &Session{
		Manager:    manager,
		Registry:   registry,
		Store:      store,
		Dispatcher: dispatcher,
	}
	manager.Handle = s.handleEnvelope
	return s
}

// handleEnvelope folds every inbound envelope into the store and surfaces
// server rejections to the error hook.
func (s *Session) handleEnvelope(env models.Envelope) {
	s.Store.Apply(env)
	if env.Type == models.TypeError && s.OnError != nil {
		s.OnError(env)
	}
}

// Connect opens the live channel with the session's credential.
func (s *Session) Connect(token string) { s.Manager.Connect(token) }

// Subscribe adds a caller reference to a room.
func (s *Session) Subscribe(roomID string) error { return s.Registry.Subscribe(roomID) }

// Unsubscribe releases a caller reference.
func (s *Session) Unsubscribe(roomID string) error { return s.Registry.Unsubscribe(roomID) }

// SendMessage delivers over whichever transport is available.
func (s *Session) SendMessage(roomID, content string) (SendResult, error) {
	return s.Dispatcher.SendMessage(roomID, content)
}

// Typing signals the local user is typing in a room. Best effort, live
// channel only: typing is ephemeral and not worth a fallback round trip.
func (s *Session) Typing(roomID string) {
	_ = s.Manager.Send(models.Envelope{Type: models.TypeTyping, RoomID: roomID})
}

// MarkRead reports messages as read. Live channel only; unread state
// reconciles on the next catalog refresh if the channel is down.
func (s *Session) MarkRead(roomID string, messageIDs []uint) error {
	return s.Manager.Send(models.Envelope{
		Type:       models.TypeMarkRead,
		RoomID:     roomID,
		MessageIDs: messageIDs,
	})
}

// Close shuts the session down.
func (s *Session) Close() { s.Manager.Close() }
