package chathub

import (
	"log"
	"time"

	"workmesh/backend/internal/models"
	"workmesh/backend/internal/relationship"
	"workmesh/backend/internal/storage"
)

// OfflineNotifier is told when a fan-out target has no live connection, so it
// can nudge the user out-of-band.
type OfflineNotifier interface {
	NotifyOffline(userID string, room *models.Room, msg *models.Message)
}

// ManagerService is the connection authority hub. One Run goroutine owns the
// connection and subscriber maps; every mutation flows through the channels,
// so no locking is needed on them. Cross-process fan-out rides the Redis
// pub/sub broker: events are published per room channel and re-enter every
// process through PubSubCh.
type ManagerService struct {
	// Clients maps user id to their single live connection.
	Clients map[string]Client

	// subscribers maps room id to the set of locally subscribed connections;
	// clientRooms is the reverse index used on disconnect.
	subscribers map[string]map[Client]struct{}
	clientRooms map[Client]map[string]struct{}

	IncomingCh   chan InboundFrame
	RegisterCh   chan Client
	UnregisterCh chan Client
	PubSubCh     chan models.Envelope

	Storage       storage.Storage
	Relationships relationship.Checker
	Notifier      OfflineNotifier
	Presence      *Presence

	TypingTTL time.Duration
}

// NewManagerService wires a hub over the given storage and relationship
// collaborator.
func NewManagerService(s storage.Storage, rel relationship.Checker) *ManagerService {
	return &ManagerService{
		Clients:       make(map[string]Client),
		subscribers:   make(map[string]map[Client]struct{}),
		clientRooms:   make(map[Client]map[string]struct{}),
		IncomingCh:    make(chan InboundFrame),
		RegisterCh:    make(chan Client),
		UnregisterCh:  make(chan Client),
		PubSubCh:      make(chan models.Envelope, 64),
		Storage:       s,
		Relationships: rel,
		Presence:      NewPresence(),
		TypingTTL:     5 * time.Second,
	}
}

// Run is the hub dispatcher loop.
func (m *ManagerService) Run() {
	for {
		select {
		case client := <-m.RegisterCh:
			m.handleRegister(client)
		case client := <-m.UnregisterCh:
			m.handleUnregister(client)
		case frame := <-m.IncomingCh:
			m.handleInbound(frame)
		case env := <-m.PubSubCh:
			m.deliver(env)
		}
	}
}

// handleRegister admits a connection. A user holds at most one; a fresh
// handshake displaces the previous connection.
func (m *ManagerService) handleRegister(c Client) {
	userID := c.GetUserID()

	if old, ok := m.Clients[userID]; ok && old != c {
		log.Printf("INFO: Replacing live connection for user %s", userID)
		m.dropClient(old)
	}

	m.Clients[userID] = c
	m.clientRooms[c] = make(map[string]struct{})
	m.Presence.add(userID)

	m.sendToClient(c, models.Envelope{Type: models.TypeConnectionEstablished, UserID: userID})
}

// handleUnregister releases a connection and everything it held. Idempotent:
// the read pump and a hub-side drop may both report the same client.
func (m *ManagerService) handleUnregister(c Client) {
	if _, ok := m.clientRooms[c]; !ok {
		return
	}
	m.dropClient(c)
}

func (m *ManagerService) dropClient(c Client) {
	for roomID := range m.clientRooms[c] {
		m.removeSubscriber(roomID, c)
	}
	delete(m.clientRooms, c)

	userID := c.GetUserID()
	if m.Clients[userID] == c {
		delete(m.Clients, userID)
		m.Presence.remove(userID)
	}
	c.Close()
}

func (m *ManagerService) addSubscriber(roomID string, c Client) {
	if m.subscribers[roomID] == nil {
		m.subscribers[roomID] = make(map[Client]struct{})
	}
	m.subscribers[roomID][c] = struct{}{}
	if m.clientRooms[c] == nil {
		m.clientRooms[c] = make(map[string]struct{})
	}
	m.clientRooms[c][roomID] = struct{}{}
}

func (m *ManagerService) removeSubscriber(roomID string, c Client) {
	if set, ok := m.subscribers[roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m.subscribers, roomID)
		}
	}
	if rooms, ok := m.clientRooms[c]; ok {
		delete(rooms, roomID)
	}
}

// subscribed reports whether the connection holds a live subscription.
func (m *ManagerService) subscribed(c Client, roomID string) bool {
	_, ok := m.clientRooms[c][roomID]
	return ok
}

// handleInbound dispatches one decoded control envelope. Frames from a
// connection the hub already dropped (displaced by a re-register, or cut for
// falling behind) may still be in flight; they are ignored rather than
// answered on a dead connection.
func (m *ManagerService) handleInbound(frame InboundFrame) {
	c, env := frame.Client, frame.Env

	if _, ok := m.clientRooms[c]; !ok {
		return
	}

	switch env.Type {
	case models.TypeSubscribeRoom:
		m.handleSubscribe(c, env)
	case models.TypeUnsubscribeRoom:
		m.removeSubscriber(env.RoomID, c)
	case models.TypeSendMessage:
		m.handleSend(c, env)
	case models.TypeMarkRead:
		m.handleMarkRead(c, env)
	case models.TypeTyping:
		m.handleTyping(c, env)
	case models.TypeGetRoomList:
		m.handleRoomList(c)
	case models.TypePing:
		m.sendToClient(c, models.Envelope{Type: models.TypePong})
	default:
		m.sendError(c, unknownTypeError(env.Type), env.RoomID)
	}
}

func (m *ManagerService) handleSubscribe(c Client, env models.Envelope) {
	userID := c.GetUserID()

	var room *models.Room
	var err error
	if env.RoomID == "" && env.ContextID != "" {
		// First-contact subscribe addressed by engagement context: resolve
		// (or lazily create) the gated room.
		room, err = m.ResolveGatedRoom(userID, env.ContextID, env.CounterpartyID)
	} else {
		room, err = m.authorizeRoom(userID, env.RoomID)
	}
	if err != nil {
		m.sendError(c, err, env.RoomID)
		return
	}

	m.addSubscriber(room.RoomID, c)
	m.sendToClient(c, models.Envelope{Type: models.TypeSubscribed, RoomID: room.RoomID})
}

func (m *ManagerService) handleSend(c Client, env models.Envelope) {
	if !m.subscribed(c, env.RoomID) {
		reject := errorEnvelope(notSubscribedError(env.RoomID), env.RoomID)
		reject.CorrelationID = env.CorrelationID
		m.sendToClient(c, reject)
		return
	}

	msg, err := m.PostMessage(c.GetUserID(), env.RoomID, env.Content, env.ReplyTo)
	if err != nil {
		// The rejection echoes the correlation id so the sender can mark its
		// optimistic copy failed and offer a retry.
		log.Printf("INFO: Rejected send from %s: %v", c.GetUserID(), err)
		reject := errorEnvelope(err, env.RoomID)
		reject.CorrelationID = env.CorrelationID
		m.sendToClient(c, reject)
		return
	}

	// Confirmation goes straight back to the sender carrying its correlation
	// id; the broadcast copy (without it) reaches everyone else via pub/sub.
	m.sendToClient(c, models.Envelope{
		Type:    models.TypeNewMessage,
		RoomID:  env.RoomID,
		Message: msg.Wire(env.CorrelationID),
	})
}

func (m *ManagerService) handleMarkRead(c Client, env models.Envelope) {
	if _, err := m.MarkRead(c.GetUserID(), env.RoomID, env.MessageIDs); err != nil {
		m.sendError(c, err, env.RoomID)
	}
}

func (m *ManagerService) handleTyping(c Client, env models.Envelope) {
	userID := c.GetUserID()
	if !m.subscribed(c, env.RoomID) {
		return
	}

	// Never persisted: a TTL'd key that lapses on its own.
	if err := m.Storage.SetTyping(env.RoomID, userID, m.TypingTTL); err != nil {
		log.Printf("WARNING: Failed to record typing state for %s: %v", userID, err)
	}
	if err := m.Storage.PublishEvent(env.RoomID, models.Envelope{
		Type:   models.TypeTyping,
		RoomID: env.RoomID,
		UserID: userID,
	}); err != nil {
		log.Printf("WARNING: Failed to publish typing event: %v", err)
	}
}

func (m *ManagerService) handleRoomList(c Client) {
	rooms, err := m.RoomList(c.GetUserID())
	if err != nil {
		m.sendError(c, err, "")
		return
	}
	m.sendToClient(c, models.Envelope{Type: models.TypeRoomList, Rooms: rooms})
}

// deliver fans a broker event out to the room's local subscribers, skipping
// the originator (the sender already holds an optimistic copy or is the
// actor of the event).
func (m *ManagerService) deliver(env models.Envelope) {
	origin := eventOrigin(env)

	for c := range m.subscribers[env.RoomID] {
		if c.GetUserID() == origin {
			continue
		}
		m.sendToClient(c, env)
	}
}

// eventOrigin names the user an event came from, for fan-out exclusion.
func eventOrigin(env models.Envelope) string {
	switch env.Type {
	case models.TypeNewMessage:
		if env.Message != nil {
			return env.Message.SenderID
		}
	case models.TypeTyping:
		return env.UserID
	case models.TypeMessagesMarkedRead:
		return env.MarkedBy
	}
	return ""
}

// sendToClient queues an envelope. A connection that cannot keep up is
// dropped rather than allowed to block the hub loop.
func (m *ManagerService) sendToClient(c Client, env models.Envelope) {
	select {
	case c.GetSendChannel() <- env:
	default:
		log.Printf("WARNING: Dropping slow connection for user %s", c.GetUserID())
		m.dropClient(c)
	}
}

func (m *ManagerService) sendError(c Client, err error, roomID string) {
	log.Printf("INFO: Rejected request from %s: %v", c.GetUserID(), err)
	m.sendToClient(c, errorEnvelope(err, roomID))
}
