package models

// Envelope types, client to server.
const (
	TypeSubscribeRoom   = "subscribe_room"
	TypeUnsubscribeRoom = "unsubscribe_room"
	TypeSendMessage     = "send_message"
	TypeMarkRead        = "mark_read"
	TypeTyping          = "typing"
	TypeGetRoomList     = "get_room_list"
	TypePing            = "ping"
)

// Envelope types, server to client.
const (
	TypeConnectionEstablished = "connection_established"
	TypeSubscribed            = "subscribed"
	TypeNewMessage            = "new_message"
	TypeRoomList              = "room_list"
	TypeMessagesMarkedRead    = "messages_marked_read"
	TypePong                  = "pong"
	TypeError                 = "error"
	// TypeTyping is reused in both directions.
)

// Envelope is the control message carried over the live channel in both
// directions. It is a tagged union: Type selects which of the optional fields
// are meaningful.
type Envelope struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`

	// send_message
	Content       string `json:"content,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ReplyTo       *uint  `json:"reply_to,omitempty"`

	// subscribe_room may address a not-yet-existing gated room by its
	// engagement context instead of a room id.
	ContextID      string `json:"context_id,omitempty"`
	CounterpartyID string `json:"counterparty_id,omitempty"`

	// mark_read / messages_marked_read
	MessageIDs []uint `json:"message_ids,omitempty"`
	MarkedBy   string `json:"marked_by,omitempty"`

	// connection_established, typing
	UserID string `json:"user_id,omitempty"`

	// new_message
	Message *WireMessage `json:"message,omitempty"`

	// room_list
	Rooms []RoomSummary `json:"rooms,omitempty"`

	// error
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ErrorEnvelope builds an error event for one rejected request.
func ErrorEnvelope(code, detail, roomID string) Envelope {
	return Envelope{Type: TypeError, Code: code, Detail: detail, RoomID: roomID}
}
