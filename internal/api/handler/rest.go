package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workmesh/backend/internal/faults"
)

// Fallback endpoints. They mirror the live channel's send-message and
// room-catalog operations with identical authorization, so the client-side
// dispatcher can use them transparently while the persistent channel is down.

type sendMessageRequest struct {
	Content       string `json:"content" binding:"required"`
	CorrelationID string `json:"correlation_id"`
	ReplyTo       *uint  `json:"reply_to"`
}

// PostRoomMessage is the synchronous equivalent of a send_message envelope.
// The persisted message is returned with the caller's correlation id echoed,
// so the client can reconcile its optimistic copy.
func (h *Handler) PostRoomMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	roomID := c.Param("room_id")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	msg, err := h.Hub.PostMessage(userID, roomID, req.Content, req.ReplyTo)
	if err != nil {
		c.JSON(faults.HTTPStatus(err), gin.H{"error": err.Error(), "code": faults.Code(err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg.Wire(req.CorrelationID)})
}

// ListRooms is the synchronous equivalent of a get_room_list envelope.
func (h *Handler) ListRooms(c *gin.Context) {
	userID := c.GetString("user_id")

	rooms, err := h.Hub.RoomList(userID)
	if err != nil {
		c.JSON(faults.HTTPStatus(err), gin.H{"error": err.Error(), "code": faults.Code(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// ListRoomMessages returns a room's recent history for catch-up after a
// disconnection gap.
func (h *Handler) ListRoomMessages(c *gin.Context) {
	userID := c.GetString("user_id")
	roomID := c.Param("room_id")

	msgs, err := h.Hub.RoomMessages(userID, roomID, 100)
	if err != nil {
		c.JSON(faults.HTTPStatus(err), gin.H{"error": err.Error(), "code": faults.Code(err)})
		return
	}

	out := make([]interface{}, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].Wire(""))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type accessRoomRequest struct {
	ContextID      string `json:"context_id" binding:"required"`
	CounterpartyID string `json:"counterparty_id" binding:"required"`
}

// AccessRoom resolves the gated room for an engagement, creating it after the
// qualifying-relationship check if it does not exist yet. Concurrent
// first-contact attempts from either side resolve to the same room.
func (h *Handler) AccessRoom(c *gin.Context) {
	userID := c.GetString("user_id")

	var req accessRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "context_id and counterparty_id are required"})
		return
	}

	room, err := h.Hub.ResolveGatedRoom(userID, req.ContextID, req.CounterpartyID)
	if err != nil {
		c.JSON(faults.HTTPStatus(err), gin.H{"error": err.Error(), "code": faults.Code(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room.Summary(userID)})
}

// RegisterRoutes mounts every route on the gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/token", h.GetToken)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.authRequired())
	{
		api.GET("/rooms", h.ListRooms)
		api.POST("/rooms/access", h.AccessRoom)
		api.GET("/rooms/:room_id/messages", h.ListRoomMessages)
		api.POST("/rooms/:room_id/messages", h.PostRoomMessage)
	}
}
