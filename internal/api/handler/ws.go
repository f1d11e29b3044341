package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"workmesh/backend/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The marketplace web client runs on a different origin. Tighten in
	// production deployments.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket performs the handshake. The upgrade request cannot carry
// custom headers from browser clients, so the credential arrives in-band as a
// token query parameter and is validated before the connection is promoted
// out of handshaking.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "credential missing"})
		return
	}

	userID, err := validateToken(tokenString, h.Cfg.JWTSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token or expired"})
		return
	}

	// Upgrade writes its own HTTP error response on failure; answering again
	// here would write onto a hijack-attempted connection.
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: WebSocket upgrade failed for user %s: %v", userID, err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(h.Cfg.MessageRatePerSec), h.Cfg.MessageBurst)
	client := chathub.NewWebSocketClient(h.Hub, userID, conn, limiter)

	h.Hub.RegisterCh <- client
	client.Run()
}
