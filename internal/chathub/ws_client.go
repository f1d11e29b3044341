package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"workmesh/backend/internal/faults"
	"workmesh/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Per-connection lifecycle. A connection is created in the authenticated
// state because the credential is validated before the upgrade completes;
// the handshaking state exists only inside the HTTP handler.
type connState int32

const (
	stateHandshaking connState = iota
	stateAuthenticated
	stateActive
	stateClosing
	stateClosed
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	UserID  string
	Conn    *websocket.Conn
	Hub     *ManagerService
	Send    chan models.Envelope
	Limiter *rate.Limiter

	// done signals shutdown to the write pump. Send is never closed: frames
	// from this connection may still be in flight through the hub when it is
	// dropped, and a send on a closed channel would panic the hub loop.
	done chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
}

// NewWebSocketClient wraps an upgraded connection. The credential has been
// validated by this point, so the connection starts authenticated.
func NewWebSocketClient(hub *ManagerService, userID string, conn *websocket.Conn, limiter *rate.Limiter) *WebSocketClient {
	c := &WebSocketClient{
		UserID:  userID,
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan models.Envelope, sendBufferSize),
		Limiter: limiter,
		done:    make(chan struct{}),
	}
	c.state.Store(int32(stateAuthenticated))
	return c
}

func (c *WebSocketClient) GetUserID() string                      { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.Send }

func (c *WebSocketClient) setState(s connState) { c.state.Store(int32(s)) }

// State returns the connection's lifecycle state.
func (c *WebSocketClient) State() connState { return connState(c.state.Load()) }

// Run promotes the connection to active and starts the pumps.
func (c *WebSocketClient) Run() {
	c.setState(stateActive)
	go c.writePump()
	go c.readPump()
}

// Close signals the write pump to stop, which closes the socket on its way
// out. Safe to call more than once.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		c.setState(stateClosing)
		close(c.done)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
		c.setState(stateClosed)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading from client %s: %v", c.UserID, err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("Error decoding envelope from client %s: %v", c.UserID, err)
			c.trySend(models.ErrorEnvelope(faults.CodeInvalidRequest, "malformed control message", ""))
			continue
		}

		if !c.Limiter.Allow() {
			c.trySend(models.ErrorEnvelope(faults.CodeRateLimited, "too many messages", env.RoomID))
			continue
		}

		c.Hub.IncomingCh <- InboundFrame{Client: c, Env: env}
	}
}

// trySend queues an envelope without blocking the read pump. Dropping is
// acceptable here: these are per-request error events.
func (c *WebSocketClient) trySend(env models.Envelope) {
	select {
	case c.Send <- env:
	default:
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case env := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(env)
			if err != nil {
				log.Printf("Error encoding envelope for client %s: %v", c.UserID, err)
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Flush whatever else is already queued.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next := <-c.Send
				extra, err := json.Marshal(next)
				if err != nil {
					continue
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			// Protocol-level ping keeps the read deadline honest.
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
