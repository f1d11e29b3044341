package chatclient

import (
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"workmesh/backend/internal/faults"
	"workmesh/backend/internal/models"
)

// ConnState is the connection manager's lifecycle state.
type ConnState int32

const (
	StateClosed ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateReconnecting
	// StateFailed is terminal: the retry budget is exhausted and the caller
	// should show a disconnected indicator.
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ConnManager owns the single persistent connection: handshake, envelope
// heartbeat, and reconnection with capped, jittered exponential backoff. On
// every successful (re)connect it runs the explicit resync transition:
// resubscribe the registry's active set, then request a full room-catalog
// refresh, because the live channel guarantees nothing across a gap.
type ConnManager struct {
	// URL is the ws endpoint without credential, e.g. ws://host:8080/ws.
	URL string

	// Registry supplies the resubscribe set on reconnect. Optional.
	Registry *SubscriptionRegistry
	// Handle receives every inbound envelope (typically RoomStore.Apply).
	Handle func(models.Envelope)
	// OnStateChange observes lifecycle transitions. Optional.
	OnStateChange func(ConnState)

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	MaxRetries        int
	MaxBackoff        time.Duration

	token    string
	state    atomic.Int32
	lastPong atomic.Int64

	connMu sync.Mutex
	conn   *websocket.Conn

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnManager builds a manager with the default tuning.
func NewConnManager(wsURL string, handle func(models.Envelope)) *ConnManager {
	m := &ConnManager{
		URL:               wsURL,
		Handle:            handle,
		HeartbeatInterval: 30 * time.Second,
		HeartbeatTimeout:  75 * time.Second,
		MaxRetries:        8,
		MaxBackoff:        30 * time.Second,
		stopCh:            make(chan struct{}),
	}
	m.state.Store(int32(StateClosed))
	return m
}

// State returns the current lifecycle state.
func (m *ConnManager) State() ConnState { return ConnState(m.state.Load()) }

func (m *ConnManager) setState(s ConnState) {
	m.state.Store(int32(s))
	if m.OnStateChange != nil {
		m.OnStateChange(s)
	}
}

// Connect starts the connection loop asynchronously with the given
// credential.
func (m *ConnManager) Connect(token string) {
	m.token = token
	go m.run()
}

// Close shuts the manager down cleanly.
func (m *ConnManager) Close() {
	m.setState(StateClosing)
	m.stopOnce.Do(func() { close(m.stopCh) })
	if conn := m.current(); conn != nil {
		conn.Close()
	}
}

func (m *ConnManager) closingDown() bool {
	select {
	case <-m.stopCh:
		return true
	default:
		return false
	}
}

func (m *ConnManager) current() *websocket.Conn {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.conn
}

// Send writes one envelope over the live channel. Fails fast when the
// channel is not open; callers that need delivery regardless go through the
// dispatcher, which falls back to the synchronous endpoints.
func (m *ConnManager) Send(env models.Envelope) error {
	if m.State() != StateOpen {
		return &faults.TransportError{Op: "send", Err: errNotOpen}
	}

	m.connMu.Lock()
	defer m.connMu.Unlock()
	if m.conn == nil {
		return &faults.TransportError{Op: "send", Err: errNotOpen}
	}
	m.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := m.conn.WriteJSON(env); err != nil {
		return &faults.TransportError{Op: "send", Err: err}
	}
	return nil
}

// SendControl implements ControlSender for the subscription registry.
func (m *ConnManager) SendControl(env models.Envelope) error { return m.Send(env) }

var errNotOpen = &notOpenError{}

type notOpenError struct{}

func (*notOpenError) Error() string { return "live channel is not open" }

func (m *ConnManager) dialURL() string {
	return m.URL + "?token=" + url.QueryEscape(m.token)
}

// run is the connection loop: dial, resync, pump, and on unexpected closure
// reconnect under the backoff policy until the retry budget is spent.
func (m *ConnManager) run() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = m.MaxBackoff
	bo.MaxElapsedTime = 0 // the attempt budget bounds retries, not wall time

	attempts := 0
	first := true

	for {
		if m.closingDown() {
			m.setState(StateClosed)
			return
		}
		if first {
			m.setState(StateConnecting)
		} else {
			m.setState(StateReconnecting)
		}

		conn, _, err := websocket.DefaultDialer.Dial(m.dialURL(), nil)
		if err != nil {
			attempts++
			if attempts > m.MaxRetries {
				log.Printf("ERROR: Retry budget exhausted after %d attempts: %v", attempts-1, err)
				m.setState(StateFailed)
				return
			}
			select {
			case <-time.After(bo.NextBackOff()):
			case <-m.stopCh:
				m.setState(StateClosed)
				return
			}
			continue
		}

		attempts = 0
		bo.Reset()

		m.connMu.Lock()
		m.conn = conn
		m.connMu.Unlock()
		m.setState(StateOpen)

		m.resync()
		m.readLoop(conn)

		m.connMu.Lock()
		m.conn = nil
		m.connMu.Unlock()

		first = false
	}
}

// resync is the mandatory reconnect transition: re-issue one subscribe per
// active room, then refresh the full catalog to reconcile anything missed
// while disconnected.
func (m *ConnManager) resync() {
	if m.Registry != nil {
		for _, roomID := range m.Registry.Snapshot() {
			if err := m.Send(models.Envelope{Type: models.TypeSubscribeRoom, RoomID: roomID}); err != nil {
				log.Printf("WARNING: Resubscribe of room %s failed: %v", roomID, err)
			}
		}
	}
	if err := m.Send(models.Envelope{Type: models.TypeGetRoomList}); err != nil {
		log.Printf("WARNING: Catalog refresh request failed: %v", err)
	}
}

// readLoop pumps inbound envelopes until the connection dies. It also runs
// the envelope heartbeat; a missing pong is treated exactly like an
// unexpected closure.
func (m *ConnManager) readLoop(conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)

	m.lastPong.Store(time.Now().UnixNano())
	go m.heartbeat(conn, stop)

	for {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !m.closingDown() {
				log.Printf("INFO: Live channel closed: %v", err)
			}
			return
		}

		if env.Type == models.TypePong {
			m.lastPong.Store(time.Now().UnixNano())
			continue
		}
		if m.Handle != nil {
			m.Handle(env)
		}
	}
}

func (m *ConnManager) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			last := time.Unix(0, m.lastPong.Load())
			if time.Since(last) > m.HeartbeatTimeout {
				log.Printf("WARNING: Heartbeat timed out, dropping connection")
				conn.Close()
				return
			}
			if err := m.Send(models.Envelope{Type: models.TypePing}); err != nil {
				return
			}
		}
	}
}
