package client

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npeters/go-taskroom/internal/server"
)

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventHandler receives the raw data payload of one inbound event.
type EventHandler func(data json.RawMessage)

// ConnManager keeps the websocket connection in lockstep with the
// authentication state: setting a credential opens a connection, clearing it
// closes the connection immediately rather than waiting for the server to
// notice. At most one connection attempt is live at a time.
type ConnManager struct {
	wsUrl string
	log   *log.Logger

	mu         sync.Mutex
	state      ConnState
	credential string
	conn       *websocket.Conn
	generation int
	handlers   map[string]EventHandler
}

func NewConnManager(wsUrl string, logger *log.Logger) *ConnManager {
	return &ConnManager{
		wsUrl:    wsUrl,
		log:      logger,
		state:    StateDisconnected,
		handlers: make(map[string]EventHandler),
	}
}

// Handle registers a handler for one inbound event name. Register handlers
// before calling SetCredential.
func (m *ConnManager) Handle(event string, h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[event] = h
}

func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// SetCredential stores the token and starts a connection attempt. Any
// existing connection is torn down first, so a re-login can never leave two
// live connections behind. The dial itself runs asynchronously; callers must
// tolerate a window with no live connection.
func (m *ConnManager) SetCredential(token string) error {
	if token == "" {
		return fmt.Errorf("empty credential")
	}

	m.mu.Lock()
	m.teardownLocked()
	m.credential = token
	m.state = StateConnecting
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	go m.connect(gen, token)

	return nil
}

// ClearCredential drops the token and proactively closes any live or pending
// connection. After it returns, no connection associated with the old
// credential remains.
func (m *ConnManager) ClearCredential() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credential = ""
	m.teardownLocked()
}

// Close is equivalent to ClearCredential.
func (m *ConnManager) Close() {
	m.ClearCredential()
}

func (m *ConnManager) teardownLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.generation++
	m.state = StateDisconnected
}

func (m *ConnManager) connect(gen int, token string) {
	u, err := url.Parse(m.wsUrl)
	if err != nil {
		m.failConnect(gen, fmt.Errorf("parse url: %w", err))
		return
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		m.failConnect(gen, fmt.Errorf("dial: %w", err))
		return
	}

	m.mu.Lock()
	if m.generation != gen {
		// credential changed or cleared while dialing
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.mu.Unlock()

	go m.readLoop(gen, conn)
}

func (m *ConnManager) failConnect(gen int, err error) {
	m.log.Println("connect:", err)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation == gen {
		m.state = StateDisconnected
	}
}

func (m *ConnManager) readLoop(gen int, conn *websocket.Conn) {
	defer func() {
		conn.Close()

		m.mu.Lock()
		if m.generation == gen {
			m.conn = nil
			m.state = StateDisconnected
		}
		m.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				m.log.Printf("ws: read: %v", err)
			}
			return
		}

		var ev struct {
			Event     string          `json:"event"`
			Data      json.RawMessage `json:"data"`
			Timestamp time.Time       `json:"timestamp"`
		}
		if err := json.Unmarshal(raw, &ev); err != nil {
			m.log.Println("error parsing event:", err)
			continue
		}

		m.mu.Lock()
		h := m.handlers[ev.Event]
		m.mu.Unlock()

		if h != nil {
			h(ev.Data)
		}
	}
}

// SendChatMessage submits text to the shared chat channel. It fails when no
// connection is live; chat is best-effort and the caller simply sees no
// broadcast come back.
func (m *ConnManager) SendChatMessage(text string) error {
	if text == "" {
		return fmt.Errorf("empty message")
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	frame, err := json.Marshal(server.ClientEvent{
		Event: server.EventSendMessage,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	return conn.WriteMessage(websocket.TextMessage, frame)
}
