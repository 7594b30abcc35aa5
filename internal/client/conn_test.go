package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npeters/go-taskroom/internal/server"
	"github.com/npeters/go-taskroom/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// wsTestServer runs a websocket endpoint and passes each accepted connection
// to handler.
func wsTestServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) (*httptest.Server, string) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)

	wsUrl := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsUrl
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
}

func TestConnManager_SetCredential(t *testing.T) {
	t.Run("empty credential", func(t *testing.T) {
		cm := NewConnManager("ws://localhost/ws", testutil.TestLogger(t))
		err := cm.SetCredential("")
		assert.Error(t, err, "expected an empty credential to be rejected")
		assert.Equal(t, StateDisconnected, cm.State(), "expected state to remain disconnected")
	})

	t.Run("connects with token in query", func(t *testing.T) {
		tokenCh := make(chan string, 1)
		_, wsUrl := wsTestServer(t, func(conn *websocket.Conn, r *http.Request) {
			tokenCh <- r.URL.Query().Get("token")
			conn.ReadMessage() // hold the connection open until the client closes
		})

		cm := NewConnManager(wsUrl, testutil.TestLogger(t))
		defer cm.Close()

		err := cm.SetCredential("test-token")
		assert.NoError(t, err, "expected SetCredential to accept the token")

		select {
		case token := <-tokenCh:
			assert.Equal(t, "test-token", token, "expected the credential to travel as a query parameter")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for the handshake")
		}

		assert.Eventually(t, func() bool {
			return cm.State() == StateConnected
		}, 2*time.Second, 10*time.Millisecond, "expected the manager to reach connected state")
	})

	t.Run("failed dial returns to disconnected", func(t *testing.T) {
		srv, wsUrl := wsTestServer(t, func(conn *websocket.Conn, r *http.Request) {})
		srv.Close()

		cm := NewConnManager(wsUrl, testutil.TestLogger(t))
		err := cm.SetCredential("test-token")
		assert.NoError(t, err, "expected SetCredential to accept the token")

		assert.Eventually(t, func() bool {
			return cm.State() == StateDisconnected
		}, 2*time.Second, 10*time.Millisecond, "expected a failed dial to settle in disconnected state")
	})
}

func TestConnManager_ClearCredential(t *testing.T) {
	closed := make(chan struct{})
	_, wsUrl := wsTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.ReadMessage() // returns with an error once the client closes
		close(closed)
	})

	cm := NewConnManager(wsUrl, testutil.TestLogger(t))
	err := cm.SetCredential("test-token")
	assert.NoError(t, err, "expected SetCredential to accept the token")

	assert.Eventually(t, func() bool {
		return cm.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond, "expected the manager to connect first")

	cm.ClearCredential()
	assert.Equal(t, StateDisconnected, cm.State(), "expected state to drop immediately")

	select {
	case <-closed:
		// server observed the proactive close
	case <-time.After(2 * time.Second):
		t.Fatal("expected the server to observe the connection closing")
	}

	// no reconnect happens without a new credential
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateDisconnected, cm.State(), "expected no reconnect after clearing")
}

func TestConnManager_SendChatMessage(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		cm := NewConnManager("ws://localhost/ws", testutil.TestLogger(t))
		assert.Error(t, cm.SendChatMessage(""), "expected an empty message to be rejected")
	})

	t.Run("not connected", func(t *testing.T) {
		cm := NewConnManager("ws://localhost/ws", testutil.TestLogger(t))
		assert.Error(t, cm.SendChatMessage("hello"), "expected send to fail without a connection")
	})

	t.Run("sends a chat frame", func(t *testing.T) {
		frames := make(chan []byte, 1)
		_, wsUrl := wsTestServer(t, func(conn *websocket.Conn, r *http.Request) {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- raw
		})

		cm := NewConnManager(wsUrl, testutil.TestLogger(t))
		defer cm.Close()

		assert.NoError(t, cm.SetCredential("test-token"), "expected SetCredential to accept the token")
		assert.Eventually(t, func() bool {
			return cm.State() == StateConnected
		}, 2*time.Second, 10*time.Millisecond, "expected the manager to connect")

		assert.NoError(t, cm.SendChatMessage("hello"), "expected send to succeed while connected")

		select {
		case raw := <-frames:
			var ev server.ClientEvent
			assert.NoError(t, json.Unmarshal(raw, &ev), "failed to parse the chat frame")
			assert.Equal(t, server.EventSendMessage, ev.Event, "expected a sendMessage frame")
			assert.Equal(t, `"hello"`, string(ev.Data), "expected the text as a JSON string")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for the chat frame")
		}
	})
}

func TestConnManager_DispatchesEvents(t *testing.T) {
	_, wsUrl := wsTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		frame, err := json.Marshal(server.ServerEvent{
			Event:     server.EventNewTask,
			Data:      server.TaskAssigned{Title: "Prepare audit files", CreatorName: "alice"},
			Timestamp: server.Now(),
		})
		if err != nil {
			t.Errorf("failed to marshal frame: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Errorf("failed to write frame: %v", err)
		}
		conn.ReadMessage()
	})

	cm := NewConnManager(wsUrl, testutil.TestLogger(t))
	defer cm.Close()

	payloads := make(chan server.TaskAssigned, 1)
	cm.Handle(server.EventNewTask, func(data json.RawMessage) {
		var p server.TaskAssigned
		if err := json.Unmarshal(data, &p); err != nil {
			t.Errorf("failed to parse payload: %v", err)
			return
		}
		payloads <- p
	})

	assert.NoError(t, cm.SetCredential("test-token"), "expected SetCredential to accept the token")

	select {
	case p := <-payloads:
		assert.Equal(t, "Prepare audit files", p.Title, "expected the task title")
		assert.Equal(t, "alice", p.CreatorName, "expected the creator name")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the event to be dispatched")
	}
}
