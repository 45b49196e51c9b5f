package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestClient(t *testing.T, hub *Hub, userID uint) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		NewClient(hub, conn, userID).Run()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_SessionTickDeliveredToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conn := dialTestClient(t, hub, 100)

	// Дожидаемся регистрации клиента в hub
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	hub.SessionTick(100, 1, 59)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(message, &event))
	assert.Equal(t, EventSessionTick, event.Type)

	data := event.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["attempt_id"])
	assert.Equal(t, float64(59), data["remaining_sec"])
}

func TestHub_EventsAreAddressedByUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conn := dialTestClient(t, hub, 100)

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Событие другого пользователя не доходит до этого соединения
	hub.SessionSubmitted(200, 7, false)
	hub.SessionSubmitted(100, 1, true)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(message, &event))
	assert.Equal(t, EventSessionSubmitted, event.Type)

	data := event.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["attempt_id"])
	assert.Equal(t, true, data["time_up"])
}
