package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-marketplace-api/logging"
	"food-marketplace-api/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversOnlyToParties(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logging.Discard())
	go hub.Run(ctx)

	callers := map[string]models.Caller{
		"alice": {UserID: 1, Role: models.RoleCustomer},
		"bob":   {UserID: 2, Role: models.RoleCustomer},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, callers[r.URL.Query().Get("as")])
	}))
	defer srv.Close()

	dial := func(name string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?as=" + name
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	alice := dial("alice")
	bob := dial("bob")

	require.Eventually(t, func() bool { return hub.ClientCount(ctx) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, OrderEvent{Type: OrderStatusChanged, OrderID: 10, CustomerID: 1, NewStatus: models.StatusPreparing}))
	require.NoError(t, hub.Publish(ctx, OrderEvent{Type: OrderStatusChanged, OrderID: 11, CustomerID: 2, NewStatus: models.StatusOnWay}))

	read := func(conn *websocket.Conn) OrderEvent {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev OrderEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	assert.Equal(t, uint(10), read(alice).OrderID)
	assert.Equal(t, uint(11), read(bob).OrderID)
}
