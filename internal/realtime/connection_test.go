package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testUpgrader = websocket.Upgrader{}

// dialTestConnection upgrades a real websocket against an httptest server and
// wraps the client side in a Connection. The server side keeps reading so
// pings and close frames are consumed.
func dialTestConnection(t *testing.T, userID primitive.ObjectID) *Connection {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go func() {
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return NewConnection(userID, ws)
}

func TestSendAfterClose(t *testing.T) {
	conn := dialTestConnection(t, primitive.NewObjectID())
	conn.Start()

	require.NoError(t, conn.Send([]byte(`{"type":"system"}`)))

	conn.Close(websocket.CloseNormalClosure, "done")

	// Every send after close must fail cleanly, including well past the
	// buffer size, with nothing draining the channel anymore.
	for i := 0; i < 2*cap(conn.send); i++ {
		assert.Error(t, conn.Send([]byte("late frame")))
	}

	// Close is idempotent.
	conn.Close(websocket.CloseNormalClosure, "again")
	assert.Error(t, conn.Send([]byte("after second close")))
}

func TestRegistryPushAfterSessionReplaced(t *testing.T) {
	registry := NewRegistry()
	userID := primitive.NewObjectID()

	first := dialTestConnection(t, userID)
	registry.Attach(first)
	require.True(t, registry.IsOnline(userID))

	// Reconnect: the new session replaces the old one, which gets closed.
	second := dialTestConnection(t, userID)
	registry.Attach(second)

	// The replaced connection is closed; pushing to the user must keep
	// working through the new session, and a stray write to the old one must
	// fail without taking the process down.
	assert.Error(t, first.Send([]byte("stale")))
	assert.True(t, registry.IsOnline(userID))
	assert.True(t, registry.Push(userID, map[string]string{"type": "system"}))

	registry.Detach(second)
	second.Close(websocket.CloseNormalClosure, "done")
	assert.False(t, registry.IsOnline(userID))
	assert.False(t, registry.Push(userID, map[string]string{"type": "system"}))
}

func TestRegistryPushOffline(t *testing.T) {
	registry := NewRegistry()
	userID := primitive.NewObjectID()

	assert.False(t, registry.IsOnline(userID))
	assert.False(t, registry.Push(userID, map[string]string{"type": "system"}))
}
