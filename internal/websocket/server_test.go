package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bhandras/zenith/internal/seed"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, doc seed.Record) (*httptest.Server, *Hub, *Dispatcher) {
	t.Helper()
	d, hub := newTestDispatcher(t, doc, &memStore{})
	srv := httptest.NewServer(NewServer(hub, d))
	t.Cleanup(srv.Close)
	return srv, hub, d
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestServerRoundTrip(t *testing.T) {
	srv, hub, _ := startTestServer(t, seed.Record{"runs": map[string]any{"total": json.Number("3")}})
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"ping"}`)))
	require.Equal(t, "pong", readJSON(t, conn)["cmd"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("  LOAD_TWIN_HISTORY ")))
	history := readJSON(t, conn)
	require.Equal(t, "twin_history", history["cmd"])
	require.Equal(t, float64(3), history["total_runs"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`dance`)))
	unknown := readJSON(t, conn)
	require.Equal(t, "unknown", unknown["cmd"])
	require.Equal(t, "dance", unknown["received"])
}

func TestServerFansChangesOutToOtherClients(t *testing.T) {
	srv, hub, d := startTestServer(t, seed.Record{})
	sender := dial(t, srv)
	watcher := dial(t, srv)
	waitForClients(t, hub, 2)

	require.NoError(t, sender.WriteJSON(map[string]any{
		"command": "update_seed",
		"data":    map[string]any{"tunnel": map[string]any{"domain": "example.test"}},
	}))

	reply := readJSON(t, sender)
	require.Equal(t, "seed_updated", reply["cmd"])

	change := readJSON(t, watcher)
	require.Equal(t, "seed_changed", change["cmd"])
	require.Equal(t, map[string]any{"tunnel": map[string]any{"domain": "example.test"}}, change["patch"])

	require.Equal(t, "example.test", d.Snapshot().String("", "tunnel", "domain"))

	// The sender gets nothing beyond its reply.
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.Equal(t, "pong", readJSON(t, sender)["cmd"])
}

func TestServerRemovesClientOnDisconnect(t *testing.T) {
	srv, hub, _ := startTestServer(t, seed.Record{})
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	waitForClients(t, hub, 0)
	require.Equal(t, 0, hub.Broadcast([]byte(`{"cmd":"auto_save"}`)))
}

func TestServerBroadcastReachesOnlyOpenClients(t *testing.T) {
	srv, hub, _ := startTestServer(t, seed.Record{})
	stay := dial(t, srv)
	leave := dial(t, srv)
	waitForClients(t, hub, 2)

	leave.Close()
	waitForClients(t, hub, 1)

	require.Equal(t, 1, hub.Broadcast(map[string]string{"cmd": "auto_save"}))
	require.Equal(t, "auto_save", readJSON(t, stay)["cmd"])
}

func TestServerDropsClientsThatStopAnsweringPings(t *testing.T) {
	d, hub := newTestDispatcher(t, seed.Record{}, &memStore{})
	ws := NewServer(hub, d)
	ws.pingPeriod = 20 * time.Millisecond
	ws.pongWait = 150 * time.Millisecond
	srv := httptest.NewServer(ws)
	t.Cleanup(srv.Close)

	dial(t, srv) // never reads, so never answers pings
	alive := dial(t, srv)
	waitForClients(t, hub, 2)

	// Reading lets gorilla answer pings with pongs.
	go func() {
		for {
			if _, _, err := alive.ReadMessage(); err != nil {
				return
			}
		}
	}()

	waitForClients(t, hub, 1)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 1, hub.Count())
}
