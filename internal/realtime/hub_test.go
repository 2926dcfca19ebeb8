package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

func members(uids ...string) map[string]model.LobbyMember {
	m := make(map[string]model.LobbyMember, len(uids))
	for i, uid := range uids {
		m[uid] = model.LobbyMember{Username: uid, JoinedAt: int64(i)}
	}
	return m
}

func newServer(t *testing.T, hub *Hub, code string, initial *model.Lobby) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		hub.Serve(r.Context(), conn, code, "ana", initial)
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http://", "ws://", 1), nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func waitSubscribers(t *testing.T, hub *Hub, code string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(code) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SnapshotAndUpdates(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	initial := &model.Lobby{RoomCode: "ABC123", Status: model.StatusWaiting, Members: members("ana")}
	srv := newServer(t, hub, "ABC123", initial)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	ev := readEvent(t, conn)
	assert.Equal(t, EventLobby, ev.Type)
	require.NotNil(t, ev.Lobby)
	assert.Equal(t, model.StatusWaiting, ev.Lobby.Status)

	waitSubscribers(t, hub, "ABC123", 1)
	hub.PublishLobby(&model.Lobby{RoomCode: "ABC123", Status: model.StatusSwiping, Members: members("ana", "bo")})
	hub.PublishLobby(&model.Lobby{RoomCode: "OTHER1", Status: model.StatusMatched, Members: members("ana")})

	ev = readEvent(t, conn)
	assert.Equal(t, model.StatusSwiping, ev.Lobby.Status)

	conn.Close()
	waitSubscribers(t, hub, "ABC123", 0)
}

func TestHub_DeletedClosesSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	srv := newServer(t, hub, "ZZZ999", nil)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitSubscribers(t, hub, "ZZZ999", 1)

	hub.PublishDeleted("ZZZ999")

	ev := readEvent(t, conn)
	assert.Equal(t, EventDeleted, ev.Type)
	assert.Equal(t, "ZZZ999", ev.Code)
	assert.Nil(t, ev.Lobby)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, hub.Subscribers("ZZZ999"))
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	s := hub.subscribe("SLOW01", "ana")

	for i := 0; i < sendBuffer+1; i++ {
		hub.PublishLobby(&model.Lobby{RoomCode: "SLOW01", CurrentPage: i, Members: members("ana")})
	}

	assert.Equal(t, 0, hub.Subscribers("SLOW01"))
	n := 0
	for range s.send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestHub_ServeStopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(ctx, conn, "CTX000", "ana", nil)
		close(served)
	}))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitSubscribers(t, hub, "CTX000", 1)

	cancel()
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, 0, hub.Subscribers("CTX000"))
}

func TestHub_DisconnectsFormerMember(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	srv := newServer(t, hub, "LEFT01", nil)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitSubscribers(t, hub, "LEFT01", 1)

	hub.PublishLobby(&model.Lobby{RoomCode: "LEFT01", Status: model.StatusWaiting, Members: members("bo")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, hub.Subscribers("LEFT01"))
}
