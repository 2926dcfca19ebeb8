// Package realtime pushes lobby snapshots to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BaGreal2/cinematch-server/internal/model"
)

const (
	EventLobby   = "lobby"
	EventDeleted = "deleted"

	sendBuffer = 16
)

// Event is the single message shape sent to subscribers.
type Event struct {
	Type  string       `json:"type"`
	Code  string       `json:"code"`
	Lobby *model.Lobby `json:"lobby,omitempty"`
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type subscriber struct {
	id   string
	uid  string
	send chan []byte
}

// Hub keeps subscribers per room code. A subscriber that falls sendBuffer
// events behind is dropped, and so is one whose user left the lobby.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[string]*subscriber
	log  *zap.Logger

	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:         make(map[string]map[string]*subscriber),
		log:          log,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}

// PublishLobby sends l to member subscribers and disconnects the rest
// without it.
func (h *Hub) PublishLobby(l *model.Lobby) {
	h.broadcast(l.RoomCode, Event{Type: EventLobby, Code: l.RoomCode, Lobby: l},
		func(s *subscriber) bool { return l.IsMember(s.uid) }, false)
}

// PublishDeleted notifies subscribers and disconnects them.
func (h *Hub) PublishDeleted(code string) {
	h.broadcast(code, Event{Type: EventDeleted, Code: code}, nil, true)
}

// Subscribers reports how many clients follow code.
func (h *Hub) Subscribers(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[code])
}

// broadcast sends ev to every subscriber of code that passes allow (nil
// allows all). Subscribers that fail allow are removed.
func (h *Hub) broadcast(code string, ev Event, allow func(*subscriber) bool, closeAll bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode event", zap.String("code", code), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs[code] {
		if allow != nil && !allow(s) {
			h.log.Debug("dropping former member", zap.String("code", code), zap.String("user", s.uid))
			h.removeLocked(code, id)
			continue
		}
		select {
		case s.send <- data:
		default:
			h.log.Warn("dropping slow subscriber", zap.String("code", code), zap.String("subscriber", id))
			h.removeLocked(code, id)
			continue
		}
		if closeAll {
			h.removeLocked(code, id)
		}
	}
}

func (h *Hub) subscribe(code, uid string) *subscriber {
	s := &subscriber{id: uuid.NewString(), uid: uid, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[code] == nil {
		h.subs[code] = make(map[string]*subscriber)
	}
	h.subs[code][s.id] = s
	return s
}

func (h *Hub) unsubscribe(code, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(code, id)
}

func (h *Hub) removeLocked(code, id string) {
	set := h.subs[code]
	s, ok := set[id]
	if !ok {
		return
	}
	close(s.send)
	delete(set, id)
	if len(set) == 0 {
		delete(h.subs, code)
	}
}

// Serve streams events for code to uid's conn until the client goes away, uid
// leaves, the lobby is deleted or ctx ends. initial, when set, is sent first.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, code, uid string, initial *model.Lobby) {
	s := h.subscribe(code, uid)
	log := h.log.With(zap.String("code", code), zap.String("user", uid), zap.String("subscriber", s.id))
	log.Debug("subscriber connected")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		h.readLoop(conn)
	}()

	defer func() {
		h.unsubscribe(code, s.id)
		conn.Close()
		<-readDone
		log.Debug("subscriber disconnected")
	}()

	if initial != nil {
		data, err := json.Marshal(Event{Type: EventLobby, Code: code, Lobby: initial})
		if err == nil {
			err = h.write(conn, websocket.TextMessage, data)
		}
		if err != nil {
			log.Warn("send snapshot", zap.Error(err))
			return
		}
	}

	ticker := time.NewTicker(h.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-readDone:
			return
		case data, ok := <-s.send:
			if !ok {
				h.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := h.write(conn, websocket.TextMessage, data); err != nil {
				log.Warn("write event", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				log.Warn("ping", zap.Error(err))
				return
			}
		}
	}
}

// readLoop discards client messages; it only keeps deadlines fresh and
// notices disconnects.
func (h *Hub) readLoop(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
	}
}

func (h *Hub) write(conn *websocket.Conn, msgType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
	return conn.WriteMessage(msgType, data)
}
