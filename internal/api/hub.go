package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zjrosen/tokenwatt/internal/bridge"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/pubsub"
	"github.com/zjrosen/tokenwatt/internal/session"
)

// WSMessage is the envelope for all WebSocket messages sent to clients.
type WSMessage struct {
	Type      string          `json:"type"`
	Update    *session.Update `json:"update,omitempty"`
	Reply     *bridge.Reply   `json:"reply,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// TypeReply marks a WSMessage answering a bridge message from the client.
// Display updates carry the pubsub event type.
const TypeReply = "reply"

const (
	wsPingInterval = 30 * time.Second
	wsPongWait     = 60 * time.Second
	wsWriteWait    = 10 * time.Second
	wsReadLimit    = 16 * 1024 * 1024
	wsSendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: loopbackOrigin,
}

// loopbackOrigin admits clients that send no Origin (editor plugins, CLIs)
// and pages served from this machine. Other browser pages are refused.
func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected WebSocket clients. Each client receives display
// updates and may send bridge messages, answered on the same connection.
type Hub struct {
	dispatcher *bridge.Dispatcher

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a new Hub dispatching client messages to d.
func NewHub(d *bridge.Dispatcher) *Hub {
	return &Hub{
		dispatcher: d,
		clients:    make(map[*client]struct{}),
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades the connection and serves it until the client goes away.
// GET /v1/ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug(log.CatAPI, "WebSocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{conn: conn, send: make(chan []byte, wsSendBuffer)}
	events := h.broker.Subscribe(ctx)
	h.hub.register(c)
	defer h.hub.unregister(c)
	log.Debug(log.CatAPI, "WebSocket client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.hub.writePump(ctx, c, events)
	}()

	h.hub.readPump(ctx, c)
	cancel()
	<-done
	_ = conn.Close()
	log.Debug(log.CatAPI, "WebSocket client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writePump(ctx context.Context, c *client, events <-chan pubsub.Event[session.Update]) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	write := func(kind int, data []byte) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return c.conn.WriteMessage(kind, data) == nil
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			update := event.Payload
			msg, err := json.Marshal(WSMessage{Type: string(event.Type), Update: &update, Timestamp: event.Timestamp})
			if err != nil {
				continue
			}
			if !write(websocket.TextMessage, msg) {
				return
			}
		case msg := <-c.send:
			if !write(websocket.TextMessage, msg) {
				return
			}
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var reply bridge.Reply
		var msg bridge.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = bridge.Reply{Error: "parse error: " + err.Error()}
		} else {
			reply = h.dispatcher.Dispatch(ctx, msg)
		}

		out, err := json.Marshal(WSMessage{Type: TypeReply, Reply: &reply, Timestamp: time.Now()})
		if err != nil {
			continue
		}
		select {
		case c.send <- out:
		case <-ctx.Done():
			return
		}
	}
}
