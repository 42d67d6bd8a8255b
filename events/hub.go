package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"food-marketplace-api/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	caller models.Caller
	send   chan []byte
}

// Hub pushes order events to connected websocket clients. Each client only
// receives events for orders it is a party to.
type Hub struct {
	log        *logrus.Logger
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan OrderEvent
	count      chan chan int
	done       chan struct{}
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan OrderEvent, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop; it returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.WithFields(logrus.Fields{"user_id": c.caller.UserID, "role": c.caller.Role, "total": len(h.clients)}).
				Debug("ws: client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.WithError(err).Error("ws: marshal event")
				continue
			}
			for c := range h.clients {
				if !ev.VisibleTo(c.caller) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
				}
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Publish queues the event for delivery. It never blocks longer than ctx allows.
func (h *Hub) Publish(ctx context.Context, event OrderEvent) error {
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount asks the event loop how many clients are connected.
func (h *Hub) ClientCount(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	}
}

// ServeWS upgrades the request and subscribes the caller to its order events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, caller models.Caller) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws: upgrade failed")
		return
	}
	c := &client{hub: h, conn: conn, caller: caller, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only drains control frames; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("ws: unexpected close")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
