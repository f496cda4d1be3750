package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is handled by the CORS middleware; the upgrade
	// itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one websocket connection belonging to one user. A user may hold
// several connections (multiple tabs).
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

type message struct {
	userID  string
	payload []byte
}

// Hub tracks connections per user id and delivers payloads to whichever
// connections that user currently has. All map access happens on the Run
// goroutine, so there is no lock.
type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	deliver    chan message
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		deliver:    make(chan message),
	}
}

// Run processes registrations and deliveries until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			conns := h.clients[c.userID]
			if conns == nil {
				conns = make(map[*client]bool)
				h.clients[c.userID] = conns
			}
			conns[c] = true
		case c := <-h.unregister:
			if conns, ok := h.clients[c.userID]; ok {
				if conns[c] {
					delete(conns, c)
					close(c.send)
					if len(conns) == 0 {
						delete(h.clients, c.userID)
					}
				}
			}
		case m := <-h.deliver:
			for c := range h.clients[m.userID] {
				select {
				case c.send <- m.payload:
				default:
					// Slow consumer; drop the connection rather than block the hub.
					delete(h.clients[m.userID], c)
					close(c.send)
				}
			}
		}
	}
}

// Send queues a payload for every live connection of userID. Offline users
// are silently skipped; the notification row is the durable copy.
func (h *Hub) Send(userID string, payload []byte) {
	h.deliver <- message{userID: userID, payload: payload}
}

// ServeWs upgrades the request to a websocket and attaches it to the hub.
// The caller has already authenticated userID.
func ServeWs(h *Hub, userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	c := &client{userID: userID, conn: conn, send: make(chan []byte, 16)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// readPump discards inbound frames; the socket is push-only. It exists to
// notice the close handshake and keep pong deadlines fresh.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
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
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
