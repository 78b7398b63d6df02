package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP layer handles CORS; the upgrade itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection. Its ID is the connectionId the
// matchmaking queue and duel rooms key on.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn

	// sendMu guards send against the unregister/broadcast race: enqueue can
	// run on any goroutine after the hub lock is released, so the channel is
	// only closed behind the same mutex that enqueue writes under.
	sendMu sync.Mutex
	closed bool
	send   chan []byte
}

// ServeWS upgrades an HTTP request and runs the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: Websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 32),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN: Websocket read error for connection %s: %v", c.ID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("WARN: Malformed event from connection %s: %v", c.ID, err)
			continue
		}
		c.hub.dispatch(c, event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// enqueue drops the message if the client's buffer is full or the
// connection is already gone; delivery over the realtime channel is
// at-most-once.
func (c *Client) enqueue(message []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		log.Printf("WARN: Dropping message for slow connection %s", c.ID)
	}
}

// closeSend shuts the outbound channel exactly once, stopping writePump.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
