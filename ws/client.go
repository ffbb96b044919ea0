package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// Client is one authenticated socket connection. The user identity is fixed
// at handshake time for the connection's lifetime.
type Client struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	userID uint
	email  string

	// conversation rooms this connection joined; guarded by the hub mutex
	rooms map[uint]struct{}
}

func newClient(server *Server, conn *websocket.Conn, userID uint, email string) *Client {
	return &Client{
		server: server,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
		email:  email,
		rooms:  make(map[uint]struct{}),
	}
}

// emit queues an event for this connection only.
func (c *Client) emit(event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("ws: encoding %s event failed: %v", event, err)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) emitError(message string) {
	c.emit("error", errorPayload{Message: message})
}

func (c *Client) readPump() {
	defer func() {
		c.server.hub.removeClient(c)
		close(c.send)
		c.conn.Close()
		log.Printf("ws: user %d disconnected", c.userID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: user %d read error: %v", c.userID, err)
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.emitError("Invalid event payload")
			continue
		}

		c.server.dispatch(c, ev)
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
