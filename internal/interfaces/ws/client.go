package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is one subscriber connection, optionally scoped to a tenant.
// Untargeted connections receive nothing tenant-specific.
type Client struct {
	tenantID string
	hub      *Hub
	conn     *websocket.Conn
	send     chan *Frame
	mu       sync.Mutex
	closed   bool
	log      waLog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, tenantID string, log waLog.Logger) *Client {
	return &Client{
		tenantID: tenantID,
		hub:      hub,
		conn:     conn,
		send:     make(chan *Frame, 64),
		log:      log,
	}
}

// TenantID returns the tenant scope read from the handshake, or ""
// for untargeted connections.
func (c *Client) TenantID() string {
	return c.tenantID
}

// Deliver queues a frame for this subscriber only. Used to replay
// cached state on join. The hub may have dropped the subscriber
// already; a delivery after that is discarded.
func (c *Client) Deliver(frame *Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.log.Warnf("Subscriber send channel full, dropping %s", frame.Event)
	}
}

// closeSend closes the send channel exactly once. Called by the hub
// when the subscriber is dropped; Deliver observes the flag instead of
// racing the close.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump drains the connection until the peer goes away. Subscribers
// only listen; inbound payloads are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

// WritePump pumps frames from the hub to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(frame)
			if err != nil {
				c.log.Errorf("Failed to marshal frame: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Errorf("Failed to write frame: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
