package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PPGate/logger"
)

// Client is one live connection on this gateway node. A user may hold
// several clients at once (multi-device); anonymous clients have an
// empty UserID. RoomID is set at accept time by the room endpoint and
// never changes afterwards.
type Client struct {
	ConnID string
	UserID string
	RoomID string

	WS   *websocket.Conn
	Send chan []byte // outbound queue, drained by a single writer goroutine

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client around an upgraded websocket connection.
func NewClient(connID, userID, roomID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		RoomID: roomID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

// Deliver enqueues a payload without blocking. It returns false when
// the client is shut down or its queue is full; callers treat that as
// a per-recipient failure, never as an abort of the whole fan-out.
func (c *Client) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Shutdown closes the outbound queue exactly once. The write pump
// observes the closed queue, sends the close frame, and releases the
// underlying socket.
func (c *Client) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// WritePump is the single writer for the connection. It drains Send,
// emits control pings on pingInterval, and invokes onTick alongside
// each ping (presence renewal hangs off it). gorilla/websocket allows
// only one concurrent writer, so nothing else may touch WS for writes.
func (c *Client) WritePump(pingInterval, writeWait time.Duration, onTick func()) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				// queue closed by teardown; say goodbye properly
				_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.WS.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[WS] write err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}

		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(writeWait)); err != nil {
				logger.Infof("[WS] ping err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}
			if onTick != nil {
				onTick()
			}
		}
	}
}
