package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Channel is the send side of one realtime connection.
type Channel interface {
	Send(msg []byte) error
	Close() error
}

// Conn adapts a gorilla connection to Channel. gorilla allows one concurrent writer,
// so writes are serialized.
type Conn struct {
	ws        *websocket.Conn
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an upgraded connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes one text frame.
func (c *Conn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

// Close sends a close frame and closes the socket. Only the first call has effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// Read reads the next client frame.
func (c *Conn) Read() ([]byte, error) {
	return ReadMessage(c.ws)
}
