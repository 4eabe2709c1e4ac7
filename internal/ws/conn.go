package ws

import (
	"context"
	"sync"
	"time"

	"chatsync/internal/constants"

	"github.com/gorilla/websocket"
)

// Frame is a client-to-server control message on the socket: joining and
// leaving rooms. Message sends go over the HTTP send API, not the socket.
type Frame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// Conn wraps a WebSocket connection with serialized writes so broadcast
// fan-out goroutines and control responses do not interleave frames.
// It satisfies the registry's Sender interface.
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes v as a JSON message. Errors indicate the connection is no
// longer usable; callers treat them as delivery failures, not request
// failures.
func (c *Conn) Send(ctx context.Context, v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(constants.DefaultWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// ReadFrame blocks until the next control frame arrives.
func (c *Conn) ReadFrame() (*Frame, error) {
	var frame Frame
	if err := c.ws.ReadJSON(&frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.ws.Close()
}
