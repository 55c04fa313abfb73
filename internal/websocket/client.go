package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write so one stuck client cannot hold up a
// broadcast indefinitely.
const writeWait = 10 * time.Second

// ErrClientClosed is returned when sending to a closed client.
var ErrClientClosed = errors.New("client closed")

// Conn is the subset of *websocket.Conn used by Client.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one live websocket connection.
type Client struct {
	id   string
	conn Conn

	// gorilla/websocket supports one concurrent writer per connection.
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient wraps a connection with a fresh client id.
func NewClient(conn Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
	}
}

// ID returns the client id.
func (c *Client) ID() string { return c.id }

// IsOpen reports whether the client can still be written to.
func (c *Client) IsOpen() bool { return !c.closed.Load() }

// Send writes one text frame.
func (c *Client) Send(data []byte) error {
	return c.sendBy(data, time.Now().Add(writeWait))
}

// SendContext is Send with the write deadline capped by ctx.
func (c *Client) SendContext(ctx context.Context, data []byte) error {
	return c.sendBy(data, capDeadline(ctx, time.Now().Add(writeWait)))
}

func (c *Client) sendBy(data []byte, deadline time.Time) error {
	if !c.IsOpen() {
		return ErrClientClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a keepalive ping control frame.
func (c *Client) Ping() error {
	if !c.IsOpen() {
		return ErrClientClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// MarkClosed flips the client to the closed state without touching the
// underlying connection. It reports whether this call did the transition.
func (c *Client) MarkClosed() bool {
	return c.closed.CompareAndSwap(false, true)
}

// Close sends a close frame with the given code and closes the connection.
// It is safe to call more than once.
func (c *Client) Close(code int, reason string) error {
	return c.CloseContext(context.Background(), code, reason)
}

// CloseContext is Close with the close frame deadline capped by ctx.
func (c *Client) CloseContext(ctx context.Context, code int, reason string) error {
	if !c.MarkClosed() {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	deadline := capDeadline(ctx, time.Now().Add(time.Second))
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return c.conn.Close()
}

// Abort closes the connection without the write lock, unblocking any write
// in progress. No close frame is sent.
func (c *Client) Abort() error {
	c.MarkClosed()
	return c.conn.Close()
}

func capDeadline(ctx context.Context, d time.Time) time.Time {
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}
