package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	controls []int
	closed   bool
	writeErr error
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not readable")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, messageType)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// stuckConn is a peer that never drains its socket: every data write blocks
// until the connection is closed.
type stuckConn struct {
	fakeConn
	once    sync.Once
	release chan struct{}
}

func newStuckConn() *stuckConn {
	return &stuckConn{release: make(chan struct{})}
}

func (s *stuckConn) WriteMessage(int, []byte) error {
	<-s.release
	return errors.New("use of closed network connection")
}

func (s *stuckConn) Close() error {
	s.once.Do(func() { close(s.release) })
	return s.fakeConn.Close()
}

func (f *fakeConn) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	for i, w := range f.written {
		out[i] = string(w)
	}
	return out
}

func TestHubBroadcastSkipsClosedClients(t *testing.T) {
	hub := NewHub()
	openConn, closedConn := &fakeConn{}, &fakeConn{}
	open, closed := NewClient(openConn), NewClient(closedConn)
	hub.Register(open)
	hub.Register(closed)
	closed.MarkClosed()

	sent := hub.Broadcast(map[string]string{"cmd": "auto_save"})

	require.Equal(t, 1, sent)
	require.Equal(t, []string{`{"cmd":"auto_save"}`}, openConn.Written())
	require.Empty(t, closedConn.Written())
	require.Equal(t, 1, hub.Count())
}

func TestHubBroadcastSurvivesSendFailure(t *testing.T) {
	hub := NewHub()
	bad := NewClient(&fakeConn{writeErr: errors.New("broken pipe")})
	goodConn := &fakeConn{}
	good := NewClient(goodConn)
	hub.Register(bad)
	hub.Register(good)

	sent := hub.Broadcast([]byte(`{"cmd":"x"}`))

	require.Equal(t, 1, sent)
	require.False(t, bad.IsOpen())
	require.Len(t, goodConn.Written(), 1)

	// The failed client is gone from later broadcasts.
	require.Equal(t, 1, hub.Broadcast([]byte(`{"cmd":"y"}`)))
}

func TestHubBroadcastExceptSkipsSender(t *testing.T) {
	hub := NewHub()
	senderConn, otherConn := &fakeConn{}, &fakeConn{}
	sender, other := NewClient(senderConn), NewClient(otherConn)
	hub.Register(sender)
	hub.Register(other)

	require.Equal(t, 1, hub.BroadcastExcept([]byte(`{}`), sender.ID()))
	require.Empty(t, senderConn.Written())
	require.Len(t, otherConn.Written(), 1)
}

func TestHubUnicast(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	c := NewClient(conn)
	hub.Register(c)

	require.NoError(t, hub.Unicast(c, map[string]int{"n": 1}))
	require.Equal(t, []string{`{"n":1}`}, conn.Written())

	c.MarkClosed()
	require.ErrorIs(t, hub.Unicast(c, map[string]int{"n": 2}), ErrClientClosed)
}

func TestHubCloseAll(t *testing.T) {
	hub := NewHub()
	conns := []*fakeConn{{}, {}}
	for _, conn := range conns {
		hub.Register(NewClient(conn))
	}
	gone := NewClient(&fakeConn{})
	hub.Register(gone)
	gone.MarkClosed()

	n := hub.CloseAll(context.Background(), []byte(`{"cmd":"shutdown"}`))

	require.Equal(t, 2, n)
	for _, conn := range conns {
		require.Equal(t, []string{`{"cmd":"shutdown"}`}, conn.Written())
		require.True(t, conn.closed)
		require.Equal(t, []int{websocket.CloseMessage}, conn.controls)
	}
	require.Equal(t, 0, hub.Count())
}

func TestClientCloseIsIdempotent(t *testing.T) {
	conn := &fakeConn{}
	c := NewClient(conn)

	require.NoError(t, c.Close(websocket.CloseNormalClosure, ""))
	require.NoError(t, c.Close(websocket.CloseNormalClosure, ""))
	require.Len(t, conn.controls, 1)
	require.ErrorIs(t, c.Send([]byte("x")), ErrClientClosed)
}

func TestHubCloseAllIsBoundedByContext(t *testing.T) {
	hub := NewHub()
	stuck := newStuckConn()
	healthy := &fakeConn{}
	for _, conn := range []Conn{newStuckConn(), stuck, healthy} {
		hub.Register(NewClient(conn))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	n := hub.CloseAll(ctx, []byte(`{"cmd":"shutdown"}`))

	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 3, n)
	require.Equal(t, 0, hub.Count())
	require.True(t, stuck.IsClosed())
	require.Eventually(t, healthy.IsClosed, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{`{"cmd":"shutdown"}`}, healthy.Written())
}
