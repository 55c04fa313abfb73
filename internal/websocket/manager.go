package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/gorilla/websocket"
)

// Hub tracks live connections and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Remove drops a client. Closed clients are also skipped at send time, so
// Remove only keeps the map from growing.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID())
}

// Count returns the number of open clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.clients {
		if c.IsOpen() {
			n++
		}
	}
	return n
}

// snapshot returns a copy of the client list to avoid holding the lock while
// writing to sockets.
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		result = append(result, c)
	}
	return result
}

// Unicast sends msg to a single client.
func (h *Hub) Unicast(c *Client, msg any) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	if err := c.Send(data); err != nil {
		h.dropOnError(c, err)
		return err
	}
	return nil
}

// Broadcast sends msg to every open client and returns how many received it.
// Per-client failures are logged and never reach the caller.
func (h *Hub) Broadcast(msg any) int {
	return h.BroadcastExcept(msg, "")
}

// BroadcastExcept is Broadcast skipping the client with id skipID.
func (h *Hub) BroadcastExcept(msg any, skipID string) int {
	data, err := encode(msg)
	if err != nil {
		logger.Errorf("[WebSocket] Failed to marshal broadcast: %v", err)
		return 0
	}

	sent := 0
	for _, c := range h.snapshot() {
		if skipID != "" && c.ID() == skipID {
			continue
		}
		if !c.IsOpen() {
			continue
		}
		if err := c.Send(data); err != nil {
			h.dropOnError(c, err)
			continue
		}
		sent++
	}
	return sent
}

// CloseAll sends msg to every open client and then closes it. Clients are
// handled in parallel and every write is bounded by ctx; when ctx expires the
// clients still in progress are aborted. It returns the number of clients
// that were open.
func (h *Hub) CloseAll(ctx context.Context, msg any) int {
	data, err := encode(msg)
	if err != nil {
		logger.Errorf("[WebSocket] Failed to marshal shutdown notice: %v", err)
		data = nil
	}

	var open []*Client
	for _, c := range h.snapshot() {
		if c.IsOpen() {
			open = append(open, c)
		}
	}

	var wg sync.WaitGroup
	for _, c := range open {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if data != nil {
				if err := c.SendContext(ctx, data); err != nil {
					logger.Warnf("[WebSocket] Failed to notify client %s: %v", c.ID(), err)
				}
			}
			if err := c.CloseContext(ctx, websocket.CloseGoingAway, "server shutting down"); err != nil {
				logger.Debugf("[WebSocket] Close client %s: %v", c.ID(), err)
			}
			h.Remove(c)
		}(c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warnf("[WebSocket] Shutdown notice timed out, aborting remaining clients")
		for _, c := range open {
			_ = c.Abort()
			h.Remove(c)
		}
	}
	return len(open)
}

func (h *Hub) dropOnError(c *Client, err error) {
	logger.Warnf("[WebSocket] Send to client %s failed: %v", c.ID(), err)
	if c.MarkClosed() {
		h.Remove(c)
	}
}

func encode(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case []byte:
		return m, nil
	case json.RawMessage:
		return m, nil
	default:
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("marshal message: %w", err)
		}
		return data, nil
	}
}
