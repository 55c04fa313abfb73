package websocket

import (
	"net/http"
	"time"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// maxMessageSize bounds a single inbound frame.
	maxMessageSize = 8 << 20
	// pongWait is how long a client may stay silent, pongs included, before
	// it is considered dead.
	pongWait = 60 * time.Second
	// pingPeriod is how often clients are pinged. Must be less than pongWait.
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The seed server is a local tool; allow every origin.
	},
}

// Server accepts websocket connections and feeds their frames to the
// dispatcher.
type Server struct {
	hub        *Hub
	dispatcher *Dispatcher

	pingPeriod time.Duration
	pongWait   time.Duration
}

// NewServer wires a transport to the hub and dispatcher.
func NewServer(hub *Hub, dispatcher *Dispatcher) *Server {
	return &Server{
		hub:        hub,
		dispatcher: dispatcher,
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// IsUpgrade reports whether the request asks for a websocket upgrade.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// HandleWebSocket is the gin adapter for ServeHTTP.
func (s *Server) HandleWebSocket(c *gin.Context) {
	s.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("[WebSocket] Upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	client := NewClient(conn)
	s.hub.Register(client)
	logger.Infof("[WebSocket] Client connected: %s (%s)", client.ID(), r.RemoteAddr)

	done := make(chan struct{})
	go s.keepalive(client, done)

	defer func() {
		close(done)
		client.MarkClosed()
		s.hub.Remove(client)
		_ = conn.Close()
		logger.Infof("[WebSocket] Client disconnected: %s", client.ID())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && client.IsOpen() {
				logger.Warnf("[WebSocket] Read error from %s: %v", client.ID(), err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
		s.dispatcher.Dispatch(client, data)
	}
}

func (s *Server) keepalive(client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				logger.Debugf("[WebSocket] Ping to %s failed: %v", client.ID(), err)
				return
			}
		}
	}
}
