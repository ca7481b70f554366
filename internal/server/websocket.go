package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Snapshots queued per client before it is considered too slow
	sendBuffer = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// client is one WebSocket subscriber
type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// hub tracks WebSocket clients and fans snapshots out to them
type hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// serveWS upgrades the request and sends the current snapshot, then every
// broadcast, until the client goes away
func (h *hub) serveWS(current func() Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written an HTTP error
			h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
			return
		}

		c := &client{conn: conn, send: make(chan []byte, sendBuffer), addr: r.RemoteAddr}
		if data, err := json.Marshal(current()); err == nil {
			c.send <- data
		}

		if !h.add(c) {
			_ = conn.Close()
			return
		}

		go func() {
			defer h.wg.Done()
			h.writePump(c)
		}()
		go func() {
			defer h.wg.Done()
			h.readPump(c)
		}()
	}
}

// add registers c and reserves its two pump goroutines
func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.logger.Info("WebSocket client connected",
		zap.String("remote_addr", c.addr),
		zap.Int("clients", len(h.clients)),
	)
	return true
}

// remove drops c and closes its send channel. Safe to call twice.
func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info("WebSocket client disconnected",
		zap.String("remote_addr", c.addr),
		zap.Int("clients", len(h.clients)),
	)
}

// readPump discards client messages and keeps the pong deadline fresh.
// It returns when the client disconnects.
func (h *hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("remote_addr", c.addr), zap.Error(err))
			}
			return
		}
	}
}

func (h *hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// broadcast queues snap for every client. Clients whose queue is full are
// dropped rather than blocking the scan loop.
func (h *hub) broadcast(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("Failed to encode snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping slow WebSocket client", zap.String("remote_addr", c.addr))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// closeAll disconnects every client and rejects new ones
func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// count returns the number of connected clients
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
