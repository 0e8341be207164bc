package preview

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/keyforge/keyforge/internal/logging"
)

// reloadMessage is pushed to every connected client after a successful
// regeneration.
const reloadMessage = "reload"

// writeTimeout bounds one broadcast write per client.
const writeTimeout = 5 * time.Second

// Hub tracks live-reload websocket clients and broadcasts reload messages.
// The clients map is always accessed under the mutex.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     logging.Logger
}

// NewHub creates an empty hub.
func NewHub(log logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		log:     log.WithComponent("preview"),
	}
}

// Register adds a client connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

// Unregister removes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Broadcast pushes a reload message to every client. Dead connections are
// dropped from the hub.
func (h *Hub) Broadcast(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(writeCtx, websocket.MessageText, []byte(reloadMessage))
		cancel()

		if err != nil {
			h.log.Debug(ctx, "dropping dead preview client", "error", err.Error())
			h.Unregister(conn)
			conn.Close(websocket.StatusGoingAway, "write failed")
		}
	}
}

// Shutdown closes every client connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
