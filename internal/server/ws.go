package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// GridHandler pushes grid telemetry for every rendered frame over a
// WebSocket.
type GridHandler struct {
	hub     *Hub
	clients map[string]*websocket.Conn
	mu      sync.RWMutex
}

// NewGridHandler creates a new GridHandler reading from hub.
func NewGridHandler(hub *Hub) *GridHandler {
	return &GridHandler{
		hub:     hub,
		clients: make(map[string]*websocket.Conn),
	}
}

// Clients returns the number of connected clients.
func (h *GridHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *GridHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	logger := log.With("client", id)

	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	logger.Debug("grid client connected", "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
		logger.Debug("grid client gone")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the close; clients have nothing to say.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var seq uint64
	for {
		frame, err := h.hub.Next(ctx, seq)
		if err != nil {
			return
		}
		seq = frame.Seq

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(frame.Telemetry()); err != nil {
			logger.Debug("grid write failed", "err", err)
			return
		}
	}
}
