package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// fileChangedEvent is pushed to every overlay client when a new audio file
// has been written and is ready to play.
type fileChangedEvent struct {
	Event string `json:"event"`
	File  string `json:"file"`
}

// Hub tracks connected overlay WebSocket clients and fans events out to
// them. Clients never send anything meaningful; the read loop exists only
// to notice disconnects.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The overlay is a local browser source; origin checks add nothing here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// HandleWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	slog.Debug("overlay client connected", slog.Int("clients", n))

	go h.readLoop(conn)
}

// readLoop discards inbound frames and unregisters the connection when the
// peer closes or errors.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// NotifyFileChanged broadcasts a file-changed event to every connected
// client. Writes that fail drop the client; the read loop cleans it up.
func (h *Hub) NotifyFileChanged(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(fileChangedEvent{Event: "file_changed", File: name}); err != nil {
			slog.Debug("overlay push failed", slog.Any("err", err))
			_ = conn.Close()
			delete(h.conns, conn)
		}
	}
}

// ClientCount reports how many overlay clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
