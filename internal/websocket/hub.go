package websocket

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/pscheid92/biomarkerpulse/internal/metrics"
)

var ErrHubStopped = errors.New("hub stopped")

var _ domain.Gateway = (*Hub)(nil)

// Hub tracks live connections and the rooms they have joined.
// It never calls back into the broadcaster, so the broadcaster may call
// Join and Leave while holding its own lock.
type Hub struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	clients map[string]*clientWriter
	rooms   map[string]map[string]*clientWriter
	stopped bool
}

func NewHub(clock clockwork.Clock) *Hub {
	return &Hub{
		clock:   clock,
		clients: make(map[string]*clientWriter),
		rooms:   make(map[string]map[string]*clientWriter),
	}
}

// Register starts the connection's writer under connID.
func (h *Hub) Register(connID string, conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return ErrHubStopped
	}
	h.clients[connID] = newClientWriter(conn, h.clock)
	return nil
}

// Unregister removes the connection from every room and closes it.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	cw, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		for topicID, members := range h.rooms {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, topicID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		cw.stop()
	}
}

// Join adds a registered connection to the topic's room. Unknown connections are ignored.
func (h *Hub) Join(connID, topicID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cw, ok := h.clients[connID]
	if !ok {
		return
	}
	members, exists := h.rooms[topicID]
	if !exists {
		members = make(map[string]*clientWriter)
		h.rooms[topicID] = members
	}
	members[connID] = cw
}

func (h *Hub) Leave(connID, topicID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[topicID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, topicID)
	}
}

// SendToTopic queues a biomarker_updates frame for every member of the topic's room.
// Members whose send buffer is full are disconnected.
func (h *Hub) SendToTopic(topicID string, event domain.UpdateEvent) {
	data, err := encode(EventBiomarkerUpdates, event)
	if err != nil {
		slog.Error("Failed to marshal update event", "patient_id", topicID, "error", err)
		return
	}

	h.mu.RLock()
	members := make(map[string]*clientWriter, len(h.rooms[topicID]))
	for connID, cw := range h.rooms[topicID] {
		members[connID] = cw
	}
	h.mu.RUnlock()

	for connID, cw := range members {
		if !cw.trySend(data) {
			slog.Warn("Disconnecting slow client", "conn_id", connID, "patient_id", topicID)
			metrics.WebSocketSlowClientsEvicted.Inc()
			cw.stop()
		}
	}
}

// Send queues a frame for a single connection.
func (h *Hub) Send(connID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		slog.Error("Failed to marshal message", "conn_id", connID, "event", event, "error", err)
		return
	}

	h.mu.RLock()
	cw, ok := h.clients[connID]
	h.mu.RUnlock()

	if ok && !cw.trySend(msg) {
		metrics.WebSocketSlowClientsEvicted.Inc()
		cw.stop()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(topicID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topicID])
}

// Stop sends a going-away close frame to every client and refuses new registrations.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	clients := h.clients
	h.clients = make(map[string]*clientWriter)
	clear(h.rooms)
	h.mu.Unlock()

	for _, cw := range clients {
		cw.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	slog.Info("WebSocket hub stopped", "closed_clients", len(clients))
}
