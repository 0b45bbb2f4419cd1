package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/pscheid92/biomarkerpulse/internal/logging"
	"github.com/pscheid92/biomarkerpulse/internal/metrics"
)

// Subscriber is the part of the broadcaster the gateway drives.
type Subscriber interface {
	Subscribe(connID, topicID string) error
	Unsubscribe(connID, topicID string)
	HandleDisconnect(connID string)
}

// Handler serves /ws.
type Handler struct {
	hub      *Hub
	subs     Subscriber
	limiter  *ConnectionLimiter
	upgrader websocket.Upgrader
}

// NewHandler wires the hub to the subscriber. checkOrigin may be nil to accept any origin.
func NewHandler(hub *Hub, subs Subscriber, maxConnections int, checkOrigin func(*http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:     hub,
		subs:    subs,
		limiter: NewConnectionLimiter(int64(maxConnections)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Acquire() {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("WebSocket connection rejected", "reason", "max_connections", "max", h.limiter.Max())
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer h.limiter.Release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	if err := h.hub.Register(connID, conn); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()
	metrics.WebSocketConnectionsCurrent.Inc()
	logger := logging.WithConnection(connID)
	logger.Info("Client connected", "remote_addr", r.RemoteAddr)

	defer func() {
		h.subs.HandleDisconnect(connID)
		h.hub.Unregister(connID)
		metrics.WebSocketConnectionsCurrent.Dec()
		logger.Info("Client disconnected")
	}()

	h.readLoop(connID, conn, logger)
}

func (h *Handler) readLoop(connID string, conn *websocket.Conn, logger *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
		// Any inbound frame proves liveness.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		h.dispatch(connID, raw, logger)
	}
}

func (h *Handler) dispatch(connID string, raw []byte, logger *slog.Logger) {
	var msg Envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		metrics.WebSocketMessagesReceived.WithLabelValues("invalid").Inc()
		h.sendError(connID, "malformed message")
		return
	}

	switch msg.Event {
	case EventStartLiveUpdates, EventStopLiveUpdates:
		metrics.WebSocketMessagesReceived.WithLabelValues(msg.Event).Inc()
	default:
		metrics.WebSocketMessagesReceived.WithLabelValues("invalid").Inc()
		h.sendError(connID, "unknown event: "+msg.Event)
		return
	}

	topicID, err := parseTopic(msg.Data)
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	if msg.Event == EventStopLiveUpdates {
		h.subs.Unsubscribe(connID, topicID)
		logger.Debug("Stopped live updates", "patient_id", topicID)
		return
	}

	if err := h.subs.Subscribe(connID, topicID); err != nil {
		if !errors.Is(err, domain.ErrEmptyTopic) {
			logger.Warn("Subscribe failed", "patient_id", topicID, "error", err)
		}
		h.sendError(connID, err.Error())
		return
	}
	logger.Debug("Started live updates", "patient_id", topicID)
}

func (h *Handler) sendError(connID, message string) {
	h.hub.Send(connID, EventError, errorData{Message: message})
}

// Connections returns the number of connections currently holding a slot.
func (h *Handler) Connections() int64 {
	return h.limiter.Current()
}
