package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/biomarkerpulse/internal/metrics"
)

const (
	sendBufferSize = 16
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// clientWriter is the only goroutine writing data frames to its connection.
type clientWriter struct {
	conn   *websocket.Conn
	clock  clockwork.Clock
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		clock:  clock,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-cw.sendCh:
			start := time.Now()
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("WebSocket write failed", "error", err)
				cw.stop()
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(time.Since(start).Seconds())
		case <-ticker.Chan():
			if err := cw.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				metrics.WebSocketPingFailures.Inc()
				cw.stop()
				return
			}
		case <-cw.done:
			return
		}
	}
}

// trySend queues msg without blocking; false means the buffer is full.
func (cw *clientWriter) trySend(msg []byte) bool {
	select {
	case <-cw.done:
		return true
	default:
	}

	select {
	case cw.sendCh <- msg:
		return true
	default:
		return false
	}
}

// stop closes the connection, which also ends the handler's read loop.
func (cw *clientWriter) stop() {
	cw.once.Do(func() {
		close(cw.done)
		_ = cw.conn.Close()
	})
}

// closeWith sends a close frame before stopping.
func (cw *clientWriter) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = cw.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	cw.stop()
}
