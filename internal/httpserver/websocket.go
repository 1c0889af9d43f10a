package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// wsSendBuffer is the per-client entry buffer; a lagging client
	// loses entries rather than stalling the log's fan-out.
	wsSendBuffer = 64

	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API binds to loopback; the live feed has no cross-origin
	// consumers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams new log entries to the client as JSON messages
// until the connection drops or the server shuts down.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("httpserver: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	entries, cancel := s.log.Subscribe(wsSendBuffer)
	defer cancel()

	// Reader goroutine: drain client messages so pings/pongs and close
	// frames are processed, then signal disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-done:
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(entry); err != nil {
				slog.Debug("httpserver: websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
