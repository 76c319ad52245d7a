package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stockaggr/internal/datasource"
	"stockaggr/internal/logging"
)

// WebSocketHandler streams market snapshots to connected clients.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	manager  *datasource.Manager
	log      *logging.Logger

	pushInterval time.Duration
}

// NewWebSocketHandler creates the websocket handler
func NewWebSocketHandler(upgrader websocket.Upgrader, manager *datasource.Manager, log *logging.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader:     upgrader,
		manager:      manager,
		log:          log,
		pushInterval: 5 * time.Second,
	}
}

// IndexStream handles GET /ws/indices. It pushes the major index
// snapshots on a fixed interval until the client disconnects.
func (h *WebSocketHandler) IndexStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reader goroutine: consume control frames and detect disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		indices, err := h.manager.GetIndices(c.Request.Context())
		if err != nil {
			h.log.WithError(err).Debug("index stream fetch failed")
		} else {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(gin.H{
				"type": "indices",
				"time": time.Now().UTC(),
				"data": indices,
			}); err != nil {
				return
			}
		}

		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
