package detectionHandler

import (
	"HawkVision/internal/api/detection"
	contextPkg "HawkVision/pkg/context"
	"HawkVision/pkg/log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	defaultWSPingInterval = 30 * time.Second
	defaultWSReadTimeout  = 60 * time.Second
	wsWriteTimeout        = 10 * time.Second
)

// handleStateWebSocket pushes the viewer's state every time it changes.
// Browsers never send on this socket, so liveness comes from server pings
// answered with pongs. Incoming messages are only read to notice the client
// going away.
func (h *DetectionHandler) handleStateWebSocket(c *websocket.Conn) {
	sessionID, _ := c.Locals(contextPkg.SessionIDKey).(string)
	entry := h.log.WithFields(log.Fields{"session_id": sessionID})

	entry.Info("State WebSocket client connected")
	defer entry.Info("State WebSocket client disconnected")

	states, unsubscribe, err := h.detectionService.Subscribe(sessionID)
	if err != nil {
		c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if writeErr := c.WriteJSON(detection.StreamMessage{Type: detection.StreamError, Error: err.Error()}); writeErr != nil {
			entry.Errorf("Error sending error response: %v", writeErr)
		}
		return
	}
	defer unsubscribe()

	c.SetReadDeadline(time.Now().Add(h.wsReadTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(h.wsReadTimeout))
	})
	c.SetPingHandler(func(data string) error {
		c.SetReadDeadline(time.Now().Add(h.wsReadTimeout))
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteTimeout))
	})

	gone := make(chan struct{})
	var readerDone sync.WaitGroup
	readerDone.Add(1)
	go func() {
		defer readerDone.Done()
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					entry.Warnf("State WebSocket error: %v", err)
				}
				return
			}
		}
	}()
	// The connection is released when this handler returns, so the reader
	// must have stopped by then.
	defer readerDone.Wait()
	defer c.Close()

	ticker := time.NewTicker(h.wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				entry.Warnf("Ping failed, closing state stream: %v", err)
				return
			}
		case state, ok := <-states:
			if !ok {
				entry.Debug("Session closed, ending state stream")
				return
			}

			resp := detection.NewViewStateResponse(state)
			if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				entry.Errorf("Error setting write deadline: %v", err)
				return
			}
			if err := c.WriteJSON(detection.StreamMessage{Type: detection.StreamState, State: &resp}); err != nil {
				entry.Errorf("Error writing state: %v", err)
				return
			}
		}
	}
}
