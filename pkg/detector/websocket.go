package detector

import (
	"HawkVision/internal/entity"
	"HawkVision/pkg/log"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// webSocketDetector keeps one connection to a streaming detection backend.
// Each request is a single binary frame answered by one JSON text frame
// carrying the same envelope as the HTTP endpoint.
type webSocketDetector struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	pingInterval time.Duration
	timeout      time.Duration
	writeTimeout time.Duration
}

func NewWebSocketDetector(url string, timeout time.Duration) IDetector {
	return &webSocketDetector{
		url:          url,
		pingInterval: 30 * time.Second,
		timeout:      timeout,
		writeTimeout: 5 * time.Second,
	}
}

func (c *webSocketDetector) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	log.WithRequestID(ctx).WithField("url", c.url).Info("Connecting to detection service")

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			log.Warn(log.Fields{"url": c.url, "error": err.Error()}, "Error sending pong")
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return conn, nil
}

func (c *webSocketDetector) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{"url": c.url, "error": err.Error()}, "Ping failed for detection service, marking connection as dead")
			c.drop()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// drop must be called with mu held.
func (c *webSocketDetector) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketDetector) Predict(ctx context.Context, img Image) ([]entity.Detection, error) {
	// Requests share one socket, so they are answered strictly in turn.
	c.mu.Lock()
	defer c.mu.Unlock()

	// A caller superseded while queued must not occupy the socket.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, img.Data); err != nil {
		c.drop()
		return nil, fmt.Errorf("error sending image frame: %w", err)
	}

	conn.SetReadDeadline(deadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("error reading detection message: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	return DecodePredictions(message)
}

func (c *webSocketDetector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	return nil
}
