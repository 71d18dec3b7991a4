package middleware

import (
	"HawkVision/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// NewLoggingMiddleware logs one line per request. Bodies are never logged;
// uploads are raw image bytes.
func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		logFields := log.Fields{
			"request_id":    m.GetRequestID(c),
			"session_id":    m.GetSessionID(c),
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get(fiber.HeaderUserAgent),
			"request_size":  len(c.Request().Body()),
			"response_size": len(c.Response().Body()),
		}

		if status >= 500 {
			m.log.WithFields(logFields).Error("Server error")
		} else if status >= 400 {
			m.log.WithFields(logFields).Warn("Client error")
		} else {
			m.log.WithFields(logFields).Info("Success")
		}

		return err
	}
}
