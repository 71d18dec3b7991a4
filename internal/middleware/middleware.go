package middleware

import (
	contextPkg "HawkVision/pkg/context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	NewSessionMiddleware() fiber.Handler
	NewLoggingMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
	GetSessionID(ctx *fiber.Ctx) string
}

type Option func(*middleware)

// WithUploadRate limits drops per client IP.
func WithUploadRate(reqRate rate.Limit, burstSize int) Option {
	return func(m *middleware) {
		m.rateLimitter = newRateLimiter(reqRate, burstSize)
	}
}

func WithSecureCookies(secure bool) Option {
	return func(m *middleware) {
		m.secureCookies = secure
	}
}

type middleware struct {
	rateLimitter        *rateLimiter
	requestIDMiddleware fiber.Handler
	secureCookies       bool
	log                 *logrus.Logger
}

func New(logger *logrus.Logger, opts ...Option) Middleware {
	m := &middleware{
		rateLimitter:        newRateLimiter(2, 10),
		requestIDMiddleware: NewRequestIDMiddleware(),
		log:                 logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func (m *middleware) GetSessionID(ctx *fiber.Ctx) string {
	sessionID, _ := ctx.Locals(contextPkg.SessionIDKey).(string)
	return sessionID
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestIDMiddleware
}
