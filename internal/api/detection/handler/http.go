package detectionHandler

import (
	detectionService "HawkVision/internal/api/detection/service"
	"HawkVision/internal/middleware"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService

	// State streams are kept alive by server pings; a viewer that stops
	// answering them for wsReadTimeout is dropped.
	wsPingInterval time.Duration
	wsReadTimeout  time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		wsPingInterval:   defaultWSPingInterval,
		wsReadTimeout:    defaultWSReadTimeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	detection := srv.Group("/detection")
	detection.Post("/upload", h.middleware.NewRateLimiter, h.Upload)
	detection.Get("/state", h.GetState)
	detection.Get("/overlay", h.GetOverlay)
	detection.Get("/summary", h.GetSummary)
	detection.Get("/preview/:id", h.GetPreview)
	detection.Delete("/session", h.CloseSession)

	detection.Use("/ws", wsMiddleware)
	detection.Get("/ws", websocket.New(h.handleStateWebSocket))
}
