package config

import (
	detectionHandler "HawkVision/internal/api/detection/handler"
	detectionService "HawkVision/internal/api/detection/service"
	"HawkVision/internal/middleware"
	"HawkVision/pkg/detector"
	"HawkVision/pkg/metrics"
	"HawkVision/pkg/preview"
	"HawkVision/pkg/utils"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	log              *logrus.Logger
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	detector         detector.IDetector
	previews         preview.IPreviewStore
	metrics          metrics.IMetrics
	sessionTTL       time.Duration
	detectionService detectionService.IDetectionService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.NewWithLimit(int64(UploadLimit()))
	}
	if server.previews == nil {
		server.previews = preview.NewMemory()
	}
	if server.metrics == nil {
		server.metrics = metrics.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware(opts ...middleware.Option) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, opts...)
		return nil
	}
}

// WithDetector uses d, or builds one from the DETECTION_* environment when d
// is nil.
func WithDetector(d detector.IDetector) ServerOption {
	return func(s *Server) error {
		if d != nil {
			s.detector = d
			return nil
		}

		client, err := detector.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create detector client: %v", err)
			}
			return fmt.Errorf("failed to create detector client: %w", err)
		}
		s.detector = client
		return nil
	}
}

// WithPreviewStore uses store, or builds one from PREVIEW_STORE when store
// is nil.
func WithPreviewStore(store preview.IPreviewStore) ServerOption {
	return func(s *Server) error {
		if store != nil {
			s.previews = store
			return nil
		}

		built, err := preview.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize preview store: %v", err)
			}
			return fmt.Errorf("failed to create preview store: %w", err)
		}
		s.previews = built
		return nil
	}
}

func WithMetrics(m metrics.IMetrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithUtils(u utils.IUtils) ServerOption {
	return func(s *Server) error {
		s.utils = u
		return nil
	}
}

func WithSessionTTL(ttl time.Duration) ServerOption {
	return func(s *Server) error {
		s.sessionTTL = ttl
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	s.engine.Use(s.middleware.NewSessionMiddleware())

	// Detection
	s.detectionService = detectionService.NewDetectionService(s.log, s.detector, s.previews, s.utils, s.metrics, s.sessionTTL)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, s.detectionService)

	s.setupHealthCheck()
	s.engine.Get("/", detectionHandlers.Page)
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	s.handlers = append(s.handlers, detectionHandlers)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) Run(ctx context.Context) error {
	s.detectionService.StartJanitor(ctx, time.Minute)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)
	if s.detectionService != nil {
		s.detectionService.Shutdown(ctx)
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
