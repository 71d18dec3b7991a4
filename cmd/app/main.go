package main

import (
	"HawkVision/internal/config"
	"HawkVision/internal/middleware"
	"HawkVision/pkg/log"
	"HawkVision/pkg/metrics"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/context"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithMiddleware(middleware.WithSecureCookies(os.Getenv("APP_ENV") == "production")),
		config.WithDetector(nil),
		config.WithPreviewStore(nil),
		config.WithMetrics(metrics.New()),
		config.WithSessionTTL(sessionTTL()),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}

func sessionTTL() time.Duration {
	ttl, err := time.ParseDuration(os.Getenv("SESSION_TTL"))
	if err != nil || ttl <= 0 {
		return 0
	}
	return ttl
}
