package config

import (
	"HawkVision/pkg/utils"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "HAWK-VISION 2.0",
			BodyLimit:         UploadLimit() + 64*1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			Immutable:         true,
			CaseSensitive:     true,
			EnablePrintRoutes: os.Getenv("APP_ENV") == "development",
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				if fe, ok := err.(*fiber.Error); ok {
					code = fe.Code
				}
				if code >= fiber.StatusInternalServerError {
					logger.WithField("path", c.Path()).Errorf("Unhandled error: %v", err)
				}
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		})

	return app
}

// UploadLimit is the largest image a viewer may drop, from UPLOAD_MAX_BYTES.
func UploadLimit() int {
	if raw := os.Getenv("UPLOAD_MAX_BYTES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return utils.DefaultMaxFileSize
}
