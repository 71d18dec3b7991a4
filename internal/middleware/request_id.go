package middleware

import (
	"HawkVision/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
)

const RequestIDKey = "X-Request-ID"

// NewRequestIDMiddleware tags every request with a ULID, or keeps the one a
// proxy already assigned. The id is echoed back so users can quote it.
func NewRequestIDMiddleware() fiber.Handler {
	ids := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := fiberUtils.CopyString(c.Get(RequestIDKey))
		if requestID == "" {
			id, err := ids.NewULIDFromTimestamp(time.Now())
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to assign request id")
			}
			requestID = id
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}
