package middleware

import (
	contextPkg "HawkVision/pkg/context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	SessionCookie = "hawk_session"
	SessionHeader = "X-Session-ID"
)

// NewSessionMiddleware gives every viewer a stable id so its view state
// survives between requests. API clients may send the id as a header instead
// of the cookie.
func (m *middleware) NewSessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The id outlives the request as a session map key, so it must not
		// alias fasthttp's reusable buffers.
		sessionID := utils.CopyString(c.Cookies(SessionCookie))
		if sessionID == "" {
			sessionID = utils.CopyString(c.Get(SessionHeader))
		}

		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HTTPOnly: true,
				Secure:   m.secureCookies,
				SameSite: fiber.CookieSameSiteLaxMode,
				Expires:  time.Now().Add(24 * time.Hour),
			})
		}

		c.Locals(contextPkg.SessionIDKey, sessionID)
		c.Set(SessionHeader, sessionID)

		return c.Next()
	}
}
