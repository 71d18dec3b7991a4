package middleware

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, opts ...Option) (*fiber.App, Middleware) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := New(logger, opts...)
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Use(m.NewLoggingMiddleware())
	app.Use(m.NewSessionMiddleware())

	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"request_id": m.GetRequestID(c),
			"session_id": m.GetSessionID(c),
		})
	})
	app.Post("/upload", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	return app, m
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestSessionMiddleware_IssuesCookie(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	_, err = uuid.Parse(cookie.Value)
	assert.NoError(t, err)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, cookie.Value, resp.Header.Get(SessionHeader))
}

func TestSessionMiddleware_ReusesExistingID(t *testing.T) {
	app, _ := newTestApp(t)
	id := uuid.NewString()

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Nil(t, sessionCookie(resp))
		assert.Equal(t, id, resp.Header.Get(SessionHeader))
	})

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(SessionHeader, id)

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, id, resp.Header.Get(SessionHeader))
	})

	t.Run("garbage is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		cookie := sessionCookie(resp)
		require.NotNil(t, cookie)
		assert.NotEqual(t, "not-a-uuid", cookie.Value)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	resp.Body.Close()
	generated := resp.Header.Get(RequestIDKey)
	assert.Len(t, generated, 26)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDKey, "caller-supplied")
	resp, err = app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "caller-supplied", resp.Header.Get(RequestIDKey))
}

func TestRateLimiter(t *testing.T) {
	app, _ := newTestApp(t, WithUploadRate(0, 2))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/upload", nil))
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{fiber.StatusAccepted, fiber.StatusAccepted, fiber.StatusTooManyRequests}, statuses)
}

// Ids are kept past the request that carried them, so they must survive the
// connection's buffers being reused by later requests.
func TestSessionAndRequestIDs_SurviveKeepAliveReuse(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := New(logger)

	var (
		mu         sync.Mutex
		sessionIDs []string
		requestIDs []string
	)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(m.NewRequestIDMiddleware())
	app.Use(m.NewSessionMiddleware())
	app.Get("/state", func(c *fiber.Ctx) error {
		mu.Lock()
		sessionIDs = append(sessionIDs, m.GetSessionID(c))
		requestIDs = append(requestIDs, m.GetRequestID(c))
		mu.Unlock()
		return c.SendStatus(fiber.StatusOK)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	client := &http.Client{Transport: &http.Transport{MaxConnsPerHost: 1}}
	t.Cleanup(client.CloseIdleConnections)
	base := "http://" + ln.Addr().String()

	first := uuid.NewString()
	send := func(prepare func(req *http.Request)) {
		req, err := http.NewRequest(http.MethodGet, base+"/state", nil)
		require.NoError(t, err)
		prepare(req)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	send(func(req *http.Request) {
		req.Header.Set("Cookie", "theme=dark-mode-enabled-long; "+SessionCookie+"="+first)
		req.Header.Set(RequestIDKey, "first-request-id")
	})
	for i := 0; i < 5; i++ {
		send(func(req *http.Request) {
			req.Header.Set("Cookie", "a=b; "+SessionCookie+"="+uuid.NewString())
			req.Header.Set(RequestIDKey, "other-request-id-"+uuid.NewString())
		})
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sessionIDs, 6)
	assert.Equal(t, first, sessionIDs[0])
	assert.Equal(t, "first-request-id", requestIDs[0])
}
