package middleware

import (
	"HawkVision/pkg/handlerUtil"
	"HawkVision/pkg/log"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// staleBucketAge is how long a client may stay quiet before its bucket is
// forgotten.
const staleBucketAge = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	buckets   map[string]*bucket
	rate      rate.Limit
	burstSize int
	lastSweep time.Time
	mutex     sync.Mutex
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      reqRate,
		burstSize: burstSize,
		lastSweep: time.Now(),
	}
}

func (r *rateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if now.Sub(r.lastSweep) > staleBucketAge {
		for k, b := range r.buckets {
			if now.Sub(b.lastSeen) > staleBucketAge {
				delete(r.buckets, k)
			}
		}
		r.lastSweep = now
	}

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.rate, r.burstSize)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter
}

// NewRateLimiter throttles image drops per client IP. Every drop starts a
// detection call, so this is what bounds load on the detection service.
func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	limiter := m.rateLimitter.limiterFor(clientIP, time.Now())

	if !limiter.Allow() {
		m.log.WithFields(log.Fields{
			"request_id": m.GetRequestID(ctx),
			"session_id": m.GetSessionID(ctx),
			"ip":         clientIP,
		}).Warn("Too many uploads")

		if m.rateLimitter.rate > 0 {
			retry := time.Duration(float64(time.Second) / float64(m.rateLimitter.rate))
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retry.Seconds())+1))
		}
		return ctx.Status(fiber.StatusTooManyRequests).JSON(handlerUtil.ErrorResponse{
			Error: "Too many requests",
			Code:  "RATE_LIMITED",
		})
	}

	return ctx.Next()
}
