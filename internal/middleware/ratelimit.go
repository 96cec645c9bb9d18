package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// SessionRateLimit bounds keystrokes per phone using Redis counters. USSD
// gateways keep one request in flight per session, so the limit only bites on
// misbehaving clients replaying the endpoint directly. Fails open without
// Redis or on cache errors.
func SessionRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		var req struct {
			PhoneNumber string `json:"phoneNumber" form:"phoneNumber"`
			Phone       string `json:"phone" form:"phone"`
		}
		_ = c.BodyParser(&req)
		phone := strings.TrimSpace(req.PhoneNumber)
		if phone == "" {
			phone = strings.TrimSpace(req.Phone)
		}
		if phone == "" {
			phone = c.IP()
		}

		key := "rl:ussd:" + phone
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
