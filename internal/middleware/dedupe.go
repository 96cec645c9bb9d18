package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gkash/gkash_ussd/internal/mpesa"
)

const dedupePrefix = "callback:v1:"

// CallbackDedupe suppresses replayed payment-result callbacks. Providers
// retry the callback until acknowledged, so the same result can arrive more
// than once; the first delivery is reserved in Redis by its checkout request
// ID and later duplicates are acknowledged without reprocessing.
//
// Fails open when Redis is unavailable: a duplicate is preferable to a
// dropped result.
func CallbackDedupe(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		var envelope mpesa.CallbackEnvelope
		if err := json.Unmarshal(c.Body(), &envelope); err != nil {
			return c.Next()
		}
		ref := envelope.Body.STKCallback.CheckoutRequestID
		if ref == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		reserved, err := cache.SetNX(ctx, dedupePrefix+ref, 1, ttl).Result()
		if err != nil {
			logger.Warn("callback dedupe reservation failed", slog.String("ref", ref), slog.Any("error", err))
			return c.Next()
		}
		if !reserved {
			logger.Info("duplicate payment callback suppressed", slog.String("ref", ref))
			return c.JSON(mpesa.Accepted())
		}

		return c.Next()
	}
}
