package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gkash/gkash_ussd/internal/logging"
	"github.com/gkash/gkash_ussd/internal/mpesa"
)

const callbackPayload = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully."
		}
	}
}`

func newDedupeApp(t *testing.T, cache *redis.Client) (*fiber.App, *int) {
	t.Helper()
	processed := 0
	app := fiber.New()
	app.Post("/callback", CallbackDedupe(cache, time.Hour, logging.Discard()), func(c *fiber.Ctx) error {
		processed++
		return c.JSON(mpesa.Accepted())
	})
	return app, &processed
}

func postCallback(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestCallbackDedupeSuppressesReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app, processed := newDedupeApp(t, cache)

	resp := postCallback(t, app, callbackPayload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first delivery status = %d", resp.StatusCode)
	}
	if *processed != 1 {
		t.Fatalf("first delivery processed %d times, want 1", *processed)
	}

	resp = postCallback(t, app, callbackPayload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("duplicate delivery status = %d", resp.StatusCode)
	}
	if *processed != 1 {
		t.Fatalf("duplicate reprocessed, handler ran %d times", *processed)
	}

	// The duplicate is still acknowledged so the provider stops retrying.
	var ack mpesa.Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ResultCode != 0 || ack.ResultDesc != "Accepted" {
		t.Fatalf("duplicate ack = %+v", ack)
	}
}

func TestCallbackDedupePassesMalformedBody(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app, processed := newDedupeApp(t, cache)

	postCallback(t, app, "not json")
	postCallback(t, app, "not json")
	if *processed != 2 {
		t.Fatalf("malformed bodies should pass through, handler ran %d times", *processed)
	}
}

func TestCallbackDedupeNilCacheFailsOpen(t *testing.T) {
	app, processed := newDedupeApp(t, nil)

	postCallback(t, app, callbackPayload)
	postCallback(t, app, callbackPayload)
	if *processed != 2 {
		t.Fatalf("without Redis every delivery should process, handler ran %d times", *processed)
	}
}
