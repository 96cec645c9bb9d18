package ussd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/gkash/gkash_ussd/internal/logging"
)

func newHandlerApp() (*fiber.App, *fixture) {
	f := newFixture()
	handler := NewHandler(f.router, logging.Discard())
	app := fiber.New()
	app.Post("/ussd", handler.Dial)
	return app, f
}

func postForm(t *testing.T, app *fiber.App, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp
}

func TestDialFormRequest(t *testing.T) {
	app, _ := newHandlerApp()

	resp := postForm(t, app, url.Values{
		"sessionId":   {"ATUid_1"},
		"serviceCode": {"*710*56789#"},
		"phoneNumber": {"0743177132"},
		"text":        {""},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "CON Welcome to Gkash") {
		t.Fatalf("body = %q, want welcome menu", body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q, want text/plain", ct)
	}
}

func TestDialJSONRequest(t *testing.T) {
	app, _ := newHandlerApp()

	payload := `{"phone":"254743177132","text":"9"}`
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "END ") {
		t.Fatalf("body = %q, want terminal response", body)
	}
}

func TestDialMissingPhone(t *testing.T) {
	app, _ := newHandlerApp()

	resp := postForm(t, app, url.Values{"text": {"1"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// Terminal dialog outcomes still ride an HTTP 200; the gateway only reads the
// CON/END marker.
func TestDialBusinessFailureIsHTTP200(t *testing.T) {
	app, _ := newHandlerApp()

	resp := postForm(t, app, url.Values{
		"phoneNumber": {"0743177132"},
		"text":        {"2"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "END "+msgNoAccounts {
		t.Fatalf("body = %q", body)
	}
}
