package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gkash/gkash_ussd/internal/config"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.Mpesa{}, time.Second); err == nil {
		t.Fatal("expected error without consumer credentials")
	}
}

func newDarajaTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.Mpesa{
		Env:            "sandbox",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/mpesa/callback",
	}, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.baseURL = server.URL
	return client
}

func TestRequestCollection(t *testing.T) {
	authCalls := 0
	var gotPush stkPushRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			t.Errorf("basic auth = (%q, %q, %v)", user, pass, ok)
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1", ExpiresIn: "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPush); err != nil {
			t.Errorf("decode push: %v", err)
		}
		_ = json.NewEncoder(w).Encode(stkPushResponse{
			CheckoutRequestID: "ws_CO_1",
			ResponseCode:      "0",
		})
	})

	client := newDarajaTestClient(t, mux)
	ctx := context.Background()

	result, err := client.RequestCollection(ctx, CollectionInput{
		Phone:       "0743177132",
		Amount:      500,
		Reference:   "GK00000001",
		Description: "Gkash Investment",
	})
	if err != nil {
		t.Fatalf("request collection: %v", err)
	}
	if result.Reference != "ws_CO_1" || result.Status != "accepted" {
		t.Fatalf("result = %+v", result)
	}
	if gotPush.PhoneNumber != "254743177132" || gotPush.Amount != 500 {
		t.Fatalf("push payload = %+v", gotPush)
	}
	if gotPush.TransactionType != "CustomerPayBillOnline" || gotPush.BusinessShortCode != "174379" {
		t.Fatalf("push payload = %+v", gotPush)
	}
	if gotPush.Password == "" || gotPush.Timestamp == "" {
		t.Fatal("push payload missing derived credentials")
	}

	// A second call reuses the cached token.
	if _, err := client.RequestCollection(ctx, CollectionInput{
		Phone: "0743177132", Amount: 100, Reference: "GK00000001",
	}); err != nil {
		t.Fatalf("second collection: %v", err)
	}
	if authCalls != 1 {
		t.Fatalf("auth endpoint called %d times, want 1", authCalls)
	}
}

func TestRequestCollectionRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token-1"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(stkPushResponse{
			ResponseCode: "1",
			ResponseDesc: "Insufficient funds on shortcode",
		})
	})

	client := newDarajaTestClient(t, mux)
	_, err := client.RequestCollection(context.Background(), CollectionInput{
		Phone: "0743177132", Amount: 500, Reference: "GK00000001",
	})
	if err == nil {
		t.Fatal("expected error on non-zero response code")
	}
}

func TestRequestDisbursementNeedsInitiatorSecrets(t *testing.T) {
	client := newDarajaTestClient(t, http.NewServeMux())
	_, err := client.RequestDisbursement(context.Background(), DisbursementInput{
		Phone: "0743177132", Amount: 500,
	})
	if err == nil {
		t.Fatal("expected error without initiator password")
	}
}

func TestStaticGateway(t *testing.T) {
	gateway := StaticGateway{}
	ctx := context.Background()

	collected, err := gateway.RequestCollection(ctx, CollectionInput{Phone: "0743177132", Amount: 500})
	if err != nil || collected.Reference == "" || collected.Status != "accepted" {
		t.Fatalf("collection = (%+v, %v)", collected, err)
	}

	disbursed, err := gateway.RequestDisbursement(ctx, DisbursementInput{Phone: "0743177132", Amount: 200})
	if err != nil || disbursed.Reference == "" || disbursed.Status != "accepted" {
		t.Fatalf("disbursement = (%+v, %v)", disbursed, err)
	}
	if collected.Reference == disbursed.Reference {
		t.Fatal("stub references should be unique per request")
	}
}
