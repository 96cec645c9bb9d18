package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppName != "Gkash" || cfg.Port != "3000" || cfg.Currency != "KES" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ServiceCode, []string{"710", "56789"}) {
		t.Fatalf("service code = %v", cfg.ServiceCode)
	}
	if cfg.OTPTTL != time.Minute || cfg.OTPLength != 6 || cfg.OTPMaxAttempts != 3 {
		t.Fatalf("unexpected OTP defaults: %+v", cfg)
	}
}

func TestLoadRequiresStoresOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL missing in production")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/gkash")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when REDIS_URL missing in production")
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379")
	if _, err := Load(); err != nil {
		t.Fatalf("load with both stores set: %v", err)
	}
}

func TestDurationSecondsWinsOverDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("OTP_TTL_SECONDS", "90")
	t.Setenv("OTP_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTPTTL != 90*time.Second {
		t.Fatalf("OTPTTL = %v, want 90s", cfg.OTPTTL)
	}
}

func TestDurationForm(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PROVIDER_TIMEOUT", "2500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderTimeout != 2500*time.Millisecond {
		t.Fatalf("ProviderTimeout = %v, want 2.5s", cfg.ProviderTimeout)
	}
}

func TestLoadRejectsBadOTPSettings(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	t.Setenv("OTP_LENGTH", "3")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for OTP_LENGTH below 4")
	}
	t.Setenv("OTP_LENGTH", "6")

	t.Setenv("OTP_MAX_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for OTP_MAX_ATTEMPTS below 1")
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "8080"}).Address(); got != ":8080" {
		t.Fatalf("Address = %q", got)
	}
	if got := (Config{Port: ":8080"}).Address(); got != ":8080" {
		t.Fatalf("Address with colon = %q", got)
	}
}

func TestParseServiceCode(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"*710*56789#", []string{"710", "56789"}},
		{"*384#", []string{"384"}},
		{"710*56789", []string{"710", "56789"}},
		{"", nil},
	}
	for _, tc := range tests {
		if got := ParseServiceCode(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseServiceCode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
